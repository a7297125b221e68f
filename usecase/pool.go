package usecase

import (
	"context"
	"errors"
	"fmt"

	"ethpool/domain"
	"ethpool/interface/exporter"
	"ethpool/interface/repository"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

// PoolInteractor is the entry point of the pool: deposits, withdrawals and
// reward injections. Each operation is one ledger transaction; the only
// outbound transfer, the withdrawal payout, happens after it commits.
type PoolInteractor struct {
	ledger         repository.Ledger
	teamInteractor *TeamInteractor
	payer          Payer
	emitter        domain.Emitter
	log            *logrus.Entry
}

func NewPoolInteractor(ledger repository.Ledger,
	teamInteractor *TeamInteractor,
	payer Payer,
	emitter domain.Emitter) *PoolInteractor {
	interactor := &PoolInteractor{
		ledger:         ledger,
		teamInteractor: teamInteractor,
		payer:          payer,
		emitter:        emitter,
		log:            logrus.StandardLogger().WithField("type", "usecase/pool"),
	}
	return interactor
}

// AccountView is an account together with what it could withdraw right now.
type AccountView struct {
	Account *domain.Account
	Pending *uint256.Int
	Balance *uint256.Int
}

// Deposit credits amount to the depositor's principal. Any reward accrued
// since the account was last touched is folded into the principal as well.
func (interactor *PoolInteractor) Deposit(ctx context.Context, depositor common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return interactor.reject("deposit", depositor, domain.ErrorInvalidAmount)
	}

	err := interactor.ledger.Update(ctx, func(tx repository.LedgerTx) error {
		state, err := tx.PoolState()
		if err != nil {
			return err
		}
		account, err := tx.Account(depositor)
		if err != nil {
			return err
		}

		if err := credit(state, account, amount); err != nil {
			return err
		}
		if err := addCustody(state, amount); err != nil {
			return err
		}

		if err := tx.PutAccount(account); err != nil {
			return err
		}
		return tx.PutPoolState(state)
	})
	if err != nil {
		return interactor.reject("deposit", depositor, err)
	}

	interactor.emitter.Emit(domain.NewEvent(domain.EventDeposited, depositor, amount))
	return nil
}

// Withdraw closes the depositor's account and pays out principal plus every
// reward accrued. The account is zeroed and the payout recorded in the same
// transaction, committed before the payout is handed to the payer, so a payee
// that re-enters Withdraw gets ErrorNoDeposit.
func (interactor *PoolInteractor) Withdraw(ctx context.Context, depositor common.Address) (*uint256.Int, error) {
	var payout *domain.Payout

	err := interactor.ledger.Update(ctx, func(tx repository.LedgerTx) error {
		state, err := tx.PoolState()
		if err != nil {
			return err
		}
		account, err := tx.Account(depositor)
		if err != nil {
			return err
		}

		amount, err := settle(state, account)
		if err != nil {
			return err
		}
		if err := subCustody(state, amount); err != nil {
			return err
		}

		if err := tx.PutAccount(account); err != nil {
			return err
		}
		if err := tx.PutPoolState(state); err != nil {
			return err
		}
		payout = domain.NewPayout(depositor, amount)
		return tx.PutPayout(payout)
	})
	if err != nil {
		return nil, interactor.reject("withdraw", depositor, err)
	}

	amount := new(uint256.Int).Set(&payout.Amount)
	if err := interactor.payer.Pay(ctx, payout); err != nil {
		interactor.log.WithError(err).Errorf("🔴 paying out %v to %v, reverting withdrawal", amount.Dec(), depositor.Hex())
		if rerr := interactor.revertWithdraw(context.WithoutCancel(ctx), payout.ID); rerr != nil {
			interactor.log.WithError(rerr).Errorf("⛔️ reverting withdrawal of %v for %v failed", amount.Dec(), depositor.Hex())
		}
		exporter.IncErrorCount()
		return nil, err
	}

	interactor.emitter.Emit(domain.NewEvent(domain.EventWithdrawn, depositor, amount))
	return amount, nil
}

// revertWithdraw puts an undelivered payout back under its account as
// principal and marks the payout reverted. A payout that already left the
// new state is not touched.
func (interactor *PoolInteractor) revertWithdraw(ctx context.Context, id uuid.UUID) error {
	return interactor.ledger.Update(ctx, func(tx repository.LedgerTx) error {
		payout, err := tx.Payout(id)
		if err != nil {
			return err
		}
		if payout.State != domain.PayoutStateNew {
			return fmt.Errorf("payout %v is %v: %w", id, payout.State, domain.ErrorInconsistentLedger)
		}

		state, err := tx.PoolState()
		if err != nil {
			return err
		}
		account, err := tx.Account(payout.Address)
		if err != nil {
			return err
		}

		if err := credit(state, account, &payout.Amount); err != nil {
			return err
		}
		if err := addCustody(state, &payout.Amount); err != nil {
			return err
		}

		payout.State = domain.PayoutStateReverted
		if err := tx.PutPayout(payout); err != nil {
			return err
		}
		if err := tx.PutAccount(account); err != nil {
			return err
		}
		return tx.PutPoolState(state)
	})
}

// Receive is the implicit value path: a bare transfer into the pool by a team
// member becomes a reward shared by every active principal.
func (interactor *PoolInteractor) Receive(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	err := interactor.ledger.Update(ctx, func(tx repository.LedgerTx) error {
		if err := interactor.teamInteractor.authorize(tx, caller); err != nil {
			return err
		}

		state, err := tx.PoolState()
		if err != nil {
			return err
		}
		if state.TotalPrincipal.IsZero() {
			return domain.ErrorNoDepositsToReward
		}
		if amount == nil || amount.IsZero() {
			return domain.ErrorInvalidAmount
		}

		if err := distribute(state, amount); err != nil {
			return err
		}
		if err := addCustody(state, amount); err != nil {
			return err
		}
		return tx.PutPoolState(state)
	})
	if err != nil {
		return interactor.reject("receive", caller, err)
	}

	interactor.emitter.Emit(domain.NewEvent(domain.EventRewardsAdded, caller, amount))
	return nil
}

func (interactor *PoolInteractor) State(ctx context.Context) (*domain.PoolState, error) {
	var state *domain.PoolState
	err := interactor.ledger.View(ctx, func(tx repository.LedgerTx) error {
		var err error
		state, err = tx.PoolState()
		return err
	})
	return state, err
}

func (interactor *PoolInteractor) Account(ctx context.Context, id common.Address) (*AccountView, error) {
	var view *AccountView
	err := interactor.ledger.View(ctx, func(tx repository.LedgerTx) error {
		state, err := tx.PoolState()
		if err != nil {
			return err
		}
		account, err := tx.Account(id)
		if err != nil {
			return err
		}
		pending, err := pendingReward(account, &state.AccPerShare)
		if err != nil {
			return err
		}
		balance, overflow := new(uint256.Int).AddOverflow(&account.Principal, pending)
		if overflow {
			return domain.ErrorOverflow
		}

		view = &AccountView{
			Account: account,
			Pending: pending,
			Balance: balance,
		}
		return nil
	})
	return view, err
}

// Pending returns the reward the account has accrued but not yet claimed.
func (interactor *PoolInteractor) Pending(ctx context.Context, id common.Address) (*uint256.Int, error) {
	view, err := interactor.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	return view.Pending, nil
}

// Balance returns what a withdrawal would pay out right now.
func (interactor *PoolInteractor) Balance(ctx context.Context, id common.Address) (*uint256.Int, error) {
	view, err := interactor.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	return view.Balance, nil
}

func (interactor *PoolInteractor) reject(operation string, principal common.Address, err error) error {
	exporter.IncErrorCount()

	entry := interactor.log.WithError(err).WithField("principal", principal.Hex())
	if isRejection(err) {
		entry.Warnf("🟡 %v rejected", operation)
	} else {
		entry.Errorf("🔴 %v failed", operation)
	}
	return err
}

// isRejection reports whether err is a refusal of the request rather than a
// failure of the pool.
func isRejection(err error) bool {
	for _, rejection := range []error{
		domain.ErrorInvalidAmount,
		domain.ErrorNoDeposit,
		domain.ErrorUnauthorized,
		domain.ErrorNoDepositsToReward,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}
