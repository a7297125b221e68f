package usecase

import (
	"context"
	"fmt"
	"time"

	"ethpool/domain"
	"ethpool/interface/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Payer performs the outbound transfer of a withdrawal. The payout is already
// committed in the new state when Pay is called. The recipient may call back
// into the pool while Pay runs.
type Payer interface {
	Pay(ctx context.Context, payout *domain.Payout) error
}

// PayoutInteractor tracks the delivery of payouts left for a downstream
// sender. It is the default Payer.
type PayoutInteractor struct {
	ledger repository.Ledger
	log    *logrus.Entry
}

var _ Payer = (*PayoutInteractor)(nil)

func NewPayoutInteractor(ledger repository.Ledger) *PayoutInteractor {
	return &PayoutInteractor{
		ledger: ledger,
		log:    logrus.StandardLogger().WithField("type", "usecase/payout"),
	}
}

// Pay leaves the payout in the outbox. The sender reports delivery through
// MarkSent.
func (interactor *PayoutInteractor) Pay(ctx context.Context, payout *domain.Payout) error {
	interactor.log.Infof("payout queued [id: %v, to: %v, amount: %v]", payout.ID, payout.Address.Hex(), payout.Amount.Dec())
	return nil
}

func (interactor *PayoutInteractor) List(ctx context.Context, state string) ([]*domain.Payout, error) {
	var payouts []*domain.Payout
	err := interactor.ledger.View(ctx, func(tx repository.LedgerTx) error {
		var err error
		payouts, err = tx.Payouts(state)
		return err
	})
	return payouts, err
}

// MarkSent flags a payout as delivered. Marking an already sent payout keeps
// the first sent time.
func (interactor *PayoutInteractor) MarkSent(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	var payout *domain.Payout
	err := interactor.ledger.Update(ctx, func(tx repository.LedgerTx) error {
		var err error
		payout, err = tx.Payout(id)
		if err != nil {
			return err
		}
		if payout.State == domain.PayoutStateSent {
			return nil
		}
		if payout.State != domain.PayoutStateNew {
			return fmt.Errorf("payout %v is %v: %w", id, payout.State, domain.ErrorInconsistentLedger)
		}
		now := time.Now()
		payout.State = domain.PayoutStateSent
		payout.SentTime = &now
		return tx.PutPayout(payout)
	})
	if err != nil {
		interactor.log.WithError(err).Warnf("🟡 marking payout %v as sent", id)
		return nil, err
	}
	return payout, nil
}
