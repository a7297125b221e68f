package usecase

import (
	"math/big"
	"time"

	"ethpool/domain"

	"github.com/holiman/uint256"
)

// pendingReward returns the reward an account accrued since its last update:
// (principal * accPerShare - rewardDebt) / Scale, truncated. The subtraction
// happens at full precision so the sum of pending rewards never exceeds what
// was injected. The product is widened when it does not fit in 256 bits.
func pendingReward(account *domain.Account, accPerShare *uint256.Int) (*uint256.Int, error) {
	if !account.IsActive() {
		return new(uint256.Int), nil
	}
	accrued, overflow := new(uint256.Int).MulOverflow(&account.Principal, accPerShare)
	if overflow {
		return widePendingReward(account, accPerShare)
	}
	owed, underflow := accrued.SubOverflow(accrued, &account.RewardDebt)
	if underflow {
		// accPerShare only grows, so the snapshot can never exceed the product
		return nil, domain.ErrorInconsistentLedger
	}
	return owed.Div(owed, domain.Scale()), nil
}

// widePendingReward is pendingReward over a 512-bit product.
func widePendingReward(account *domain.Account, accPerShare *uint256.Int) (*uint256.Int, error) {
	owed := new(big.Int).Mul(account.Principal.ToBig(), accPerShare.ToBig())
	owed.Sub(owed, account.RewardDebt.ToBig())
	if owed.Sign() < 0 {
		return nil, domain.ErrorInconsistentLedger
	}
	owed.Quo(owed, domain.Scale().ToBig())

	pending, overflow := uint256.FromBig(owed)
	if overflow {
		return nil, domain.ErrorOverflow
	}
	return pending, nil
}

// rewardPerShare is the accumulator increment for amount spread over total.
func rewardPerShare(amount, total *uint256.Int) (*uint256.Int, error) {
	if total.IsZero() {
		return nil, domain.ErrorNoDepositsToReward
	}
	increment, overflow := new(uint256.Int).MulDivOverflow(amount, domain.Scale(), total)
	if overflow {
		return nil, domain.ErrorOverflow
	}
	return increment, nil
}

// credit settles the pending reward of account into its principal, adds
// amount on top and re-snapshots the reward debt. Custody is not touched.
func credit(state *domain.PoolState, account *domain.Account, amount *uint256.Int) error {
	pending, err := pendingReward(account, &state.AccPerShare)
	if err != nil {
		return err
	}

	added, overflow := new(uint256.Int).AddOverflow(pending, amount)
	if overflow {
		return domain.ErrorOverflow
	}
	principal, overflow := new(uint256.Int).AddOverflow(&account.Principal, added)
	if overflow {
		return domain.ErrorOverflow
	}
	total, overflow := new(uint256.Int).AddOverflow(&state.TotalPrincipal, added)
	if overflow {
		return domain.ErrorOverflow
	}
	debt, overflow := new(uint256.Int).MulOverflow(principal, &state.AccPerShare)
	if overflow {
		return domain.ErrorOverflow
	}

	account.Principal.Set(principal)
	account.RewardDebt.Set(debt)
	account.UpdateTime = time.Now()
	state.TotalPrincipal.Set(total)
	return nil
}

// settle closes account and returns its payout. Custody is not touched.
func settle(state *domain.PoolState, account *domain.Account) (*uint256.Int, error) {
	if !account.IsActive() {
		return nil, domain.ErrorNoDeposit
	}
	pending, err := pendingReward(account, &state.AccPerShare)
	if err != nil {
		return nil, err
	}

	payout, overflow := new(uint256.Int).AddOverflow(&account.Principal, pending)
	if overflow {
		return nil, domain.ErrorOverflow
	}
	total, underflow := new(uint256.Int).SubOverflow(&state.TotalPrincipal, &account.Principal)
	if underflow {
		return nil, domain.ErrorInconsistentLedger
	}

	state.TotalPrincipal.Set(total)
	account.Reset()
	account.UpdateTime = time.Now()
	return payout, nil
}

// distribute folds amount into the reward-per-share accumulator.
func distribute(state *domain.PoolState, amount *uint256.Int) error {
	increment, err := rewardPerShare(amount, &state.TotalPrincipal)
	if err != nil {
		return err
	}
	acc, overflow := new(uint256.Int).AddOverflow(&state.AccPerShare, increment)
	if overflow {
		return domain.ErrorOverflow
	}
	state.AccPerShare.Set(acc)
	return nil
}

func addCustody(state *domain.PoolState, amount *uint256.Int) error {
	custody, overflow := new(uint256.Int).AddOverflow(&state.Custody, amount)
	if overflow {
		return domain.ErrorOverflow
	}
	state.Custody.Set(custody)
	return nil
}

func subCustody(state *domain.PoolState, amount *uint256.Int) error {
	custody, underflow := new(uint256.Int).SubOverflow(&state.Custody, amount)
	if underflow {
		return domain.ErrorInconsistentLedger
	}
	state.Custody.Set(custody)
	return nil
}
