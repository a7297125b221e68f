package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"ethpool/domain"
	"ethpool/interface/repository"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	op      string // deposit, reward, withdraw
	who     common.Address
	amount  *uint256.Int
	custody *uint256.Int // checked after the step when set
}

func deposit(who common.Address, amount *uint256.Int) step {
	return step{op: "deposit", who: who, amount: amount}
}

func reward(amount *uint256.Int) step {
	return step{op: "reward", who: deployer, amount: amount}
}

func withdraw(who common.Address, expected *uint256.Int) step {
	return step{op: "withdraw", who: who, amount: expected}
}

func (s step) thenCustody(custody *uint256.Int) step {
	s.custody = custody
	return s
}

func TestPoolScenarios(t *testing.T) {
	tests := []struct {
		name  string
		steps []step
	}{
		{
			name: "deposit then withdraw",
			steps: []step{
				deposit(alice, wei(1)),
				withdraw(alice, wei(1)).thenCustody(wei(0)),
			},
		},
		{
			name: "two deposits without rewards",
			steps: []step{
				deposit(alice, wei(1)),
				deposit(bob, wei(2)),
				withdraw(alice, wei(1)).thenCustody(wei(2)),
				withdraw(bob, wei(2)).thenCustody(wei(0)),
			},
		},
		{
			name: "single depositor takes the whole reward",
			steps: []step{
				deposit(alice, wei(1)),
				reward(wei(1)),
				withdraw(alice, wei(2)).thenCustody(wei(0)),
			},
		},
		{
			name: "reward split by principal",
			steps: []step{
				deposit(alice, wei(1)),
				deposit(bob, wei(2)),
				reward(wei(3)),
				withdraw(alice, wei(2)).thenCustody(wei(4)),
				withdraw(bob, wei(4)).thenCustody(wei(0)),
			},
		},
		{
			name: "late depositor gets no earlier reward",
			steps: []step{
				deposit(alice, ether(1)),
				reward(ether(3)),
				deposit(bob, ether(2)),
				withdraw(alice, ether(4)).thenCustody(ether(2)),
				withdraw(bob, ether(2)).thenCustody(ether(0)),
			},
		},
		{
			name: "interleaved deposits",
			steps: []step{
				deposit(alice, ether(1)),
				deposit(bob, ether(4)),
				deposit(alice, ether(2)),
				reward(ether(7)),
				withdraw(alice, ether(6)),
				withdraw(bob, ether(8)).thenCustody(ether(0)),
			},
		},
		{
			name: "withdrawn account starts over",
			steps: []step{
				deposit(alice, ether(1)),
				reward(ether(1)),
				withdraw(alice, ether(2)).thenCustody(ether(0)),
				deposit(alice, ether(5)),
				reward(ether(7)),
				withdraw(alice, ether(12)).thenCustody(ether(0)),
			},
		},
		{
			name: "rewards accumulate",
			steps: []step{
				deposit(alice, ether(1)),
				deposit(bob, ether(2)),
				reward(ether(3)),
				reward(ether(12)),
				withdraw(alice, ether(6)).thenCustody(ether(12)),
				withdraw(bob, ether(12)).thenCustody(ether(0)),
			},
		},
		{
			name: "reward after a withdrawal goes to the remaining depositor",
			steps: []step{
				deposit(alice, ether(1)),
				deposit(bob, ether(2)),
				reward(ether(3)),
				withdraw(alice, ether(2)),
				reward(ether(3)).thenCustody(ether(7)),
				withdraw(bob, ether(7)).thenCustody(ether(0)),
			},
		},
		{
			name: "reward after a withdrawal in wei",
			steps: []step{
				deposit(alice, wei(1)),
				deposit(bob, wei(2)),
				reward(wei(3)),
				withdraw(alice, wei(2)),
				reward(wei(3)).thenCustody(wei(7)),
				withdraw(bob, wei(7)).thenCustody(wei(0)),
			},
		},
		{
			// 5 ether over 3 ether of principal truncates the accumulator,
			// leaving two wei of dust in custody.
			name: "repeated deposits leave rounding dust",
			steps: []step{
				deposit(alice, ether(1)),
				deposit(alice, ether(2)),
				reward(ether(5)),
				withdraw(alice, new(uint256.Int).Sub(ether(8), wei(2))).thenCustody(wei(2)),
			},
		},
		{
			// Latecomers snapshot a truncated accumulator; custody must
			// still cover both of them.
			name: "late depositors never claim more than custody",
			steps: []step{
				deposit(carol, wei(2)),
				reward(wei(1)),
				withdraw(carol, wei(3)).thenCustody(wei(0)),
				deposit(alice, wei(1)),
				deposit(bob, wei(1)),
				reward(wei(1)),
				withdraw(alice, wei(1)),
				withdraw(bob, wei(1)).thenCustody(wei(1)),
			},
		},
	}

	for _, backend := range backends {
		for _, tt := range tests {
			t.Run(backend+"/"+tt.name, func(t *testing.T) {
				ctx := context.Background()
				p := newTestPoolOn(t, backend, nil)

				for i, s := range tt.steps {
					switch s.op {
					case "deposit":
						require.NoError(t, p.pool.Deposit(ctx, s.who, s.amount), "step %d", i)
					case "reward":
						require.NoError(t, p.pool.Receive(ctx, s.who, s.amount), "step %d", i)
					case "withdraw":
						payout, err := p.pool.Withdraw(ctx, s.who)
						require.NoError(t, err, "step %d", i)
						assert.Equal(t, s.amount.Dec(), payout.Dec(), "step %d payout", i)
					}
					if s.custody != nil {
						assert.Equal(t, s.custody.Dec(), p.state(t).Custody.Dec(), "step %d custody", i)
					}

					_, err := p.audit.Audit(ctx)
					require.NoError(t, err, "step %d audit", i)
				}
			})
		}
	}
}

func TestDepositRejectsZero(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	err := p.pool.Deposit(ctx, alice, wei(0))
	require.ErrorIs(t, err, domain.ErrorInvalidAmount)
	assert.Equal(t, "send some eth ser", err.Error())

	require.ErrorIs(t, p.pool.Deposit(ctx, alice, nil), domain.ErrorInvalidAmount)
	assert.Empty(t, p.events.Events())
	assert.True(t, p.state(t).Custody.IsZero())
}

func TestDepositEmitsEvent(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	require.NoError(t, p.pool.Deposit(ctx, alice, ether(1)))

	events := p.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventDeposited, events[0].Kind)
	assert.Equal(t, alice, events[0].Account)
	assert.Equal(t, ether(1).Dec(), events[0].Amount.Dec())
}

func TestDepositCompoundsPendingReward(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	require.NoError(t, p.pool.Deposit(ctx, alice, ether(1)))
	require.NoError(t, p.pool.Receive(ctx, deployer, ether(1)))
	require.NoError(t, p.pool.Deposit(ctx, alice, ether(1)))

	view, err := p.pool.Account(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, ether(3).Dec(), view.Account.Principal.Dec())
	assert.True(t, view.Pending.IsZero())
	assert.Equal(t, ether(3).Dec(), p.state(t).TotalPrincipal.Dec())
}

func TestWithdrawWithoutDeposit(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	_, err := p.pool.Withdraw(ctx, alice)
	require.ErrorIs(t, err, domain.ErrorNoDeposit)
	assert.Equal(t, "you didnt send any eth ser", err.Error())

	require.NoError(t, p.pool.Deposit(ctx, alice, wei(5)))
	_, err = p.pool.Withdraw(ctx, alice)
	require.NoError(t, err)

	_, err = p.pool.Withdraw(ctx, alice)
	require.ErrorIs(t, err, domain.ErrorNoDeposit)
}

func TestWithdrawEmitsEventAndRecordsPayout(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	require.NoError(t, p.pool.Deposit(ctx, alice, ether(1)))
	require.NoError(t, p.pool.Receive(ctx, deployer, ether(1)))
	payout, err := p.pool.Withdraw(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, ether(2).Dec(), payout.Dec())

	events := p.events.Events()
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventWithdrawn, events[2].Kind)
	assert.Equal(t, alice, events[2].Account)
	assert.Equal(t, ether(2).Dec(), events[2].Amount.Dec())

	payouts, err := p.payouts.List(ctx, domain.PayoutStateNew)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, alice, payouts[0].Address)
	assert.Equal(t, ether(2).Dec(), payouts[0].Amount.Dec())
}

func TestWithdrawReentrancy(t *testing.T) {
	ctx := context.Background()

	var p *testPool
	var reentrantErr error
	calls := 0
	p = newTestPoolWithPayer(t, payerFunc(func(ctx context.Context, payout *domain.Payout) error {
		calls++
		if calls == 1 {
			_, reentrantErr = p.pool.Withdraw(ctx, payout.Address)
		}
		return nil
	}))

	require.NoError(t, p.pool.Deposit(ctx, alice, ether(1)))
	require.NoError(t, p.pool.Receive(ctx, deployer, ether(1)))

	payout, err := p.pool.Withdraw(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, ether(2).Dec(), payout.Dec())
	require.ErrorIs(t, reentrantErr, domain.ErrorNoDeposit)
	assert.Equal(t, 1, calls)
	assert.True(t, p.state(t).Custody.IsZero())
}

func TestWithdrawRevertsWhenPaymentFails(t *testing.T) {
	ctx := context.Background()
	errTransfer := errors.New("transfer rejected")
	p := newTestPoolWithPayer(t, payerFunc(func(ctx context.Context, payout *domain.Payout) error {
		return errTransfer
	}))

	require.NoError(t, p.pool.Deposit(ctx, alice, ether(1)))
	require.NoError(t, p.pool.Deposit(ctx, bob, ether(1)))
	require.NoError(t, p.pool.Receive(ctx, deployer, ether(2)))

	_, err := p.pool.Withdraw(ctx, alice)
	require.ErrorIs(t, err, errTransfer)

	balance, err := p.pool.Balance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, ether(2).Dec(), balance.Dec())

	state := p.state(t)
	assert.Equal(t, ether(4).Dec(), state.Custody.Dec())
	assert.Equal(t, ether(3).Dec(), state.TotalPrincipal.Dec())

	for _, event := range p.events.Events() {
		assert.NotEqual(t, domain.EventWithdrawn, event.Kind)
	}

	fresh, err := p.payouts.List(ctx, domain.PayoutStateNew)
	require.NoError(t, err)
	assert.Empty(t, fresh)
	reverted, err := p.payouts.List(ctx, domain.PayoutStateReverted)
	require.NoError(t, err)
	require.Len(t, reverted, 1)
	assert.Equal(t, ether(2).Dec(), reverted[0].Amount.Dec())

	_, err = p.payouts.MarkSent(ctx, reverted[0].ID)
	require.ErrorIs(t, err, domain.ErrorInconsistentLedger)

	_, err = p.audit.Audit(ctx)
	require.NoError(t, err)
}

func TestWithdrawRecordsPayoutBeforePaying(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()

			var p *testPool
			var committed []*domain.Payout
			p = newTestPoolOn(t, backend, payerFunc(func(ctx context.Context, payout *domain.Payout) error {
				return p.ledger.View(ctx, func(tx repository.LedgerTx) error {
					stored, err := tx.Payout(payout.ID)
					if err != nil {
						return err
					}
					committed = append(committed, stored)
					return nil
				})
			}))

			require.NoError(t, p.pool.Deposit(ctx, alice, ether(3)))
			require.NoError(t, p.pool.Receive(ctx, deployer, ether(1)))

			_, err := p.pool.Withdraw(ctx, alice)
			require.NoError(t, err)

			require.Len(t, committed, 1)
			assert.Equal(t, domain.PayoutStateNew, committed[0].State)
			assert.Equal(t, alice, committed[0].Address)
			assert.Equal(t, ether(4).Dec(), committed[0].Amount.Dec())
		})
	}
}

func TestWithdrawRevertSkipsSettledPayout(t *testing.T) {
	ctx := context.Background()
	errTransfer := errors.New("transfer timed out")

	var p *testPool
	p = newTestPoolWithPayer(t, payerFunc(func(ctx context.Context, payout *domain.Payout) error {
		// delivered after all, then reported as failed
		if _, err := p.payouts.MarkSent(ctx, payout.ID); err != nil {
			return err
		}
		return errTransfer
	}))

	require.NoError(t, p.pool.Deposit(ctx, alice, ether(1)))

	_, err := p.pool.Withdraw(ctx, alice)
	require.ErrorIs(t, err, errTransfer)

	balance, err := p.pool.Balance(ctx, alice)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	assert.True(t, p.state(t).Custody.IsZero())
}

func TestReceiveChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("non member is rejected first", func(t *testing.T) {
		p := newTestPool(t)
		err := p.pool.Receive(ctx, bob, wei(0))
		require.ErrorIs(t, err, domain.ErrorUnauthorized)
		assert.Equal(t, "restricted to team members only", err.Error())
	})

	t.Run("empty pool", func(t *testing.T) {
		p := newTestPool(t)
		err := p.pool.Receive(ctx, deployer, ether(1))
		require.ErrorIs(t, err, domain.ErrorNoDepositsToReward)
		assert.Equal(t, "cant deposit rewards if there are no deposits", err.Error())
	})

	t.Run("zero reward", func(t *testing.T) {
		p := newTestPool(t)
		require.NoError(t, p.pool.Deposit(ctx, alice, wei(1)))
		require.ErrorIs(t, p.pool.Receive(ctx, deployer, wei(0)), domain.ErrorInvalidAmount)
	})

	t.Run("non member leaves state unchanged", func(t *testing.T) {
		p := newTestPool(t)
		require.NoError(t, p.pool.Deposit(ctx, alice, ether(1)))
		before := p.state(t)

		require.ErrorIs(t, p.pool.Receive(ctx, bob, ether(1)), domain.ErrorUnauthorized)

		after := p.state(t)
		assert.Equal(t, before.AccPerShare.Dec(), after.AccPerShare.Dec())
		assert.Equal(t, before.Custody.Dec(), after.Custody.Dec())
		assert.Len(t, p.events.Events(), 1)
	})

	t.Run("member emits event", func(t *testing.T) {
		p := newTestPool(t)
		require.NoError(t, p.pool.Deposit(ctx, alice, wei(1)))
		require.NoError(t, p.pool.Receive(ctx, deployer, ether(1)))

		events := p.events.Events()
		require.Len(t, events, 2)
		assert.Equal(t, domain.EventRewardsAdded, events[1].Kind)
		assert.Equal(t, deployer, events[1].Account)
		assert.Equal(t, ether(1).Dec(), events[1].Amount.Dec())
	})
}

func TestPendingAndBalance(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	pending, err := p.pool.Pending(ctx, alice)
	require.NoError(t, err)
	assert.True(t, pending.IsZero())

	require.NoError(t, p.pool.Deposit(ctx, alice, ether(1)))
	require.NoError(t, p.pool.Deposit(ctx, bob, ether(3)))
	require.NoError(t, p.pool.Receive(ctx, deployer, ether(2)))

	pending, err = p.pool.Pending(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", pending.Dec())

	balance, err := p.pool.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "4500000000000000000", balance.Dec())
}

func TestPoolReturnsToZero(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	require.NoError(t, p.pool.Deposit(ctx, alice, ether(2)))
	require.NoError(t, p.pool.Deposit(ctx, bob, ether(2)))
	require.NoError(t, p.pool.Receive(ctx, deployer, ether(4)))
	_, err := p.pool.Withdraw(ctx, alice)
	require.NoError(t, err)
	_, err = p.pool.Withdraw(ctx, bob)
	require.NoError(t, err)

	state := p.state(t)
	assert.True(t, state.TotalPrincipal.IsZero())
	assert.True(t, state.Custody.IsZero())
	require.ErrorIs(t, p.pool.Receive(ctx, deployer, ether(1)), domain.ErrorNoDepositsToReward)

	// The accumulator keeps its value; a new depositor starts from it.
	require.NoError(t, p.pool.Deposit(ctx, carol, ether(1)))
	pending, err := p.pool.Pending(ctx, carol)
	require.NoError(t, err)
	assert.True(t, pending.IsZero())
}

func TestRandomOperationsStaySolvent(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)
	rnd := rand.New(rand.NewSource(42))
	depositors := []common.Address{alice, bob, carol}

	var deposited, rewarded, paid uint256.Int
	for i := 0; i < 300; i++ {
		who := depositors[rnd.Intn(len(depositors))]
		amount := new(uint256.Int).Add(
			new(uint256.Int).Mul(uint256.NewInt(uint64(rnd.Intn(50))), ether(1)),
			uint256.NewInt(uint64(rnd.Int63n(1_000_000_007))+1),
		)

		switch rnd.Intn(3) {
		case 0:
			require.NoError(t, p.pool.Deposit(ctx, who, amount))
			deposited.Add(&deposited, amount)
		case 1:
			err := p.pool.Receive(ctx, deployer, amount)
			if errors.Is(err, domain.ErrorNoDepositsToReward) {
				continue
			}
			require.NoError(t, err)
			rewarded.Add(&rewarded, amount)
		case 2:
			payout, err := p.pool.Withdraw(ctx, who)
			if errors.Is(err, domain.ErrorNoDeposit) {
				continue
			}
			require.NoError(t, err)
			paid.Add(&paid, payout)
		}

		_, err := p.audit.Audit(ctx)
		require.NoError(t, err, "operation %d", i)
	}

	for _, who := range depositors {
		payout, err := p.pool.Withdraw(ctx, who)
		if errors.Is(err, domain.ErrorNoDeposit) {
			continue
		}
		require.NoError(t, err)
		paid.Add(&paid, payout)
	}

	// Everything that came in either went out or is left as dust.
	in := new(uint256.Int).Add(&deposited, &rewarded)
	state := p.state(t)
	assert.Equal(t, in.Dec(), new(uint256.Int).Add(&paid, &state.Custody).Dec())
	assert.True(t, state.TotalPrincipal.IsZero())
	assert.True(t, state.Custody.Lt(uint256.NewInt(10_000_000)), "dust %v", state.Custody.Dec())
}

func TestIsRejection(t *testing.T) {
	assert.True(t, isRejection(domain.ErrorNoDeposit))
	assert.True(t, isRejection(pkgerrors.Wrap(domain.ErrorUnauthorized, "receive")))
	assert.True(t, isRejection(fmt.Errorf("deposit: %w", domain.ErrorInvalidAmount)))
	assert.True(t, isRejection(pkgerrors.WithStack(domain.ErrorNoDepositsToReward)))

	assert.False(t, isRejection(domain.ErrorOverflow))
	assert.False(t, isRejection(pkgerrors.Wrap(domain.ErrorInconsistentLedger, "withdraw")))
	assert.False(t, isRejection(errors.New(domain.ErrorNoDeposit.Error())))
}
