package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const scale = 1_000_000_000_000_000_000

// Scale returns the fixed-point factor of the reward-per-share accumulator.
// Every call returns a new value, so callers may use it as a destination.
func Scale() *uint256.Int {
	return uint256.NewInt(scale)
}

// PoolState is the global aggregate every operation reads and writes.
type PoolState struct {
	TotalPrincipal uint256.Int `json:"total_principal"`
	AccPerShare    uint256.Int `json:"acc_per_share"`
	Custody        uint256.Int `json:"custody"`
}

// Account is the per-depositor record. RewardDebt holds Principal * AccPerShare
// as of the last update, still scaled by Scale.
type Account struct {
	Address    common.Address `json:"address"`
	Principal  uint256.Int    `json:"principal"`
	RewardDebt uint256.Int    `json:"reward_debt"`
	UpdateTime time.Time      `json:"update_time"`
}

func NewAccount(address common.Address) *Account {
	return &Account{
		Address: address,
	}
}

func (a *Account) IsActive() bool {
	return !a.Principal.IsZero()
}

// Reset zeroes the account; a reset account is removed from storage.
func (a *Account) Reset() {
	a.Principal.Clear()
	a.RewardDebt.Clear()
}
