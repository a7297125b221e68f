package domain

import "fmt"

// Rejection reasons surfaced by the pool. The messages are part of the
// observable interface and must not change.
var (
	ErrorInvalidAmount      = fmt.Errorf("send some eth ser")
	ErrorNoDeposit          = fmt.Errorf("you didnt send any eth ser")
	ErrorUnauthorized       = fmt.Errorf("restricted to team members only")
	ErrorNoDepositsToReward = fmt.Errorf("cant deposit rewards if there are no deposits")
)

var (
	ErrorOverflow            = fmt.Errorf("arithmetic overflow")
	ErrorNotInitialized      = fmt.Errorf("pool is not initialized, run 'init' first")
	ErrorAlreadyInitialized  = fmt.Errorf("pool is already initialized")
	ErrorInconsistentLedger  = fmt.Errorf("ledger invariants violated")
	ErrorPayoutNotFound      = fmt.Errorf("payout not found")
	ErrorInvalidAddress      = fmt.Errorf("invalid address")
	ErrorInvalidAmountFormat = fmt.Errorf("invalid amount format")
)
