package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type EventKind string

const (
	EventDeposited    EventKind = "Deposited"
	EventWithdrawn    EventKind = "Withdrawn"
	EventRewardsAdded EventKind = "RewardsAdded"
)

// Event is emitted once an operation has fully completed. Account is the
// depositor for Deposited/Withdrawn and the injecting member for RewardsAdded.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Account common.Address `json:"account"`
	Amount  uint256.Int    `json:"amount"`
	Time    time.Time      `json:"time"`
}

func NewEvent(kind EventKind, account common.Address, amount *uint256.Int) *Event {
	event := &Event{
		Kind:    kind,
		Account: account,
		Time:    time.Now(),
	}
	event.Amount.Set(amount)
	return event
}

// Emitter receives pool events.
type Emitter interface {
	Emit(event *Event)
}
