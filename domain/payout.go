package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

const (
	PayoutStateNew      = "new"
	PayoutStateSent     = "sent"
	PayoutStateReverted = "reverted"
)

// Payout is an outbound transfer recorded for a downstream sender.
type Payout struct {
	ID         uuid.UUID      `json:"id"`
	Address    common.Address `json:"address"`
	Amount     uint256.Int    `json:"amount"`
	State      string         `json:"state"`
	CreateTime time.Time      `json:"create_time"`
	SentTime   *time.Time     `json:"sent_time"`
}

func NewPayout(to common.Address, amount *uint256.Int) *Payout {
	payout := &Payout{
		ID:         uuid.New(),
		Address:    to,
		State:      PayoutStateNew,
		CreateTime: time.Now(),
	}
	payout.Amount.Set(amount)
	return payout
}
