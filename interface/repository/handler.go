package repository

import (
	"context"
	"database/sql"

	"ethpool/domain"

	"github.com/behrang/sqlbatch"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var (
	BatchOptionNormal = sql.TxOptions{
		ReadOnly:  false,
		Isolation: sql.LevelReadCommitted,
	}

	BatchOptionSnapshotReadOnly = sql.TxOptions{
		ReadOnly:  true,
		Isolation: sql.LevelRepeatableRead,
	}

	BatchOptionSerializable = sql.TxOptions{
		ReadOnly:  false,
		Isolation: sql.LevelSerializable,
	}
)

// BatchHandler is a database handler that executes a batch of SQL commands.
type BatchHandler interface {
	Batch(opts *sql.TxOptions, commands []sqlbatch.Command) ([]interface{}, error)
}

// TxHandler is a database handler that runs a function inside one transaction.
type TxHandler interface {
	BatchHandler
	Transact(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error
}

// Ledger runs pool operations against persistent storage. Every Update is
// all-or-nothing: if fn returns an error nothing it wrote is kept.
type Ledger interface {
	Update(ctx context.Context, fn func(tx LedgerTx) error) error
	View(ctx context.Context, fn func(tx LedgerTx) error) error
	Close() error
}

// LedgerTx is the view of the ledger inside one transaction.
type LedgerTx interface {
	// PoolState returns the zero state when the pool has never been written.
	PoolState() (*domain.PoolState, error)
	PutPoolState(state *domain.PoolState) error

	// Account returns a fresh zero account when the address has no record.
	Account(address common.Address) (*domain.Account, error)
	// PutAccount removes the record when the principal is zero.
	PutAccount(account *domain.Account) error
	Accounts() ([]*domain.Account, error)

	IsTeamMember(address common.Address) (bool, error)
	PutTeamMember(address common.Address) error
	DeleteTeamMember(address common.Address) error
	TeamMembers() ([]common.Address, error)

	PutPayout(payout *domain.Payout) error
	Payout(id uuid.UUID) (*domain.Payout, error)
	// Payouts lists payouts in creation order; an empty state lists all.
	Payouts(state string) ([]*domain.Payout, error)

	// Memo returns nil when the key is absent.
	Memo(key string) (*domain.Memo, error)
	PutMemo(key string, memo domain.Memorable) error
}
