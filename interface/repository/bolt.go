package repository

import (
	"context"
	"encoding/json"
	"sort"

	"ethpool/domain"
	"ethpool/infrastructure/boltdb"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var poolStateKey = []byte("state")

// BoltLedger keeps the pool in an embedded bbolt database. bbolt allows a
// single writer at a time, which serializes the pool operations.
type BoltLedger struct {
	db *bbolt.DB
}

var _ Ledger = (*BoltLedger)(nil)

func NewBoltLedger(db *bbolt.DB) *BoltLedger {
	return &BoltLedger{db: db}
}

func (ledger *BoltLedger) Update(ctx context.Context, fn func(tx LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ledger.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltLedgerTx{tx: tx})
	})
}

func (ledger *BoltLedger) View(ctx context.Context, fn func(tx LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ledger.db.View(func(tx *bbolt.Tx) error {
		return fn(&boltLedgerTx{tx: tx})
	})
}

func (ledger *BoltLedger) Close() error {
	return ledger.db.Close()
}

type boltLedgerTx struct {
	tx *bbolt.Tx
}

func (btx *boltLedgerTx) get(bucket, key []byte, out interface{}) (bool, error) {
	data := btx.tx.Bucket(bucket).Get(key)
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, errors.Wrapf(err, "decoding %s record", bucket)
	}
	return true, nil
}

func (btx *boltLedgerTx) put(bucket, key []byte, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding %s record", bucket)
	}
	return errors.Wrapf(btx.tx.Bucket(bucket).Put(key, data), "writing %s record", bucket)
}

func (btx *boltLedgerTx) PoolState() (*domain.PoolState, error) {
	state := &domain.PoolState{}
	if _, err := btx.get(boltdb.BucketPool, poolStateKey, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (btx *boltLedgerTx) PutPoolState(state *domain.PoolState) error {
	return btx.put(boltdb.BucketPool, poolStateKey, state)
}

func (btx *boltLedgerTx) Account(address common.Address) (*domain.Account, error) {
	account := domain.NewAccount(address)
	if _, err := btx.get(boltdb.BucketAccounts, address.Bytes(), account); err != nil {
		return nil, err
	}
	return account, nil
}

func (btx *boltLedgerTx) PutAccount(account *domain.Account) error {
	if !account.IsActive() {
		return errors.Wrap(btx.tx.Bucket(boltdb.BucketAccounts).Delete(account.Address.Bytes()), "deleting account")
	}
	return btx.put(boltdb.BucketAccounts, account.Address.Bytes(), account)
}

func (btx *boltLedgerTx) Accounts() ([]*domain.Account, error) {
	accounts := make([]*domain.Account, 0)
	err := btx.tx.Bucket(boltdb.BucketAccounts).ForEach(func(k, v []byte) error {
		account := &domain.Account{}
		if err := json.Unmarshal(v, account); err != nil {
			return errors.Wrap(err, "decoding accounts record")
		}
		accounts = append(accounts, account)
		return nil
	})
	return accounts, err
}

func (btx *boltLedgerTx) IsTeamMember(address common.Address) (bool, error) {
	return btx.tx.Bucket(boltdb.BucketTeam).Get(address.Bytes()) != nil, nil
}

func (btx *boltLedgerTx) PutTeamMember(address common.Address) error {
	return errors.Wrap(btx.tx.Bucket(boltdb.BucketTeam).Put(address.Bytes(), []byte{1}), "writing team member")
}

func (btx *boltLedgerTx) DeleteTeamMember(address common.Address) error {
	return errors.Wrap(btx.tx.Bucket(boltdb.BucketTeam).Delete(address.Bytes()), "deleting team member")
}

func (btx *boltLedgerTx) TeamMembers() ([]common.Address, error) {
	members := make([]common.Address, 0)
	err := btx.tx.Bucket(boltdb.BucketTeam).ForEach(func(k, v []byte) error {
		members = append(members, common.BytesToAddress(k))
		return nil
	})
	return members, err
}

func (btx *boltLedgerTx) PutPayout(payout *domain.Payout) error {
	return btx.put(boltdb.BucketPayouts, payout.ID[:], payout)
}

func (btx *boltLedgerTx) Payout(id uuid.UUID) (*domain.Payout, error) {
	payout := &domain.Payout{}
	found, err := btx.get(boltdb.BucketPayouts, id[:], payout)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrorPayoutNotFound
	}
	return payout, nil
}

func (btx *boltLedgerTx) Payouts(state string) ([]*domain.Payout, error) {
	payouts := make([]*domain.Payout, 0)
	err := btx.tx.Bucket(boltdb.BucketPayouts).ForEach(func(k, v []byte) error {
		payout := &domain.Payout{}
		if err := json.Unmarshal(v, payout); err != nil {
			return errors.Wrap(err, "decoding payouts record")
		}
		if state == "" || payout.State == state {
			payouts = append(payouts, payout)
		}
		return nil
	})
	sort.SliceStable(payouts, func(i, j int) bool {
		return payouts[i].CreateTime.Before(payouts[j].CreateTime)
	})
	return payouts, err
}

func (btx *boltLedgerTx) Memo(key string) (*domain.Memo, error) {
	data := btx.tx.Bucket(boltdb.BucketMemos).Get([]byte(key))
	if data == nil {
		return nil, nil
	}
	return &domain.Memo{Key: key, Memo: string(data)}, nil
}

func (btx *boltLedgerTx) PutMemo(key string, memo domain.Memorable) error {
	return errors.Wrap(btx.tx.Bucket(boltdb.BucketMemos).Put([]byte(key), []byte(memo.ToJson())), "writing memo")
}
