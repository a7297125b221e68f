package repository

import (
	"context"
	"database/sql"
	"time"

	"ethpool/domain"

	"github.com/behrang/sqlbatch"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

const (
	sqlPoolStateFind = `
	select
		total_principal::text, acc_per_share::text, custody::text
	from pool_state
	where id = 1
`

	sqlPoolStateUpsert = `
	insert into pool_state as c (
			id, total_principal, acc_per_share, custody
		)
		values (
			1, $1::numeric, $2::numeric, $3::numeric
		)
	on conflict (id) do
		update set
			total_principal = $1::numeric, acc_per_share = $2::numeric, custody = $3::numeric
`

	sqlAccountFind = `
	select
		address, principal::text, reward_debt::text, update_time
	from accounts
	where address = $1
`

	sqlAccountFindAll = `
	select
		address, principal::text, reward_debt::text, update_time
	from accounts
	order by address
`

	sqlAccountUpsert = `
	insert into accounts as c (
			address, principal, reward_debt, update_time
		)
		values (
			$1, $2::numeric, $3::numeric, $4
		)
	on conflict (address) do
		update set
			principal = $2::numeric, reward_debt = $3::numeric, update_time = $4
`

	sqlAccountDelete = `
	delete from accounts
	where address = $1
`

	sqlTeamMemberFind = `
	select
		address
	from team_members
	where address = $1
`

	sqlTeamMemberFindAll = `
	select
		address
	from team_members
	order by create_time, address
`

	sqlTeamMemberInsert = `
	insert into team_members (
			address, create_time
		)
		values (
			$1, now()
		)
	on conflict (address) do nothing
`

	sqlTeamMemberDelete = `
	delete from team_members
	where address = $1
`

	sqlPayoutUpsert = `
	insert into payouts as c (
			id, address, amount, state, create_time, sent_time
		)
		values (
			$1, $2, $3::numeric, $4, $5, $6
		)
	on conflict (id) do
		update set
			state = $4, sent_time = $6
`

	sqlPayoutFind = `
	select
		id, address, amount::text, state, create_time, sent_time
	from payouts
	where id = $1
`

	sqlPayoutFindAll = `
	select
		id, address, amount::text, state, create_time, sent_time
	from payouts
	where $1 = '' or state = $1
	order by create_time
`

	sqlMemoUpsert = `
	insert into memos as c (
			key, memo
		)
		values (
			$1, $2::jsonb
		)
	on conflict (key) do
		update set
			memo = $2::jsonb
`

	sqlMemoFind = `
	select
		key, memo
	from memos
	where key = $1
`
)

// PostgresLedger keeps the pool in postgres. Updates run in a serializable
// transaction which is retried on serialization failures. Views read from a
// single snapshot.
type PostgresLedger struct {
	handler TxHandler
}

var _ Ledger = (*PostgresLedger)(nil)

func NewPostgresLedger(handler TxHandler) *PostgresLedger {
	return &PostgresLedger{handler: handler}
}

func (ledger *PostgresLedger) Update(ctx context.Context, fn func(tx LedgerTx) error) error {
	return ledger.handler.Transact(ctx, &BatchOptionSerializable, func(tx *sql.Tx) error {
		return fn(&postgresLedgerTx{tx: tx})
	})
}

func (ledger *PostgresLedger) View(ctx context.Context, fn func(tx LedgerTx) error) error {
	return ledger.handler.Transact(ctx, &BatchOptionSnapshotReadOnly, func(tx *sql.Tx) error {
		return fn(&postgresLedgerTx{tx: tx})
	})
}

func (ledger *PostgresLedger) Close() error {
	return nil
}

type postgresLedgerTx struct {
	tx *sql.Tx
}

func (ptx *postgresLedgerTx) batch(commands ...sqlbatch.Command) ([]interface{}, error) {
	results, err := sqlbatch.Batch(ptx.tx, commands)
	return results, errors.Wrap(err, "executing ledger batch")
}

func parseAmount(dst *uint256.Int, value string) error {
	if err := dst.SetFromDecimal(value); err != nil {
		return errors.Wrapf(err, "parsing amount %q", value)
	}
	return nil
}

func readPoolStates(memo interface{}, scan func(...interface{}) error) (interface{}, error) {
	r := domain.PoolState{}
	var total, acc, custody string
	err := scan(&total, &acc, &custody)
	if err == nil {
		err = parseAmount(&r.TotalPrincipal, total)
	}
	if err == nil {
		err = parseAmount(&r.AccPerShare, acc)
	}
	if err == nil {
		err = parseAmount(&r.Custody, custody)
	}

	list := memo.([]*domain.PoolState)
	list = append(list, &r)
	return list, err
}

func readAccounts(memo interface{}, scan func(...interface{}) error) (interface{}, error) {
	r := domain.Account{}
	var address, principal, debt string
	err := scan(&address, &principal, &debt, &r.UpdateTime)
	if err == nil {
		r.Address = common.HexToAddress(address)
		err = parseAmount(&r.Principal, principal)
	}
	if err == nil {
		err = parseAmount(&r.RewardDebt, debt)
	}

	list := memo.([]*domain.Account)
	list = append(list, &r)
	return list, err
}

func readTeamMembers(memo interface{}, scan func(...interface{}) error) (interface{}, error) {
	var address string
	err := scan(&address)

	list := memo.([]common.Address)
	list = append(list, common.HexToAddress(address))
	return list, err
}

func readPayouts(memo interface{}, scan func(...interface{}) error) (interface{}, error) {
	r := domain.Payout{}
	var id, address, amount string
	err := scan(&id, &address, &amount, &r.State, &r.CreateTime, &r.SentTime)
	if err == nil {
		r.ID, err = uuid.Parse(id)
	}
	if err == nil {
		r.Address = common.HexToAddress(address)
		err = parseAmount(&r.Amount, amount)
	}

	list := memo.([]*domain.Payout)
	list = append(list, &r)
	return list, err
}

func readMemos(all interface{}, scan func(...interface{}) error) (interface{}, error) {
	r := domain.Memo{}
	var jstr []byte
	err := scan(
		&r.Key, &jstr,
	)
	if err == nil {
		r.Memo = string(jstr)
	}

	list := all.([]domain.Memo)
	list = append(list, r)
	return list, err
}

func (ptx *postgresLedgerTx) PoolState() (*domain.PoolState, error) {
	results, err := ptx.batch(sqlbatch.Command{
		Query:   sqlPoolStateFind,
		Init:    make([]*domain.PoolState, 0, 1),
		ReadAll: readPoolStates,
	})
	if err != nil {
		return nil, err
	}
	states, _ := results[0].([]*domain.PoolState)
	if len(states) == 0 {
		return &domain.PoolState{}, nil
	}
	return states[0], nil
}

func (ptx *postgresLedgerTx) PutPoolState(state *domain.PoolState) error {
	_, err := ptx.batch(sqlbatch.Command{
		Query: sqlPoolStateUpsert,
		Args: []interface{}{
			state.TotalPrincipal.Dec(), state.AccPerShare.Dec(), state.Custody.Dec(),
		},
		Affect: 1,
	})
	return err
}

func (ptx *postgresLedgerTx) Account(address common.Address) (*domain.Account, error) {
	results, err := ptx.batch(sqlbatch.Command{
		Query:   sqlAccountFind,
		Args:    []interface{}{address.Hex()},
		Init:    make([]*domain.Account, 0, 1),
		ReadAll: readAccounts,
	})
	if err != nil {
		return nil, err
	}
	accounts, _ := results[0].([]*domain.Account)
	if len(accounts) == 0 {
		return domain.NewAccount(address), nil
	}
	return accounts[0], nil
}

func (ptx *postgresLedgerTx) PutAccount(account *domain.Account) error {
	if !account.IsActive() {
		_, err := ptx.batch(sqlbatch.Command{
			Query: sqlAccountDelete,
			Args:  []interface{}{account.Address.Hex()},
		})
		return err
	}

	updateTime := account.UpdateTime
	if updateTime.IsZero() {
		updateTime = time.Now()
	}
	_, err := ptx.batch(sqlbatch.Command{
		Query: sqlAccountUpsert,
		Args: []interface{}{
			account.Address.Hex(), account.Principal.Dec(), account.RewardDebt.Dec(), updateTime,
		},
		Affect: 1,
	})
	return err
}

func (ptx *postgresLedgerTx) Accounts() ([]*domain.Account, error) {
	results, err := ptx.batch(sqlbatch.Command{
		Query:   sqlAccountFindAll,
		Init:    make([]*domain.Account, 0),
		ReadAll: readAccounts,
	})
	if err != nil {
		return nil, err
	}
	accounts, _ := results[0].([]*domain.Account)
	return accounts, nil
}

func (ptx *postgresLedgerTx) IsTeamMember(address common.Address) (bool, error) {
	results, err := ptx.batch(sqlbatch.Command{
		Query:   sqlTeamMemberFind,
		Args:    []interface{}{address.Hex()},
		Init:    make([]common.Address, 0, 1),
		ReadAll: readTeamMembers,
	})
	if err != nil {
		return false, err
	}
	members, _ := results[0].([]common.Address)
	return len(members) > 0, nil
}

func (ptx *postgresLedgerTx) PutTeamMember(address common.Address) error {
	_, err := ptx.batch(sqlbatch.Command{
		Query: sqlTeamMemberInsert,
		Args:  []interface{}{address.Hex()},
	})
	return err
}

func (ptx *postgresLedgerTx) DeleteTeamMember(address common.Address) error {
	_, err := ptx.batch(sqlbatch.Command{
		Query: sqlTeamMemberDelete,
		Args:  []interface{}{address.Hex()},
	})
	return err
}

func (ptx *postgresLedgerTx) TeamMembers() ([]common.Address, error) {
	results, err := ptx.batch(sqlbatch.Command{
		Query:   sqlTeamMemberFindAll,
		Init:    make([]common.Address, 0),
		ReadAll: readTeamMembers,
	})
	if err != nil {
		return nil, err
	}
	members, _ := results[0].([]common.Address)
	return members, nil
}

func (ptx *postgresLedgerTx) PutPayout(payout *domain.Payout) error {
	_, err := ptx.batch(sqlbatch.Command{
		Query: sqlPayoutUpsert,
		Args: []interface{}{
			payout.ID.String(), payout.Address.Hex(), payout.Amount.Dec(), payout.State, payout.CreateTime, payout.SentTime,
		},
		Affect: 1,
	})
	return err
}

func (ptx *postgresLedgerTx) Payout(id uuid.UUID) (*domain.Payout, error) {
	results, err := ptx.batch(sqlbatch.Command{
		Query:   sqlPayoutFind,
		Args:    []interface{}{id.String()},
		Init:    make([]*domain.Payout, 0, 1),
		ReadAll: readPayouts,
	})
	if err != nil {
		return nil, err
	}
	payouts, _ := results[0].([]*domain.Payout)
	if len(payouts) == 0 {
		return nil, domain.ErrorPayoutNotFound
	}
	return payouts[0], nil
}

func (ptx *postgresLedgerTx) Payouts(state string) ([]*domain.Payout, error) {
	results, err := ptx.batch(sqlbatch.Command{
		Query:   sqlPayoutFindAll,
		Args:    []interface{}{state},
		Init:    make([]*domain.Payout, 0),
		ReadAll: readPayouts,
	})
	if err != nil {
		return nil, err
	}
	payouts, _ := results[0].([]*domain.Payout)
	return payouts, nil
}

func (ptx *postgresLedgerTx) Memo(key string) (*domain.Memo, error) {
	results, err := ptx.batch(sqlbatch.Command{
		Query:   sqlMemoFind,
		Args:    []interface{}{key},
		Init:    make([]domain.Memo, 0, 1),
		ReadAll: readMemos,
	})
	if err != nil {
		return nil, err
	}
	memos, _ := results[0].([]domain.Memo)
	if len(memos) == 0 {
		return nil, nil
	}
	return &memos[0], nil
}

func (ptx *postgresLedgerTx) PutMemo(key string, memo domain.Memorable) error {
	_, err := ptx.batch(sqlbatch.Command{
		Query: sqlMemoUpsert,
		Args: []interface{}{
			key, memo.ToJson(),
		},
		Affect: 1,
	})
	return err
}
