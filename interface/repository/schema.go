package repository

import (
	"github.com/behrang/sqlbatch"
)

var sqlSchema = []string{`
	create table if not exists pool_state (
		id              smallint primary key check (id = 1),
		total_principal numeric(78, 0) not null,
		acc_per_share   numeric(78, 0) not null,
		custody         numeric(78, 0) not null
	)
`, `
	create table if not exists accounts (
		address     text primary key,
		principal   numeric(78, 0) not null,
		reward_debt numeric(78, 0) not null,
		update_time timestamptz not null
	)
`, `
	create table if not exists team_members (
		address     text primary key,
		create_time timestamptz not null
	)
`, `
	create table if not exists payouts (
		id          uuid primary key,
		address     text not null,
		amount      numeric(78, 0) not null,
		state       text not null,
		create_time timestamptz not null,
		sent_time   timestamptz null
	)
`, `
	create index if not exists payouts_state_idx on payouts (state, create_time)
`, `
	create table if not exists memos (
		key  text primary key,
		memo jsonb not null
	)
`}

// Migrate creates the ledger tables when they do not exist yet.
func Migrate(handler BatchHandler) error {
	commands := make([]sqlbatch.Command, 0, len(sqlSchema))
	for _, statement := range sqlSchema {
		commands = append(commands, sqlbatch.Command{Query: statement})
	}
	_, err := handler.Batch(&BatchOptionNormal, commands)
	return err
}
