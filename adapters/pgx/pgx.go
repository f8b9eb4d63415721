package pgx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lborres/rota/core"
)

// Adapter persists the account document in PostgreSQL.
type Adapter struct {
	pool *pgxpool.Pool
}

var _ core.ConfigStorage = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool: pool,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS public.rota_accounts (
	position INTEGER PRIMARY KEY,
	email    TEXT NOT NULL DEFAULT '',
	mobile   TEXT NOT NULL DEFAULT '',
	password TEXT NOT NULL DEFAULT '',
	token    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS public.rota_keys (
	position INTEGER PRIMARY KEY,
	key      TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS public.rota_model_mapping (
	name   TEXT PRIMARY KEY,
	target TEXT NOT NULL
);`

// Migrate creates the tables used by the adapter if they do not exist.
func (a *Adapter) Migrate(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Load reads the whole document. Accounts and keys keep their stored order.
func (a *Adapter) Load(ctx context.Context) (*core.Document, error) {
	doc := &core.Document{}

	rows, err := a.pool.Query(ctx,
		`SELECT email, mobile, password, token FROM public.rota_accounts ORDER BY position`)
	if err != nil {
		return nil, err
	}
	doc.Accounts, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Account, error) {
		var acc core.Account
		err := row.Scan(&acc.Email, &acc.Mobile, &acc.Password, &acc.Token)
		return acc, err
	})
	if err != nil {
		return nil, err
	}

	rows, err = a.pool.Query(ctx, `SELECT key FROM public.rota_keys ORDER BY position`)
	if err != nil {
		return nil, err
	}
	doc.Keys, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	rows, err = a.pool.Query(ctx, `SELECT name, target FROM public.rota_model_mapping`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, target string
		if err := rows.Scan(&name, &target); err != nil {
			return nil, err
		}
		if doc.ClaudeMapping == nil {
			doc.ClaudeMapping = make(map[string]string)
		}
		doc.ClaudeMapping[name] = target
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return doc, nil
}

// Save replaces the stored document in one transaction.
func (a *Adapter) Save(ctx context.Context, doc *core.Document) error {
	return pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`TRUNCATE public.rota_accounts, public.rota_keys, public.rota_model_mapping`); err != nil {
			return err
		}

		if len(doc.Accounts) > 0 {
			if _, err := tx.CopyFrom(ctx,
				pgx.Identifier{"public", "rota_accounts"},
				[]string{"position", "email", "mobile", "password", "token"},
				pgx.CopyFromRows(accountRows(doc.Accounts)),
			); err != nil {
				return err
			}
		}

		if len(doc.Keys) > 0 {
			if _, err := tx.CopyFrom(ctx,
				pgx.Identifier{"public", "rota_keys"},
				[]string{"position", "key"},
				pgx.CopyFromRows(keyRows(doc.Keys)),
			); err != nil {
				return err
			}
		}

		for name, target := range doc.ClaudeMapping {
			if _, err := tx.Exec(ctx,
				`INSERT INTO public.rota_model_mapping (name, target) VALUES ($1, $2)`,
				name, target); err != nil {
				return err
			}
		}

		return nil
	})
}

func accountRows(accounts []core.Account) [][]any {
	rows := make([][]any, len(accounts))
	for i, acc := range accounts {
		rows[i] = []any{int32(i), acc.Email, acc.Mobile, acc.Password, acc.Token}
	}
	return rows
}

func keyRows(keys []string) [][]any {
	rows := make([][]any, len(keys))
	for i, k := range keys {
		rows[i] = []any{int32(i), k}
	}
	return rows
}
