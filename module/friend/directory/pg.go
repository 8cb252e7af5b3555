package directory

import (
	"context"

	"FlashChat/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	perrors "github.com/pkg/errors"
)

// Schema 启动时执行，幂等
const Schema = `
CREATE TABLE IF NOT EXISTS user_contact (
	hash    TEXT PRIMARY KEY,
	user_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS user_interest (
	user_id TEXT NOT NULL,
	tag     TEXT NOT NULL,
	PRIMARY KEY (user_id, tag)
);
CREATE INDEX IF NOT EXISTS user_interest_tag_idx ON user_interest (tag);
`

// PgDirectory 基于 Postgres 的实现
type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(ctx context.Context, dsn string) (*PgDirectory, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.ErrStore.WrapCause(perrors.Wrap(err, "pgx"), "connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.ErrStore.WrapCause(perrors.Wrap(err, "pgx"), "ping postgres")
	}
	return &PgDirectory{pool: pool}, nil
}

func (d *PgDirectory) Migrate(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, Schema); err != nil {
		return wrap(err, "migrate directory")
	}
	return nil
}

func (d *PgDirectory) Close() { d.pool.Close() }

func wrap(err error, msg string) error {
	return errs.ErrStore.WrapCause(perrors.Wrap(err, "pgx"), msg)
}

func (d *PgDirectory) LookupContacts(ctx context.Context, hashes []string) ([]string, error) {
	if len(hashes) == 0 {
		return []string{}, nil
	}
	rows, err := d.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM user_contact WHERE hash = ANY($1) ORDER BY user_id`, hashes)
	if err != nil {
		return nil, wrap(err, "lookup contacts")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrap(err, "scan contacts")
	}
	return ids, nil
}

func (d *PgDirectory) Interests(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.pool.Query(ctx, `SELECT tag FROM user_interest WHERE user_id = $1 ORDER BY tag`, userID)
	if err != nil {
		return nil, wrap(err, "load interests")
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrap(err, "scan interests")
	}
	return tags, nil
}

func (d *PgDirectory) SharingInterests(ctx context.Context, userID string, tags []string, limit int) (map[string][]string, error) {
	out := map[string][]string{}
	if len(tags) == 0 {
		return out, nil
	}
	if limit <= 0 {
		limit = 200
	}
	rows, err := d.pool.Query(ctx, `
		SELECT ui.user_id, ui.tag
		FROM user_interest ui
		WHERE ui.user_id IN (
			SELECT DISTINCT user_id FROM user_interest
			WHERE tag = ANY($1) AND user_id <> $2
			ORDER BY user_id
			LIMIT $3
		)`, tags, userID, limit)
	if err != nil {
		return nil, wrap(err, "query shared interests")
	}
	defer rows.Close()
	for rows.Next() {
		var uid, tag string
		if err := rows.Scan(&uid, &tag); err != nil {
			return nil, wrap(err, "scan shared interests")
		}
		out[uid] = append(out[uid], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "iterate shared interests")
	}
	return out, nil
}

// PutContact 登记通讯录哈希
func (d *PgDirectory) PutContact(ctx context.Context, hash, userID string) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO user_contact (hash, user_id) VALUES ($1, $2)
		ON CONFLICT (hash) DO UPDATE SET user_id = EXCLUDED.user_id`, hash, userID)
	if err != nil {
		return wrap(err, "put contact")
	}
	return nil
}

// SetInterests 覆盖用户兴趣
func (d *PgDirectory) SetInterests(ctx context.Context, userID string, tags []string) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_interest WHERE user_id = $1`, userID); err != nil {
			return wrap(err, "clear interests")
		}
		if len(tags) == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_interest (user_id, tag)
			SELECT $1, t FROM unnest($2::text[]) AS t
			ON CONFLICT DO NOTHING`, userID, tags); err != nil {
			return wrap(err, "insert interests")
		}
		return nil
	})
}
