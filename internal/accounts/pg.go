package accounts

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authpush/internal/domain/repository"
	"github.com/dropDatabas3/authpush/internal/domain/types"
	migrations "github.com/dropDatabas3/authpush/migrations/postgres"
)

// PGRepo es el AccountRepository sobre Postgres (pgxpool).
//
// Esquema esperado:
//
//	CREATE TABLE authenticator_account (
//	    id              UUID PRIMARY KEY,
//	    username        TEXT NOT NULL,
//	    name            TEXT NOT NULL DEFAULT '',
//	    secret          TEXT NOT NULL DEFAULT '',
//	    validation_code INT  NOT NULL DEFAULT 0,
//	    scratch_codes   TEXT[] NOT NULL DEFAULT '{}',
//	    device_type     TEXT NOT NULL DEFAULT '',
//	    push_id         TEXT NOT NULL DEFAULT '',
//	    device_key_id   TEXT NOT NULL DEFAULT '',
//	    registered_at   TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX idx_authacc_username ON authenticator_account (username);
//	CREATE INDEX idx_authacc_push_id ON authenticator_account (push_id) WHERE push_id <> '';
//	CREATE INDEX idx_authacc_device_key ON authenticator_account (device_key_id) WHERE device_key_id <> '';
type PGRepo struct {
	pool *pgxpool.Pool
}

// NewPG conecta al DSN y verifica la conexión.
func NewPG(ctx context.Context, dsn string) (*PGRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PGRepo{pool: pool}, nil
}

// Migrate aplica las migraciones embebidas en orden lexicográfico.
// Todas las sentencias son idempotentes, re-ejecutar es seguro.
func (s *PGRepo) Migrate(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations.SchemaFS, migrations.SchemaDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		sql, err := fs.ReadFile(migrations.SchemaFS, path.Join(migrations.SchemaDir, e.Name()))
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return err
		}
	}
	return nil
}

const accountCols = `id, username, name, secret, validation_code, scratch_codes,
	device_type, push_id, device_key_id, registered_at`

func scanAccount(row pgx.Row) (*types.Account, error) {
	var a types.Account
	var id uuid.UUID
	var devType string
	if err := row.Scan(&id, &a.Username, &a.Name, &a.Secret, &a.ValidationCode,
		&a.ScratchCodes, &devType, &a.PushID, &a.DeviceKeyID, &a.RegisteredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	a.ID = id.String()
	a.DeviceType = types.DeviceType(devType)
	return &a, nil
}

func (s *PGRepo) FindByUsername(ctx context.Context, username string) ([]types.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+accountCols+`
		FROM authenticator_account WHERE username = $1
		ORDER BY registered_at
	`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PGRepo) FindByPushID(ctx context.Context, pushID string) (*types.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+accountCols+`
		FROM authenticator_account WHERE push_id = $1 AND push_id <> ''
	`, pushID)
	return scanAccount(row)
}

func (s *PGRepo) FindByDeviceKeyID(ctx context.Context, deviceKeyID string) (*types.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+accountCols+`
		FROM authenticator_account WHERE device_key_id = $1 AND device_key_id <> ''
	`, deviceKeyID)
	return scanAccount(row)
}

func (s *PGRepo) Create(ctx context.Context, username string) (*types.Account, error) {
	a := &types.Account{
		ID:           uuid.NewString(),
		Username:     username,
		ScratchCodes: []string{},
		RegisteredAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO authenticator_account (id, username, registered_at)
		VALUES ($1, $2, $3)
	`, a.ID, a.Username, a.RegisteredAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PGRepo) Update(ctx context.Context, a *types.Account) error {
	uid, err := uuid.Parse(a.ID)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE authenticator_account
		SET username = $2, name = $3, secret = $4, validation_code = $5,
			scratch_codes = $6, device_type = $7, push_id = $8,
			device_key_id = $9, registered_at = $10
		WHERE id = $1
	`, uid, a.Username, a.Name, a.Secret, a.ValidationCode, a.ScratchCodes,
		string(a.DeviceType), a.PushID, a.DeviceKeyID, a.RegisteredAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *PGRepo) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM authenticator_account WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *PGRepo) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PGRepo) Close() error {
	s.pool.Close()
	return nil
}
