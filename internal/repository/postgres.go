package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Teamie71/folioo-server/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository           = (*PostgresUserRepo)(nil)
	_ RefreshSessionRepository = (*PostgresSessionRepo)(nil)
)

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation. A violation during find-or-create means a concurrent login won
// the insert race and must be retried as a lookup.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// PostgresUserRepo implements UserRepository on pgx.
type PostgresUserRepo struct {
	db   *pgxpool.Pool
	node *snowflake.Node
}

func NewPostgresUserRepo(pool *pgxpool.Pool, node *snowflake.Node) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool, node: node}
}

const selectUserColumns = `id, provider, provider_user_id, email, nickname, avatar_url, is_active, created_at, updated_at`

func (r *PostgresUserRepo) GetBySocial(ctx context.Context, provider domain.Provider, providerUserID string) (domain.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE provider = $1 AND provider_user_id = $2`
	user, err := scanUser(r.db.QueryRow(ctx, query, provider, providerUserID))
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by social: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	query := `INSERT INTO users (id, provider, provider_user_id, email, nickname, avatar_url, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + selectUserColumns
	created, err := scanUser(r.db.QueryRow(ctx, query,
		r.node.Generate().Int64(),
		user.Provider,
		user.ProviderUserID,
		user.Email,
		user.Nickname,
		user.AvatarURL,
		user.IsActive,
	))
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, user domain.User) (domain.User, error) {
	query := `UPDATE users
SET email = $2, nickname = $3, avatar_url = $4, is_active = $5, updated_at = now()
WHERE id = $1
RETURNING ` + selectUserColumns
	updated, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Nickname,
		user.AvatarURL,
		user.IsActive,
	))
	if err != nil {
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	return updated, nil
}

func (r *PostgresUserRepo) Deactivate(ctx context.Context, userID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deactivate user: %w", pgx.ErrNoRows)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.Provider,
		&u.ProviderUserID,
		&u.Email,
		&u.Nickname,
		&u.AvatarURL,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// PostgresSessionRepo implements RefreshSessionRepository on pgx. The
// user_id unique constraint plus ON CONFLICT upsert guarantees at most one
// row per user with single-statement replace semantics.
type PostgresSessionRepo struct {
	db *pgxpool.Pool
}

func NewPostgresSessionRepo(pool *pgxpool.Pool) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: pool}
}

func (r *PostgresSessionRepo) Upsert(ctx context.Context, session domain.RefreshSession) error {
	query := `INSERT INTO refresh_sessions (user_id, token_hash, token_id, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE
SET token_hash = EXCLUDED.token_hash, token_id = EXCLUDED.token_id, expires_at = EXCLUDED.expires_at`
	if _, err := r.db.Exec(ctx, query, session.UserID, session.TokenHash, session.TokenID, session.ExpiresAt); err != nil {
		return fmt.Errorf("upsert refresh session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepo) FindByUserID(ctx context.Context, userID int64) (*domain.RefreshSession, error) {
	query := `SELECT user_id, token_hash, token_id, expires_at FROM refresh_sessions WHERE user_id = $1`
	var s domain.RefreshSession
	err := r.db.QueryRow(ctx, query, userID).Scan(&s.UserID, &s.TokenHash, &s.TokenID, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find refresh session: %w", err)
	}
	return &s, nil
}

func (r *PostgresSessionRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete refresh session: %w", err)
	}
	return nil
}
