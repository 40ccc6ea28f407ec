package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, phone, COALESCE(name, ''), status, strikes, created_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Phone, &u.Name, &u.Status, &u.Strikes, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, faults.ErrNotFound
		}
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// GetOrCreateByPhone creates the user lazily on first contact. An existing
// row keeps its name unless it was empty and a name is now known.
func (r *UserRepo) GetOrCreateByPhone(ctx context.Context, phone, name string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(phone) == "" {
		return model.User{}, fmt.Errorf("phone is required")
	}

	return scanUser(r.pool.QueryRow(ctx, `
INSERT INTO users (phone, name, status, strikes, created_at)
VALUES ($1, NULLIF($2, ''), 'active', 0, NOW())
ON CONFLICT (phone) DO UPDATE SET
	name = COALESCE(users.name, NULLIF($2, ''))
RETURNING `+userColumns, strings.TrimSpace(phone), strings.TrimSpace(name)))
}

func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	return scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE phone = $1
`, strings.TrimSpace(phone)))
}

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return model.User{}, faults.ErrNotFound
	}

	return scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1
`, userID))
}

func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users
ORDER BY id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
