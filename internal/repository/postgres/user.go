package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"qrwatcher/internal/domain"
)

// UserRepo implements repository.UserRepository
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user with the given state.
// It returns false if the user already exists.
func (r *UserRepo) Create(ctx context.Context, tgID int64, state domain.UserState) (bool, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("encode user state: %w", err)
	}

	query := `
		INSERT INTO users (tg_id, data)
		VALUES ($1, $2)
		ON CONFLICT (tg_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, tgID, data)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetOrCreate returns the user, creating it with default state if needed
func (r *UserRepo) GetOrCreate(ctx context.Context, tgID int64) (*domain.User, error) {
	if _, err := r.Create(ctx, tgID, domain.NewUserState()); err != nil {
		return nil, err
	}

	user, err := r.GetByTgID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// GetByTgID returns a user, or nil if it does not exist
func (r *UserRepo) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	query := `SELECT tg_id, data, version, created_at FROM users WHERE tg_id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, tgID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateState replaces the state document if the stored version still matches
func (r *UserRepo) UpdateState(ctx context.Context, tgID int64, state domain.UserState, version int64) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode user state: %w", err)
	}

	query := `
		UPDATE users
		SET data = $1, version = version + 1
		WHERE tg_id = $2 AND version = $3
	`
	res, err := r.db.ExecContext(ctx, query, data, tgID, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

// ListLinkedTo returns users linked to the bot
func (r *UserRepo) ListLinkedTo(ctx context.Context, botID string) ([]domain.User, error) {
	query := `
		SELECT u.tg_id, u.data, u.version, u.created_at
		FROM users u
		JOIN users_bots ub ON ub.user_id = u.tg_id
		WHERE ub.bot_id = $1
		ORDER BY u.tg_id
	`
	rows, err := r.db.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	return users, rows.Err()
}

// ListBotsOf returns bots linked to the user
func (r *UserRepo) ListBotsOf(ctx context.Context, tgID int64) ([]domain.Bot, error) {
	query := `
		SELECT ` + botColumns + `
		FROM bots b
		JOIN users_bots ub ON ub.bot_id = b.id
		WHERE ub.user_id = $1
		ORDER BY ub.created_at
	`
	return queryBots(ctx, r.db, query, tgID)
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var data []byte
	if err := row.Scan(&u.TgID, &data, &u.Version, &u.CreatedAt); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &u.State); err != nil {
			return nil, fmt.Errorf("user %d: %w", u.TgID, err)
		}
	}
	return &u, nil
}
