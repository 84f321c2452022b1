package postgres

import (
	"context"
	"database/sql"
)

// LinkRepo implements repository.LinkRepository
type LinkRepo struct {
	db *sql.DB
}

// NewLinkRepo creates a new link repository
func NewLinkRepo(db *sql.DB) *LinkRepo {
	return &LinkRepo{db: db}
}

// Link associates a user with a bot.
// Returns false if the link already exists or either side is unknown.
func (r *LinkRepo) Link(ctx context.Context, userID int64, botID string) (bool, error) {
	query := `
		INSERT INTO users_bots (user_id, bot_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, bot_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, userID, botID)
	if isPgError(err, foreignKeyViolation) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Unlink removes the association, reporting whether a row was removed
func (r *LinkRepo) Unlink(ctx context.Context, userID int64, botID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users_bots WHERE user_id = $1 AND bot_id = $2`, userID, botID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
