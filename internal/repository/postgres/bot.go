package postgres

import (
	"context"
	"database/sql"
	"errors"

	"qrwatcher/internal/domain"

	"github.com/lib/pq"
)

// Postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const botColumns = `b.id, b.name, b.description, b.current_qr, b.authed, b.created_at`

// BotRepo implements repository.BotRepository
type BotRepo struct {
	db *sql.DB
}

// NewBotRepo creates a new bot repository
func NewBotRepo(db *sql.DB) *BotRepo {
	return &BotRepo{db: db}
}

// Create inserts a new bot
func (r *BotRepo) Create(ctx context.Context, id, name, description string) (*domain.Bot, error) {
	query := `
		INSERT INTO bots (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	bot := &domain.Bot{ID: id, Name: name, Description: description}
	err := r.db.QueryRowContext(ctx, query, id, name, description).Scan(&bot.CreatedAt)
	if isPgError(err, uniqueViolation) {
		return nil, domain.ErrDuplicateBot
	}
	if err != nil {
		return nil, err
	}
	return bot, nil
}

// Get returns a bot by id, or nil if it does not exist
func (r *BotRepo) Get(ctx context.Context, id string) (*domain.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots b WHERE b.id = $1`

	bot, err := scanBot(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bot, nil
}

// SetQR stores the current QR payload
func (r *BotRepo) SetQR(ctx context.Context, id, qr string) (bool, error) {
	return r.exec(ctx, `UPDATE bots SET current_qr = $1 WHERE id = $2`, qr, id)
}

// SetAuthed stores the authentication flag
func (r *BotRepo) SetAuthed(ctx context.Context, id string, authed bool) (bool, error) {
	return r.exec(ctx, `UPDATE bots SET authed = $1 WHERE id = $2`, authed, id)
}

// ClearQR drops the stored QR payload
func (r *BotRepo) ClearQR(ctx context.Context, id string) (bool, error) {
	return r.exec(ctx, `UPDATE bots SET current_qr = NULL WHERE id = $1`, id)
}

// ListUnlinked returns bots that are not linked to any user
func (r *BotRepo) ListUnlinked(ctx context.Context) ([]domain.Bot, error) {
	query := `
		SELECT ` + botColumns + `
		FROM bots b
		LEFT JOIN users_bots ub ON ub.bot_id = b.id
		WHERE ub.user_id IS NULL
		ORDER BY b.created_at
	`
	return queryBots(ctx, r.db, query)
}

// ListAuthed returns bots that are currently authenticated
func (r *BotRepo) ListAuthed(ctx context.Context) ([]domain.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots b WHERE b.authed = TRUE ORDER BY b.created_at`
	return queryBots(ctx, r.db, query)
}

func (r *BotRepo) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBot(row rowScanner) (*domain.Bot, error) {
	var b domain.Bot
	var qr sql.NullString
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &qr, &b.Authed, &b.CreatedAt); err != nil {
		return nil, err
	}
	if qr.Valid {
		b.CurrentQR = &qr.String
	}
	return &b, nil
}

func queryBots(ctx context.Context, db *sql.DB, query string, args ...any) ([]domain.Bot, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []domain.Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		bots = append(bots, *b)
	}

	return bots, rows.Err()
}

func isPgError(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}
