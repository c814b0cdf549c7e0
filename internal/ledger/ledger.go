// Package ledger provides award persistence implementations.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
)

var (
	ErrNotFound     = errors.New("award not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLLedger implements domain.Ledger using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLLedger struct {
	db     *sql.DB
	driver string
}

// New creates a ledger based on configuration.
func New(cfg domain.LedgerConfig) (domain.Ledger, error) {
	if cfg.Driver == "redis" {
		return NewRedisLedger(cfg)
	}

	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	l := &SQLLedger{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return l, nil
}

func (l *SQLLedger) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := l.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the award recorded for a user on a day.
func (l *SQLLedger) Find(ctx context.Context, date string, userID string) (*domain.Award, error) {
	if date == "" || userID == "" {
		return nil, fmt.Errorf("%w: date and userID are required", ErrInvalidInput)
	}

	query := `
		SELECT award_date, user_id, box_type, box_name, rarity, karma, created_at
		FROM awards
		WHERE award_date = ? AND user_id = ?
	`

	var a domain.Award
	err := l.db.QueryRowContext(ctx, l.rebind(query), date, userID).Scan(
		&a.Date, &a.UserID, &a.BoxType, &a.BoxName, &a.Rarity, &a.Karma, &a.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// TryCreate records the award unless one already exists for the same
// day and user. The conditional insert is a single atomic statement;
// the primary key on (award_date, user_id) is the enforcement point
// for the one-reward-per-day guarantee, so concurrent callers cannot
// both create.
func (l *SQLLedger) TryCreate(ctx context.Context, award *domain.Award) (bool, error) {
	if award == nil || award.Date == "" || award.UserID == "" {
		return false, fmt.Errorf("%w: date and userID are required", ErrInvalidInput)
	}

	createdAt := award.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO awards (award_date, user_id, box_type, box_name, rarity, karma, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(award_date, user_id) DO NOTHING
	`

	result, err := l.db.ExecContext(ctx, l.rebind(query),
		award.Date, award.UserID, award.BoxType, award.BoxName,
		award.Rarity, award.Karma, createdAt,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ListByDate returns awards recorded on a day, optionally filtered by
// box type, ordered by user ID.
func (l *SQLLedger) ListByDate(ctx context.Context, date string, boxType string) ([]*domain.Award, error) {
	if date == "" {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	query := `
		SELECT award_date, user_id, box_type, box_name, rarity, karma, created_at
		FROM awards
		WHERE award_date = ?
	`
	args := []any{date}

	if boxType != "" {
		query += " AND box_type = ?"
		args = append(args, boxType)
	}
	query += " ORDER BY user_id"

	rows, err := l.db.QueryContext(ctx, l.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var awards []*domain.Award
	for rows.Next() {
		var a domain.Award
		if err := rows.Scan(
			&a.Date, &a.UserID, &a.BoxType, &a.BoxName, &a.Rarity, &a.Karma, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		awards = append(awards, &a)
	}

	return awards, rows.Err()
}

// DeleteOlderThan removes awards dated strictly before cutoff.
// YYYY-MM-DD strings compare correctly as text.
func (l *SQLLedger) DeleteOlderThan(ctx context.Context, cutoff string) (int64, error) {
	if cutoff == "" {
		return 0, fmt.Errorf("%w: cutoff is required", ErrInvalidInput)
	}

	result, err := l.db.ExecContext(ctx, l.rebind(`DELETE FROM awards WHERE award_date < ?`), cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Ping checks database connectivity.
func (l *SQLLedger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// Close closes the database connection.
func (l *SQLLedger) Close() error {
	return l.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (l *SQLLedger) rebind(query string) string {
	if l.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
