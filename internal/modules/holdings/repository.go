// Package holdings provides holdings persistence and the holdings management service.
package holdings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

const holdingColumns = `id, user_id, symbol, name, category, quantity, buy_price, current_price, sector, created_at, updated_at`

// Repository handles holdings database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new holdings repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

// ListHoldings returns holdings matching the filter, newest first
func (r *Repository) ListHoldings(ctx context.Context, filter domain.HoldingFilter) ([]domain.Holding, error) {
	var (
		where []string
		args  []any
	)

	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			placeholders[i] = "?"
			args = append(args, string(c))
		}
		where = append(where, "category IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := "SELECT " + holdingColumns + " FROM holdings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := []domain.Holding{}
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// UpdateCurrentPrice sets a holding's current price and updated timestamp
func (r *Repository) UpdateCurrentPrice(ctx context.Context, id string, price float64, at time.Time) error {
	if price <= 0 {
		return fmt.Errorf("%w: current_price must be positive", domain.ErrInvalidHolding)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE holdings SET current_price = ?, updated_at = ? WHERE id = ?",
		price, at.Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update current price for %s: %w", id, err)
	}

	return requireAffected(result, id)
}

// Create inserts a new holding
func (r *Repository) Create(ctx context.Context, h domain.Holding) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO holdings ("+holdingColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		h.ID, h.UserID, h.Symbol, h.Name, string(h.Category),
		h.Quantity, h.BuyPrice, h.CurrentPrice, nullString(h.Sector),
		h.CreatedAt.Unix(), h.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}

	r.log.Debug().Str("id", h.ID).Str("symbol", h.Symbol).Msg("Holding created")
	return nil
}

// GetByID returns a holding owned by userID
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*domain.Holding, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+holdingColumns+" FROM holdings WHERE id = ? AND user_id = ?",
		id, userID,
	)

	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrHoldingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding %s: %w", id, err)
	}

	return &h, nil
}

// Update overwrites every mutable field of a holding owned by h.UserID
func (r *Repository) Update(ctx context.Context, h domain.Holding) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE holdings
		SET symbol = ?, name = ?, category = ?, quantity = ?, buy_price = ?,
		    current_price = ?, sector = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		h.Symbol, h.Name, string(h.Category), h.Quantity, h.BuyPrice,
		h.CurrentPrice, nullString(h.Sector), h.UpdatedAt.Unix(),
		h.ID, h.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding %s: %w", h.ID, err)
	}

	return requireAffected(result, h.ID)
}

// Delete removes a holding owned by userID
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM holdings WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete holding %s: %w", id, err)
	}

	return requireAffected(result, id)
}

// CountByUser returns the number of holdings per user
func (r *Repository) CountByUser(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT user_id, COUNT(*) FROM holdings GROUP BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to count holdings: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var userID string
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan holding count: %w", err)
		}
		counts[userID] = n
	}

	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(s rowScanner) (domain.Holding, error) {
	var (
		h         domain.Holding
		category  string
		sector    sql.NullString
		createdAt int64
		updatedAt int64
	)

	if err := s.Scan(
		&h.ID, &h.UserID, &h.Symbol, &h.Name, &category,
		&h.Quantity, &h.BuyPrice, &h.CurrentPrice, &sector,
		&createdAt, &updatedAt,
	); err != nil {
		return domain.Holding{}, err
	}

	h.Category = domain.InstrumentCategory(category)
	if sector.Valid {
		s := sector.String
		h.Sector = &s
	}
	h.CreatedAt = time.Unix(createdAt, 0).UTC()
	h.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return h, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrHoldingNotFound
	}
	return nil
}
