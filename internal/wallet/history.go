package wallet

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/models"
)

// History returns a player's ledger rows newest-first, optionally bounded
// by a date range
func History(db *sqlx.DB, playerID int, from, to *time.Time, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, player_id, direction, category, amount, balance_before, balance_after,
		       reference_type, reference_id, status, created_at
		FROM transactions
		WHERE player_id = $1`
	args := []interface{}{playerID}

	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var txns []models.Transaction
	if err := db.Select(&txns, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch transaction history: %w", err)
	}
	return txns, nil
}

// DailySummary is one day's aggregate per category and direction
type DailySummary struct {
	Day       time.Time `db:"day" json:"day"`
	Category  string    `db:"category" json:"category"`
	Direction string    `db:"direction" json:"direction"`
	Total     int64     `db:"total" json:"total"`
	Count     int       `db:"count" json:"count"`
}

// summaryDays bounds the trailing-window length; out-of-range values
// fall back to the default. Kept in step with the API's accepted range.
func summaryDays(days int) int {
	if days <= 0 || days > 365 {
		return 30
	}
	return days
}

// Summarize aggregates a player's ledger by day and category over the
// given number of trailing days
func Summarize(db *sqlx.DB, playerID int, days int) ([]DailySummary, error) {
	days = summaryDays(days)

	var rows []DailySummary
	err := db.Select(&rows, `
		SELECT date_trunc('day', created_at) AS day,
		       category, direction,
		       SUM(amount) AS total, COUNT(*) AS count
		FROM transactions
		WHERE player_id = $1 AND created_at >= NOW() - ($2 || ' days')::interval
		GROUP BY day, category, direction
		ORDER BY day DESC, category
	`, playerID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	return rows, nil
}
