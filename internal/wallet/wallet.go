package wallet

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playarena/backend/internal/models"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the locked balance
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount is returned for negative amounts
	ErrInvalidAmount = errors.New("amount must be non-negative")
)

// Record appends one ledger row and moves the player's balance inside the
// caller's transaction. The player row is locked FOR UPDATE so two
// concurrent movements for the same player serialize; a debit that would
// take the balance negative is rejected before anything is written.
func Record(tx *sqlx.Tx, playerID int, direction, category string, amount int64, refType string, refID sql.NullInt64) (*models.Transaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx is nil")
	}
	if amount < 0 {
		return nil, ErrInvalidAmount
	}

	var before int64
	if err := tx.Get(&before, `SELECT balance FROM players WHERE id=$1 FOR UPDATE`, playerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("player %d not found", playerID)
		}
		return nil, fmt.Errorf("failed to lock balance for player %d: %w", playerID, err)
	}

	var after int64
	switch direction {
	case models.DirectionCredit:
		after = before + amount
	case models.DirectionDebit:
		if amount > before {
			return nil, fmt.Errorf("debit %d exceeds balance %d for player %d: %w", amount, before, playerID, ErrInsufficientFunds)
		}
		after = before - amount
	default:
		return nil, fmt.Errorf("unknown direction %q", direction)
	}

	if _, err := tx.Exec(`UPDATE players SET balance=$1 WHERE id=$2`, after, playerID); err != nil {
		return nil, fmt.Errorf("failed to update balance for player %d: %w", playerID, err)
	}

	txn := &models.Transaction{
		PlayerID:      playerID,
		Direction:     direction,
		Category:      category,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		ReferenceType: refType,
		ReferenceID:   refID,
		Status:        "completed",
	}
	err := tx.QueryRowx(`
		INSERT INTO transactions (player_id, direction, category, amount, balance_before, balance_after, reference_type, reference_id, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
		RETURNING id, created_at
	`, playerID, direction, category, amount, before, after, refType, refID, txn.Status).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	log.Printf("[WALLET] %s %s player=%d amount=%d balance=%d->%d ref=%s/%v",
		direction, category, playerID, amount, before, after, refType, refID.Int64)

	return txn, nil
}

// Balance returns the player's current wallet balance
func Balance(db *sqlx.DB, playerID int) (int64, error) {
	var balance int64
	if err := db.Get(&balance, `SELECT balance FROM players WHERE id=$1`, playerID); err != nil {
		return 0, fmt.Errorf("failed to read balance for player %d: %w", playerID, err)
	}
	return balance, nil
}

// HasLedgerEntry reports whether a ledger row already exists for the
// given player and reference under any of the categories. Bulk refund
// paths use it to stay idempotent across retries; the caller passes
// every category the same refund could have been written under.
func HasLedgerEntry(tx *sqlx.Tx, playerID int, categories []string, refType string, refID int) (bool, error) {
	var count int
	err := tx.Get(&count, `
		SELECT COUNT(*) FROM transactions
		WHERE player_id=$1 AND category = ANY($2) AND reference_type=$3 AND reference_id=$4
	`, playerID, pq.Array(categories), refType, refID)
	if err != nil {
		return false, fmt.Errorf("failed to check ledger entry: %w", err)
	}
	return count > 0, nil
}
