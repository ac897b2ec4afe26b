package match

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/models"
	"github.com/playarena/backend/internal/notify"
	"github.com/playarena/backend/internal/wallet"
)

// JoinParams carries the joining player's identity inside the game
type JoinParams struct {
	InGameID   string
	InGameName string
	SlotNumber int // optional explicit slot, honored for 1v1 challenges
}

// JoinResult is what a successful join returns to the player
type JoinResult struct {
	SlotNumber   int    `json:"slot_number"`
	RoomRevealed bool   `json:"room_revealed"`
	RoomID       string `json:"room_id,omitempty"`
	RoomPassword string `json:"room_password,omitempty"`
}

// Join takes a slot for the player: debits the entry fee and appends the
// slot as one transaction. The match row lock makes two simultaneous
// joins for the last slot serialize; the loser sees ErrMatchFull.
func Join(db *sqlx.DB, cfg *config.Config, matchID, playerID int, p JoinParams, now time.Time) (*JoinResult, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin join tx: %w", err)
	}
	defer tx.Rollback()

	m, err := lockMatch(tx, matchID)
	if err != nil {
		return nil, err
	}

	if !IsJoinable(m, now) {
		if m.FilledSlots >= m.MaxSlots {
			return nil, ErrMatchFull
		}
		return nil, ErrNotJoinable
	}

	var player struct {
		Role  string `db:"role"`
		Level int    `db:"level"`
	}
	if err := tx.Get(&player, `SELECT role, level FROM players WHERE id=$1`, playerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("player %d not found", playerID)
		}
		return nil, fmt.Errorf("failed to load player %d: %w", playerID, err)
	}

	if m.IsChallenge {
		if m.CreatedBy.Valid && int(m.CreatedBy.Int64) == playerID {
			return nil, ErrOwnChallenge
		}
		if player.Role == models.RoleOperator {
			return nil, ErrOperatorJoin
		}
	}
	if player.Level < m.MinLevel {
		return nil, ErrLevelTooLow
	}

	var joined int
	if err := tx.Get(&joined, `SELECT COUNT(*) FROM slots WHERE match_id=$1 AND player_id=$2`, matchID, playerID); err != nil {
		return nil, fmt.Errorf("failed to check existing slot: %w", err)
	}
	if joined > 0 {
		return nil, ErrAlreadyJoined
	}

	// Entry fee and slot append commit or fail together
	if m.EntryFee > 0 {
		_, err = wallet.Record(tx, playerID, models.DirectionDebit, models.CategoryMatchEntry,
			m.EntryFee, models.ReferenceMatch, sql.NullInt64{Int64: int64(matchID), Valid: true})
		if err != nil {
			return nil, err
		}
	}

	slotNumber, err := nextSlotNumber(tx, m, p.SlotNumber)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		INSERT INTO slots (match_id, player_id, slot_number, in_game_name, in_game_id, screenshot_status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
	`, matchID, playerID, slotNumber, p.InGameName, p.InGameID, models.ScreenshotNotUploaded)
	if err != nil {
		return nil, fmt.Errorf("failed to insert slot: %w", err)
	}

	filled := m.FilledSlots + 1
	nowFull := filled == m.MaxSlots
	if nowFull {
		// Filling the last slot reveals the room in the same write
		_, err = tx.Exec(`
			UPDATE matches SET filled_slots=$1, room_visible=TRUE, status=$2, updated_at=NOW()
			WHERE id=$3
		`, filled, models.StatusRoomRevealed, matchID)
	} else {
		_, err = tx.Exec(`UPDATE matches SET filled_slots=$1, updated_at=NOW() WHERE id=$2`, filled, matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update match capacity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit join: %w", err)
	}

	log.Printf("[MATCH] Player %d joined match %d slot=%d (%d/%d)", playerID, matchID, slotNumber, filled, m.MaxSlots)

	notify.Publish(context.Background(), "match_events", map[string]interface{}{
		"type":         "slot_filled",
		"match_id":     matchID,
		"player_id":    playerID,
		"filled_slots": filled,
		"max_slots":    m.MaxSlots,
	})
	if nowFull {
		notify.Publish(context.Background(), "match_events", map[string]interface{}{
			"type":     "room_revealed",
			"match_id": matchID,
		})
	}

	res := &JoinResult{SlotNumber: slotNumber, RoomRevealed: nowFull || m.RoomVisible}
	if res.RoomRevealed {
		res.RoomID = m.RoomID.String
		res.RoomPassword = m.RoomPassword.String
	}
	return res, nil
}

// nextSlotNumber finds the slot number to assign. Challenges may request
// an explicit slot; everyone else gets the next contiguous number.
func nextSlotNumber(tx *sqlx.Tx, m *models.Match, requested int) (int, error) {
	if requested > 0 && m.IsChallenge {
		if requested > m.MaxSlots {
			return 0, ErrSlotTaken
		}
		var taken int
		if err := tx.Get(&taken, `SELECT COUNT(*) FROM slots WHERE match_id=$1 AND slot_number=$2`, m.ID, requested); err != nil {
			return 0, fmt.Errorf("failed to check slot number: %w", err)
		}
		if taken > 0 {
			return 0, ErrSlotTaken
		}
		return requested, nil
	}

	var max sql.NullInt64
	if err := tx.Get(&max, `SELECT MAX(slot_number) FROM slots WHERE match_id=$1`, m.ID); err != nil {
		return 0, fmt.Errorf("failed to find next slot number: %w", err)
	}
	return int(max.Int64) + 1, nil
}

// Leave removes the player's slot and refunds the entry fee minus the
// cancellation-fee percentage. Only allowed well before the match starts.
func Leave(db *sqlx.DB, cfg *config.Config, matchID, playerID int, now time.Time) (int64, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin leave tx: %w", err)
	}
	defer tx.Rollback()

	m, err := lockMatch(tx, matchID)
	if err != nil {
		return 0, err
	}

	if m.Status != models.StatusUpcoming && m.Status != models.StatusRegistrationOpen {
		return 0, fmt.Errorf("cannot leave match in status %s: %w", m.Status, ErrStateTransition)
	}
	cutoff := m.ScheduledAt.Add(-time.Duration(cfg.LeaveCutoffMinutes) * time.Minute)
	if now.After(cutoff) {
		return 0, ErrLeaveWindowClosed
	}

	var slot models.Slot
	err = tx.Get(&slot, `SELECT `+slotColumns+` FROM slots WHERE match_id=$1 AND player_id=$2`, matchID, playerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotParticipant
		}
		return 0, fmt.Errorf("failed to load slot: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM slots WHERE id=$1`, slot.ID); err != nil {
		return 0, fmt.Errorf("failed to delete slot: %w", err)
	}
	// Keep slot numbers contiguous
	if _, err := tx.Exec(`UPDATE slots SET slot_number=slot_number-1 WHERE match_id=$1 AND slot_number>$2`, matchID, slot.SlotNumber); err != nil {
		return 0, fmt.Errorf("failed to renumber slots: %w", err)
	}
	if _, err := tx.Exec(`UPDATE matches SET filled_slots=filled_slots-1, updated_at=NOW() WHERE id=$1`, matchID); err != nil {
		return 0, fmt.Errorf("failed to decrement filled slots: %w", err)
	}

	refund := LeaveRefund(m.EntryFee, cfg.LeaveFeePercent)
	if refund > 0 {
		_, err = wallet.Record(tx, playerID, models.DirectionCredit, models.CategoryMatchRefund,
			refund, models.ReferenceMatch, sql.NullInt64{Int64: int64(matchID), Valid: true})
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit leave: %w", err)
	}

	log.Printf("[MATCH] Player %d left match %d, refunded %d of %d", playerID, matchID, refund, m.EntryFee)
	return refund, nil
}

// Cancel marks the match cancelled and refunds every participant in full.
// Marking and refunding are separate transactions: each participant's
// refund stands alone, so one failure never blocks the others, and a
// retry skips refunds that already have a ledger row.
func Cancel(db *sqlx.DB, matchID int, reason, actor string, auto bool) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin cancel tx: %w", err)
	}
	defer tx.Rollback()

	m, err := lockMatch(tx, matchID)
	if err != nil {
		return err
	}

	alreadyCancelled := m.Status == models.StatusCancelled
	if alreadyCancelled && m.RefundsProcessed {
		return fmt.Errorf("match %d already cancelled: %w", matchID, ErrStateTransition)
	}
	if m.Status == models.StatusCompleted {
		return fmt.Errorf("cannot cancel completed match %d: %w", matchID, ErrStateTransition)
	}

	if !alreadyCancelled {
		_, err = tx.Exec(`
			UPDATE matches
			SET status=$1, cancel_reason=$2, cancelled_by=$3, cancelled_at=NOW(), updated_at=NOW()
			WHERE id=$4
		`, models.StatusCancelled, reason, actor, matchID)
		if err != nil {
			return fmt.Errorf("failed to mark match %d cancelled: %w", matchID, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit cancellation of match %d: %w", matchID, err)
		}
		log.Printf("[MATCH] Match %d cancelled by %s: %s", matchID, actor, reason)
	} else {
		// Re-entering to finish refunds from an earlier partial failure
		tx.Rollback()
		log.Printf("[MATCH] Resuming refunds for cancelled match %d", matchID)
	}

	failed := processRefunds(db, m, auto)

	if failed == 0 {
		if _, err := db.Exec(`UPDATE matches SET refunds_processed=TRUE, updated_at=NOW() WHERE id=$1`, matchID); err != nil {
			return fmt.Errorf("failed to flag refunds processed for match %d: %w", matchID, err)
		}
	}

	notify.Publish(context.Background(), "match_events", map[string]interface{}{
		"type":     "match_cancelled",
		"match_id": matchID,
		"reason":   reason,
	})

	if failed > 0 {
		return fmt.Errorf("match %d cancelled but %d refunds failed; re-run cancel to retry", matchID, failed)
	}
	return nil
}

// processRefunds issues one independent refund transaction per
// participant (and the escrow refund for challenges). Returns how many
// failed.
func processRefunds(db *sqlx.DB, m *models.Match, auto bool) int {
	slots, err := Slots(db, m.ID)
	if err != nil {
		log.Printf("[MATCH] Failed to load slots for refunds on match %d: %v", m.ID, err)
		return 1
	}

	category := models.CategoryMatchRefund
	if auto {
		category = models.CategoryMatchAutoRefund
	}

	failed := 0
	for _, slot := range slots {
		// Challenge creators funded the escrow, not an entry fee
		if m.IsChallenge && m.CreatedBy.Valid && slot.PlayerID == int(m.CreatedBy.Int64) {
			continue
		}
		if m.EntryFee == 0 {
			continue
		}
		if err := refundOnce(db, slot.PlayerID, category, m.EntryFee, m.ID); err != nil {
			log.Printf("[MATCH] Refund failed for player %d on match %d: %v", slot.PlayerID, m.ID, err)
			failed++
		}
	}

	if m.IsChallenge && m.CreatedBy.Valid {
		creator := int(m.CreatedBy.Int64)
		if m.PrizePool > 0 {
			if err := refundOnce(db, creator, models.CategoryEscrowRefund, m.PrizePool, m.ID); err != nil {
				log.Printf("[MATCH] Escrow refund failed for creator %d on match %d: %v", creator, m.ID, err)
				failed++
			}
		}
		if m.CreationFee > 0 {
			if err := refundOnce(db, creator, models.CategoryCreationFeeRefund, m.CreationFee, m.ID); err != nil {
				log.Printf("[MATCH] Creation fee refund failed for creator %d on match %d: %v", creator, m.ID, err)
				failed++
			}
		}
	}

	return failed
}

// refundOnce credits a refund in its own transaction, skipping if a
// ledger row for this player/match already exists. Entry refunds written
// by the sweeper carry a different category than operator-issued ones,
// so the guard checks both; paying twice because the retry came down the
// other path would break the ledger.
func refundOnce(db *sqlx.DB, playerID int, category string, amount int64, matchID int) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin refund tx: %w", err)
	}
	defer tx.Rollback()

	guard := []string{category}
	if category == models.CategoryMatchRefund || category == models.CategoryMatchAutoRefund {
		guard = []string{models.CategoryMatchRefund, models.CategoryMatchAutoRefund}
	}
	exists, err := wallet.HasLedgerEntry(tx, playerID, guard, models.ReferenceMatch, matchID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = wallet.Record(tx, playerID, models.DirectionCredit, category,
		amount, models.ReferenceMatch, sql.NullInt64{Int64: int64(matchID), Valid: true})
	if err != nil {
		return err
	}

	return tx.Commit()
}
