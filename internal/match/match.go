package match

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/models"
)

// Domain errors surfaced to the API boundary
var (
	ErrNotFound             = errors.New("match not found")
	ErrMatchFull            = errors.New("match is full")
	ErrNotJoinable          = errors.New("registration is closed")
	ErrAlreadyJoined        = errors.New("player already joined this match")
	ErrOwnChallenge         = errors.New("creator cannot join own challenge")
	ErrOperatorJoin         = errors.New("operators cannot join challenges")
	ErrLevelTooLow          = errors.New("player level below match requirement")
	ErrNotParticipant       = errors.New("player has no slot in this match")
	ErrLeaveWindowClosed    = errors.New("too close to match start to leave")
	ErrStateTransition      = errors.New("illegal match state transition")
	ErrNotChallenge         = errors.New("match is not a challenge")
	ErrNotCreator           = errors.New("only the challenge creator may do this")
	ErrChallengeHasOpponent = errors.New("challenge already has an opponent")
	ErrAlreadyVerified      = errors.New("result already verified for this slot")
	ErrPrizeCapExceeded     = errors.New("declared prizes exceed the match prize cap")
	ErrSlotTaken            = errors.New("requested slot number is taken")
)

const matchColumns = `
	id, title, game_type, match_type, scheduled_at, registration_close_at,
	credentials_reveal_at, max_slots, filled_slots, entry_fee, prize_pool,
	per_kill_prize, prize_distribution, rule_id, min_level, room_id,
	room_password, room_visible, status, is_challenge, creation_fee,
	created_by, cancel_reason, cancelled_by, cancelled_at, refunds_processed,
	results, created_at, updated_at`

const slotColumns = `
	id, match_id, player_id, slot_number, in_game_name, in_game_id, kills,
	position, prize_won, prize_distributed, screenshot_url, screenshot_hash,
	screenshot_uploaded_at, screenshot_status, reject_reason, created_at`

// lockMatch loads a match row FOR UPDATE. Every mutation of match state
// or slots goes through this lock so capacity check-then-act sequences
// serialize per match.
func lockMatch(tx *sqlx.Tx, matchID int) (*models.Match, error) {
	var m models.Match
	err := tx.Get(&m, `SELECT `+matchColumns+` FROM matches WHERE id=$1 FOR UPDATE`, matchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock match %d: %w", matchID, err)
	}
	return &m, nil
}

// Get loads a match without locking
func Get(db *sqlx.DB, matchID int) (*models.Match, error) {
	var m models.Match
	err := db.Get(&m, `SELECT `+matchColumns+` FROM matches WHERE id=$1`, matchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}
	return &m, nil
}

// List returns non-terminal matches soonest-first
func List(db *sqlx.DB, limit, offset int) ([]models.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var matches []models.Match
	err := db.Select(&matches, `
		SELECT `+matchColumns+` FROM matches
		WHERE status NOT IN ($1, $2)
		ORDER BY scheduled_at ASC
		LIMIT $3 OFFSET $4
	`, models.StatusCompleted, models.StatusCancelled, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

// Slots returns a match's slots ordered by slot number
func Slots(db *sqlx.DB, matchID int) ([]models.Slot, error) {
	var slots []models.Slot
	err := db.Select(&slots, `SELECT `+slotColumns+` FROM slots WHERE match_id=$1 ORDER BY slot_number`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load slots for match %d: %w", matchID, err)
	}
	return slots, nil
}

// SlotFor returns a player's slot in a match, or ErrNotParticipant
func SlotFor(db *sqlx.DB, matchID, playerID int) (*models.Slot, error) {
	var s models.Slot
	err := db.Get(&s, `SELECT `+slotColumns+` FROM slots WHERE match_id=$1 AND player_id=$2`, matchID, playerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotParticipant
		}
		return nil, fmt.Errorf("failed to load slot: %w", err)
	}
	return &s, nil
}

func slotsInTx(tx *sqlx.Tx, matchID int) ([]models.Slot, error) {
	var slots []models.Slot
	err := tx.Select(&slots, `SELECT `+slotColumns+` FROM slots WHERE match_id=$1 ORDER BY slot_number`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load slots for match %d: %w", matchID, err)
	}
	return slots, nil
}

func setStatus(tx *sqlx.Tx, m *models.Match, to string) error {
	if !CanTransition(m.Status, to) {
		return fmt.Errorf("%s -> %s: %w", m.Status, to, ErrStateTransition)
	}
	if _, err := tx.Exec(`UPDATE matches SET status=$1, updated_at=NOW() WHERE id=$2`, to, m.ID); err != nil {
		return fmt.Errorf("failed to set match %d status: %w", m.ID, err)
	}
	m.Status = to
	return nil
}
