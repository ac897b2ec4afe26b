package match

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/models"
)

// ErrValidation covers malformed creation input
var ErrValidation = errors.New("invalid match parameters")

// CreateParams describes a standard match to create
type CreateParams struct {
	Title             string
	GameType          string
	MatchType         string
	ScheduledAt       time.Time
	MaxSlots          int
	EntryFee          int64
	PrizePool         int64
	PerKillPrize      int64
	PrizeDistribution models.PrizeTable
	MinLevel          int
	RoomID            string
	RoomPassword      string
}

func (p *CreateParams) validate(cfg *config.Config, now time.Time) error {
	if p.Title == "" || p.GameType == "" {
		return fmt.Errorf("title and game_type required: %w", ErrValidation)
	}
	if p.MaxSlots < 2 || p.MaxSlots > cfg.MaxMatchSlots {
		return fmt.Errorf("max_slots must be 2..%d: %w", cfg.MaxMatchSlots, ErrValidation)
	}
	if p.EntryFee < 0 || p.PrizePool < 0 || p.PerKillPrize < 0 {
		return fmt.Errorf("fees must be non-negative: %w", ErrValidation)
	}
	if !p.ScheduledAt.After(now) {
		return fmt.Errorf("scheduled_at must be in the future: %w", ErrValidation)
	}
	return nil
}

// Create inserts a standard (operator-funded) match. Derived time fields
// are computed here, once.
func Create(db *sqlx.DB, cfg *config.Config, p CreateParams, now time.Time) (*models.Match, error) {
	if err := p.validate(cfg, now); err != nil {
		return nil, err
	}
	if p.MatchType == "" {
		p.MatchType = "standard"
	}

	closeAt := RegistrationClose(p.ScheduledAt, false, cfg.RegistrationCloseMinutes)
	revealAt := CredentialsReveal(p.ScheduledAt, cfg.CredentialsRevealMinutes)

	var id int
	err := db.QueryRowx(`
		INSERT INTO matches (
			title, game_type, match_type, scheduled_at, registration_close_at,
			credentials_reveal_at, max_slots, filled_slots, entry_fee, prize_pool,
			per_kill_prize, prize_distribution, min_level, room_id, room_password,
			room_visible, status, is_challenge, creation_fee, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$9,$10,$11,$12,$13,$14,FALSE,$15,FALSE,0,NOW(),NOW())
		RETURNING id
	`, p.Title, p.GameType, p.MatchType, p.ScheduledAt, closeAt, revealAt,
		p.MaxSlots, p.EntryFee, p.PrizePool, p.PerKillPrize, p.PrizeDistribution,
		p.MinLevel, nullStr(p.RoomID), nullStr(p.RoomPassword), models.StatusUpcoming).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	log.Printf("[MATCH] Created match %d (%s) scheduled=%s slots=%d fee=%d",
		id, p.Title, p.ScheduledAt.Format(time.RFC3339), p.MaxSlots, p.EntryFee)

	return Get(db, id)
}

// Reschedule moves scheduledAt and recomputes the derived time fields
func Reschedule(db *sqlx.DB, cfg *config.Config, matchID int, scheduledAt time.Time) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin reschedule tx: %w", err)
	}
	defer tx.Rollback()

	m, err := lockMatch(tx, matchID)
	if err != nil {
		return err
	}
	if IsTerminal(m.Status) {
		return fmt.Errorf("cannot reschedule match in status %s: %w", m.Status, ErrStateTransition)
	}

	closeAt := RegistrationClose(scheduledAt, m.IsChallenge, cfg.RegistrationCloseMinutes)
	revealAt := CredentialsReveal(scheduledAt, cfg.CredentialsRevealMinutes)
	_, err = tx.Exec(`
		UPDATE matches
		SET scheduled_at=$1, registration_close_at=$2, credentials_reveal_at=$3, updated_at=NOW()
		WHERE id=$4
	`, scheduledAt, closeAt, revealAt, matchID)
	if err != nil {
		return fmt.Errorf("failed to reschedule match %d: %w", matchID, err)
	}

	return tx.Commit()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
