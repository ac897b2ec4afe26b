package match

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/models"
	"github.com/playarena/backend/internal/wallet"
)

// ChallengeParams describes a player-funded challenge match
type ChallengeParams struct {
	Title        string
	GameType     string
	ScheduledAt  time.Time
	EntryFee     int64
	PrizePool    int64
	RoomID       string
	RoomPassword string
	InGameID     string
	InGameName   string
}

func (p *ChallengeParams) validate(cfg *config.Config, now time.Time) error {
	if p.GameType == "" {
		return fmt.Errorf("game_type required: %w", ErrValidation)
	}
	if p.PrizePool <= 0 || p.PrizePool > cfg.MaxChallengePrizePool {
		return fmt.Errorf("prize_pool must be 1..%d: %w", cfg.MaxChallengePrizePool, ErrValidation)
	}
	if p.EntryFee < 0 {
		return fmt.Errorf("entry_fee must be non-negative: %w", ErrValidation)
	}
	if p.RoomID == "" || p.RoomPassword == "" {
		return fmt.Errorf("room credentials required: %w", ErrValidation)
	}
	if !p.ScheduledAt.After(now) {
		return fmt.Errorf("scheduled_at must be in the future: %w", ErrValidation)
	}
	return nil
}

// CreateChallenge creates a 1v1 challenge funded from the creator's
// wallet: the creation fee and the prize pool escrow are debited as
// separate tagged ledger rows in the same transaction that creates the
// match and seats the creator in slot 1.
func CreateChallenge(db *sqlx.DB, cfg *config.Config, creatorID int, p ChallengeParams, now time.Time) (*models.Match, error) {
	if err := p.validate(cfg, now); err != nil {
		return nil, err
	}

	var role string
	if err := db.Get(&role, `SELECT role FROM players WHERE id=$1`, creatorID); err != nil {
		return nil, fmt.Errorf("failed to load creator %d: %w", creatorID, err)
	}
	if role == models.RoleOperator {
		return nil, ErrOperatorJoin
	}

	creationFee := cfg.ChallengeCreationFee
	title := p.Title
	if title == "" {
		title = fmt.Sprintf("%s challenge", p.GameType)
	}

	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin challenge tx: %w", err)
	}
	defer tx.Rollback()

	// Challenges keep registration open until the scheduled start
	closeAt := RegistrationClose(p.ScheduledAt, true, cfg.RegistrationCloseMinutes)
	revealAt := CredentialsReveal(p.ScheduledAt, cfg.CredentialsRevealMinutes)

	// Winner takes the escrowed pool unless an operator rule overrides it
	distribution := models.PrizeTable{{Position: 1, Amount: p.PrizePool}}

	var matchID int
	err = tx.QueryRowx(`
		INSERT INTO matches (
			title, game_type, match_type, scheduled_at, registration_close_at,
			credentials_reveal_at, max_slots, filled_slots, entry_fee, prize_pool,
			per_kill_prize, prize_distribution, min_level, room_id, room_password,
			room_visible, status, is_challenge, creation_fee, created_by, created_at, updated_at
		) VALUES ($1,$2,'challenge',$3,$4,$5,2,1,$6,$7,0,$8,0,$9,$10,FALSE,$11,TRUE,$12,$13,NOW(),NOW())
		RETURNING id
	`, title, p.GameType, p.ScheduledAt, closeAt, revealAt,
		p.EntryFee, p.PrizePool, distribution, p.RoomID, p.RoomPassword,
		models.StatusRegistrationOpen, creationFee, creatorID).Scan(&matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	// Both debits and the match row commit or fail together; the balance
	// must cover creationFee + prizePool or the first short debit aborts.
	ref := sql.NullInt64{Int64: int64(matchID), Valid: true}
	if creationFee > 0 {
		if _, err := wallet.Record(tx, creatorID, models.DirectionDebit, models.CategoryMatchCreationFee, creationFee, models.ReferenceMatch, ref); err != nil {
			return nil, err
		}
	}
	if _, err := wallet.Record(tx, creatorID, models.DirectionDebit, models.CategoryPrizePoolEscrow, p.PrizePool, models.ReferenceMatch, ref); err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		INSERT INTO slots (match_id, player_id, slot_number, in_game_name, in_game_id, screenshot_status, created_at)
		VALUES ($1,$2,1,$3,$4,$5,NOW())
	`, matchID, creatorID, p.InGameName, p.InGameID, models.ScreenshotNotUploaded)
	if err != nil {
		return nil, fmt.Errorf("failed to seat challenge creator: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit challenge: %w", err)
	}

	log.Printf("[CHALLENGE] Player %d created challenge %d pool=%d fee=%d", creatorID, matchID, p.PrizePool, creationFee)

	return Get(db, matchID)
}

// AcceptChallenge is a join with challenge-specific checks. The generic
// join path already rejects the creator and operators; this only pins
// down that the target really is a challenge.
func AcceptChallenge(db *sqlx.DB, cfg *config.Config, matchID, opponentID int, p JoinParams, now time.Time) (*JoinResult, error) {
	m, err := Get(db, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsChallenge {
		return nil, ErrNotChallenge
	}
	return Join(db, cfg, matchID, opponentID, p, now)
}

// CancelChallenge lets the creator walk away before an opponent commits:
// the full escrow (creation fee + prize pool) comes back with no
// cancellation fee deducted.
func CancelChallenge(db *sqlx.DB, matchID, callerID int) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin cancel-challenge tx: %w", err)
	}

	m, err := lockMatch(tx, matchID)
	if err != nil {
		tx.Rollback()
		return err
	}

	if !m.IsChallenge {
		tx.Rollback()
		return ErrNotChallenge
	}
	if !m.CreatedBy.Valid || int(m.CreatedBy.Int64) != callerID {
		tx.Rollback()
		return ErrNotCreator
	}
	if IsTerminal(m.Status) {
		tx.Rollback()
		return fmt.Errorf("challenge %d is %s: %w", matchID, m.Status, ErrStateTransition)
	}
	if m.FilledSlots > 1 {
		tx.Rollback()
		return ErrChallengeHasOpponent
	}

	// Release the lock; Cancel re-acquires it and drives the shared
	// cancellation/refund path.
	tx.Rollback()

	return Cancel(db, matchID, "cancelled by creator", fmt.Sprintf("player:%d", callerID), false)
}
