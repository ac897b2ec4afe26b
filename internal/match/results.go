package match

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/models"
	"github.com/playarena/backend/internal/notify"
	"github.com/playarena/backend/internal/prize"
	"github.com/playarena/backend/internal/wallet"
)

// XP awarded during result declaration
const (
	xpPerMatch = 10
	xpPerKill  = 2
	xpWinBonus = 50
)

// VerifyResult records an operator's per-slot verdict on a submitted
// screenshot
func VerifyResult(db *sqlx.DB, matchID, playerID, position, kills int, approve bool, rejectReason string) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin verify tx: %w", err)
	}
	defer tx.Rollback()

	m, err := lockMatch(tx, matchID)
	if err != nil {
		return err
	}
	if IsTerminal(m.Status) {
		return fmt.Errorf("match %d is %s: %w", matchID, m.Status, ErrStateTransition)
	}

	var slot models.Slot
	err = tx.Get(&slot, `SELECT `+slotColumns+` FROM slots WHERE match_id=$1 AND player_id=$2`, matchID, playerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotParticipant
		}
		return fmt.Errorf("failed to load slot: %w", err)
	}
	if screenshotTerminal(slot.ScreenshotStatus) {
		return ErrAlreadyVerified
	}

	if approve {
		_, err = tx.Exec(`
			UPDATE slots SET position=$1, kills=$2, screenshot_status=$3 WHERE id=$4
		`, position, kills, models.ScreenshotVerified, slot.ID)
	} else {
		_, err = tx.Exec(`
			UPDATE slots SET screenshot_status=$1, reject_reason=$2 WHERE id=$3
		`, models.ScreenshotRejected, nullStr(rejectReason), slot.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to record verdict: %w", err)
	}

	// First verdict moves the match into result review
	if statusRank[m.Status] < statusRank[models.StatusResultPending] {
		if err := setStatus(tx, m, models.StatusResultPending); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ResultEntry is one declared standing
type ResultEntry struct {
	PlayerID int `json:"player_id"`
	Position int `json:"position"`
	Kills    int `json:"kills"`
}

// DeclareResults settles a match: slots not named in entries are marked
// rejected, named slots get their prize exactly once (prizeDistributed
// guard) plus aggregate stat updates, and once every slot's screenshot
// review is terminal the match snapshots sorted Results and completes.
// Re-running with the same entries is a no-op for money and stats.
func DeclareResults(db *sqlx.DB, matchID int, entries []ResultEntry) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin declare tx: %w", err)
	}
	defer tx.Rollback()

	m, err := lockMatch(tx, matchID)
	if err != nil {
		return err
	}
	if IsTerminal(m.Status) {
		return fmt.Errorf("match %d is %s: %w", matchID, m.Status, ErrStateTransition)
	}

	slots, err := slotsInTx(tx, matchID)
	if err != nil {
		return err
	}

	byPlayer := make(map[int]*models.Slot, len(slots))
	for i := range slots {
		byPlayer[slots[i].PlayerID] = &slots[i]
	}

	standings := make([]prize.Standing, 0, len(entries))
	for _, e := range entries {
		if _, ok := byPlayer[e.PlayerID]; !ok {
			return fmt.Errorf("player %d has no slot in match %d: %w", e.PlayerID, matchID, ErrValidation)
		}
		if e.Position <= 0 {
			return fmt.Errorf("position must be positive for player %d: %w", e.PlayerID, ErrValidation)
		}
		standings = append(standings, prize.Standing{PlayerID: e.PlayerID, Position: e.Position, Kills: e.Kills})
	}

	var rules []models.PrizeRule
	if err := tx.Select(&rules, `SELECT * FROM prize_rules WHERE is_active=TRUE`); err != nil {
		return fmt.Errorf("failed to load prize rules: %w", err)
	}
	dist := prize.Resolve(rules, m)
	payouts := prize.Compute(dist, standings, m.PrizePool, m.PerKillPrize)

	if total, limit := prize.Total(payouts), prize.Cap(m.PrizePool, m.PerKillPrize, standings); total > limit {
		return fmt.Errorf("payout %d exceeds cap %d for match %d: %w", total, limit, matchID, ErrPrizeCapExceeded)
	}

	declared := make(map[int]prize.Payout, len(payouts))
	for _, p := range payouts {
		declared[p.PlayerID] = p
	}

	for i := range slots {
		slot := &slots[i]
		p, named := declared[slot.PlayerID]
		if !named {
			if !screenshotTerminal(slot.ScreenshotStatus) {
				_, err = tx.Exec(`
					UPDATE slots SET screenshot_status=$1, reject_reason=$2 WHERE id=$3
				`, models.ScreenshotRejected, nullStr("no result declared"), slot.ID)
				if err != nil {
					return fmt.Errorf("failed to reject slot %d: %w", slot.ID, err)
				}
				slot.ScreenshotStatus = models.ScreenshotRejected
			}
			continue
		}

		if slot.PrizeDistributed {
			continue // prize already paid, never twice
		}

		if p.Amount > 0 {
			_, err = wallet.Record(tx, slot.PlayerID, models.DirectionCredit, models.CategoryMatchPrize,
				p.Amount, models.ReferenceSlot, sql.NullInt64{Int64: int64(slot.ID), Valid: true})
			if err != nil {
				return err
			}
		}

		_, err = tx.Exec(`
			UPDATE slots SET position=$1, kills=$2, prize_won=$3, prize_distributed=TRUE, screenshot_status=$4, reject_reason=NULL
			WHERE id=$5
		`, p.Position, p.Kills, p.Amount, models.ScreenshotVerified, slot.ID)
		if err != nil {
			return fmt.Errorf("failed to finalize slot %d: %w", slot.ID, err)
		}
		slot.Position = p.Position
		slot.Kills = p.Kills
		slot.PrizeWon = p.Amount
		slot.PrizeDistributed = true
		slot.ScreenshotStatus = models.ScreenshotVerified

		// Aggregate stats ride the same idempotency guard as the prize
		xp := xpPerMatch + p.Kills*xpPerKill
		won := 0
		if p.Position == 1 {
			won = 1
			xp += xpWinBonus
		}
		_, err = tx.Exec(`
			UPDATE players
			SET matches_played=matches_played+1, matches_won=matches_won+$1,
			    total_kills=total_kills+$2, xp=xp+$3, lifetime_earnings=lifetime_earnings+$4
			WHERE id=$5
		`, won, p.Kills, xp, p.Amount, slot.PlayerID)
		if err != nil {
			return fmt.Errorf("failed to update stats for player %d: %w", slot.PlayerID, err)
		}
	}

	allTerminal := true
	for i := range slots {
		if !screenshotTerminal(slots[i].ScreenshotStatus) {
			allTerminal = false
			break
		}
	}

	completed := false
	if allTerminal {
		results := snapshotResults(slots)
		if _, err := tx.Exec(`UPDATE matches SET results=$1, updated_at=NOW() WHERE id=$2`, results, matchID); err != nil {
			return fmt.Errorf("failed to snapshot results for match %d: %w", matchID, err)
		}
		if m.Status != models.StatusCompleted {
			if err := setStatus(tx, m, models.StatusCompleted); err != nil {
				return err
			}
		}
		completed = true
	} else if statusRank[m.Status] < statusRank[models.StatusResultPending] {
		if err := setStatus(tx, m, models.StatusResultPending); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit declaration for match %d: %w", matchID, err)
	}

	log.Printf("[MATCH] Results declared for match %d: %d winners, completed=%v", matchID, len(entries), completed)

	if completed {
		notify.Publish(context.Background(), "match_events", map[string]interface{}{
			"type":     "match_completed",
			"match_id": matchID,
		})
	}

	return nil
}

// snapshotResults builds the finalized standings list: verified slots
// sorted by position, everyone else appended after
func snapshotResults(slots []models.Slot) models.ResultList {
	results := make(models.ResultList, 0, len(slots))
	for i := range slots {
		s := &slots[i]
		if s.ScreenshotStatus != models.ScreenshotVerified {
			continue
		}
		results = append(results, models.Result{
			PlayerID:   s.PlayerID,
			SlotNumber: s.SlotNumber,
			Position:   s.Position,
			Kills:      s.Kills,
			PrizeWon:   s.PrizeWon,
			InGameName: s.InGameName,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Position < results[j].Position })
	return results
}
