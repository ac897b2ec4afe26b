// Package screenshot maintains the content-hash index over submitted
// proof images. A digest seen before, from any player in any match,
// flags the new upload and leaves the original untouched.
package screenshot

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playarena/backend/internal/models"
)

// ErrDuplicate is returned when a submitted image's digest already exists
var ErrDuplicate = errors.New("duplicate screenshot")

// DuplicateReason is the fixed rejection reason written to flagged slots
const DuplicateReason = "duplicate screenshot detected"

// Hash returns the sha256 hex digest of the image bytes
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

const hashColumns = `id, content_hash, player_id, match_id, is_duplicate, duplicate_of, status, created_at`

// CheckDuplicate returns the original (non-duplicate) record holding the
// digest, or nil when the digest is unseen
func CheckDuplicate(db *sqlx.DB, hash string) (*models.ScreenshotHash, error) {
	var rec models.ScreenshotHash
	err := db.Get(&rec, `
		SELECT `+hashColumns+` FROM screenshot_hashes
		WHERE content_hash=$1 AND is_duplicate=FALSE
		ORDER BY id LIMIT 1
	`, hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check duplicate hash: %w", err)
	}
	return &rec, nil
}

// FlagDuplicate persists the flagged record for a rejected resubmission
// and marks the submitting slot. The original upload is not touched.
func FlagDuplicate(db *sqlx.DB, matchID, playerID int, hash string, originalID int) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin flag tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO screenshot_hashes (content_hash, player_id, match_id, is_duplicate, duplicate_of, status, created_at)
		VALUES ($1,$2,$3,TRUE,$4,'flagged',NOW())
	`, hash, playerID, matchID, originalID)
	if err != nil {
		return fmt.Errorf("failed to insert flagged hash record: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE slots SET screenshot_status=$1, reject_reason=$2
		WHERE match_id=$3 AND player_id=$4
	`, models.ScreenshotFlagged, DuplicateReason, matchID, playerID)
	if err != nil {
		return fmt.Errorf("failed to flag slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flag: %w", err)
	}

	log.Printf("[DEDUP] Duplicate screenshot flagged: match=%d player=%d original=%d", matchID, playerID, originalID)
	return ErrDuplicate
}

// Attach records a unique upload: inserts the pending hash record and
// attaches url/hash/timestamp to the slot. A partial unique index on
// (content_hash) WHERE NOT is_duplicate backstops the race where two
// identical images arrive concurrently; the loser is flagged against the
// winner and gets ErrDuplicate regardless of arrival order.
func Attach(db *sqlx.DB, matchID, playerID int, hash, url string) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin attach tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO screenshot_hashes (content_hash, player_id, match_id, is_duplicate, status, created_at)
		VALUES ($1,$2,$3,FALSE,'pending',NOW())
	`, hash, playerID, matchID)
	if err != nil {
		if isUniqueViolation(err) {
			tx.Rollback()
			original, cerr := CheckDuplicate(db, hash)
			if cerr != nil || original == nil {
				return fmt.Errorf("failed to resolve dedup race for hash %s: %v", hash, cerr)
			}
			return FlagDuplicate(db, matchID, playerID, hash, original.ID)
		}
		return fmt.Errorf("failed to insert hash record: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE slots
		SET screenshot_url=$1, screenshot_hash=$2, screenshot_uploaded_at=NOW(), screenshot_status=$3, reject_reason=NULL
		WHERE match_id=$4 AND player_id=$5
	`, url, hash, models.ScreenshotPending, matchID, playerID)
	if err != nil {
		return fmt.Errorf("failed to attach screenshot to slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attach: %w", err)
	}

	log.Printf("[DEDUP] Screenshot attached: match=%d player=%d hash=%s", matchID, playerID, hash[:12])
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
