// Package operator manages privileged operator accounts and the audit
// trail of their actions.
package operator

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playarena/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// GetAccount retrieves an operator account by phone
func GetAccount(db *sqlx.DB, phone string) (*models.OperatorAccount, error) {
	var acc struct {
		Phone       string         `db:"phone"`
		DisplayName string         `db:"display_name"`
		TokenHash   string         `db:"token_hash"`
		Roles       pq.StringArray `db:"roles"`
		CreatedAt   sql.NullTime   `db:"created_at"`
		UpdatedAt   sql.NullTime   `db:"updated_at"`
	}
	err := db.Get(&acc, `SELECT phone, display_name, token_hash, roles, created_at, updated_at FROM operator_accounts WHERE phone=$1`, phone)
	if err != nil {
		return nil, err
	}
	return &models.OperatorAccount{
		Phone:       acc.Phone,
		DisplayName: acc.DisplayName,
		TokenHash:   acc.TokenHash,
		Roles:       acc.Roles,
		CreatedAt:   acc.CreatedAt.Time,
		UpdatedAt:   acc.UpdatedAt.Time,
	}, nil
}

// VerifyToken checks a plain token against the stored bcrypt hash
func VerifyToken(hashedToken, plainToken string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken)) == nil
}

// CreateAccount creates or updates an operator account (seeding/testing)
func CreateAccount(db *sqlx.DB, phone, displayName, plainToken string, roles []string) error {
	hashedToken, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash token: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO operator_accounts (phone, display_name, token_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (phone) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			token_hash = EXCLUDED.token_hash,
			roles = EXCLUDED.roles,
			updated_at = NOW()
	`, phone, displayName, string(hashedToken), pq.Array(roles))

	return err
}

// ValidateCredentials validates a phone + token combination
func ValidateCredentials(db *sqlx.DB, phone, token string) (*models.OperatorAccount, error) {
	acc, err := GetAccount(db, phone)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("operator account not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !VerifyToken(acc.TokenHash, token) {
		return nil, fmt.Errorf("invalid token")
	}
	return acc, nil
}

// LogAction records an operator action in the audit log. Best-effort:
// a failed audit write never rolls back the action it describes.
func LogAction(db *sqlx.DB, operatorPhone, ip, route, action string, details map[string]interface{}, success bool) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("[AUDIT] Failed to marshal details: %v", err)
		detailsJSON = []byte("{}")
	}

	_, err = db.Exec(`
		INSERT INTO operator_audit (operator_phone, ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, operatorPhone, ip, route, action, detailsJSON, success)
	if err != nil {
		log.Printf("[AUDIT] Failed to log operator action %s: %v", action, err)
	}
}

// AuditLogs retrieves recent operator audit rows with pagination
func AuditLogs(db *sqlx.DB, limit, offset int) ([]models.OperatorAudit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []models.OperatorAudit
	err := db.Select(&logs, `
		SELECT id, operator_phone, ip, route, action, details, success, created_at
		FROM operator_audit
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return logs, err
}
