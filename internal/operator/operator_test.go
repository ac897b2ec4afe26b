package operator

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

func TestVerifyToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-token"), bcrypt.DefaultCost)
	require.NoError(t, err)

	assert.True(t, VerifyToken(string(hash), "s3cret-token"))
	assert.False(t, VerifyToken(string(hash), "wrong-token"))
	assert.False(t, VerifyToken("not-a-bcrypt-hash", "s3cret-token"))
}

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if exec.Command("docker", "info").Run() != nil {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("playarena_test"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrate.New("file://../../migrations", connStr)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	db, err := sqlx.Connect("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCredentialRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, CreateAccount(db, "256700000001", "ops one", "token-A", []string{"operator"}))

	acc, err := ValidateCredentials(db, "256700000001", "token-A")
	require.NoError(t, err)
	assert.Equal(t, "256700000001", acc.Phone)
	assert.Contains(t, acc.Roles, "operator")

	_, err = ValidateCredentials(db, "256700000001", "token-B")
	assert.Error(t, err, "wrong token must be rejected")

	_, err = ValidateCredentials(db, "256799999999", "token-A")
	assert.Error(t, err, "unknown phone must be rejected")

	// Re-seeding the same phone rotates the token
	require.NoError(t, CreateAccount(db, "256700000001", "ops one", "token-B", []string{"operator"}))
	_, err = ValidateCredentials(db, "256700000001", "token-A")
	assert.Error(t, err)
	_, err = ValidateCredentials(db, "256700000001", "token-B")
	assert.NoError(t, err)
}
