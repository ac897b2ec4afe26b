// Integration tests run against real PostgreSQL via testcontainers-go
// and skip when Docker is unavailable. They cover the money-path
// invariants that need a live database: ledger arithmetic under
// concurrency, refund idempotency across retry paths, and the slot
// capacity race.
package match

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
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

	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/models"
	"github.com/playarena/backend/internal/wallet"
)

func checkDockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// setupTestDB starts a PostgreSQL container, applies the migrations and
// returns a connected pool. Skips the test if Docker is not available.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if checkDockerAvailable() == false {
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

func testConfig() *config.Config {
	return &config.Config{
		RegistrationCloseMinutes: 30,
		CredentialsRevealMinutes: 15,
		LeaveCutoffMinutes:       60,
		LeaveFeePercent:          10,
		MaxMatchSlots:            100,
		MaxChallengePrizePool:    100000,
		ChallengeCreationFee:     0,
	}
}

var phoneSeq int64

func seedPlayer(t *testing.T, db *sqlx.DB, balance int64) int {
	t.Helper()
	var id int
	phone := fmt.Sprintf("2567%08d", atomic.AddInt64(&phoneSeq, 1))
	err := db.QueryRowx(`
		INSERT INTO players (phone_number, display_name, role, balance, level)
		VALUES ($1, 'test player', 'player', $2, 1) RETURNING id
	`, phone, balance).Scan(&id)
	require.NoError(t, err)
	return id
}

func balanceOf(t *testing.T, db *sqlx.DB, playerID int) int64 {
	t.Helper()
	b, err := wallet.Balance(db, playerID)
	require.NoError(t, err)
	return b
}

func entryRefundRows(t *testing.T, db *sqlx.DB, playerID, matchID int) int {
	t.Helper()
	var n int
	err := db.Get(&n, `
		SELECT COUNT(*) FROM transactions
		WHERE player_id=$1 AND reference_type='match' AND reference_id=$2
		  AND category IN ($3, $4)
	`, playerID, matchID, models.CategoryMatchRefund, models.CategoryMatchAutoRefund)
	require.NoError(t, err)
	return n
}

func seedStandardMatch(t *testing.T, db *sqlx.DB, cfg *config.Config, maxSlots int, entryFee int64, table models.PrizeTable, perKill int64) *models.Match {
	t.Helper()
	m, err := Create(db, cfg, CreateParams{
		Title:             "test match",
		GameType:          "bgmi",
		ScheduledAt:       time.Now().Add(3 * time.Hour),
		MaxSlots:          maxSlots,
		EntryFee:          entryFee,
		PrizePool:         200,
		PerKillPrize:      perKill,
		PrizeDistribution: table,
	}, time.Now())
	require.NoError(t, err)
	return m
}

func join(t *testing.T, db *sqlx.DB, cfg *config.Config, matchID, playerID int) *JoinResult {
	t.Helper()
	res, err := Join(db, cfg, matchID, playerID, JoinParams{
		InGameID:   fmt.Sprintf("ig-%d", playerID),
		InGameName: fmt.Sprintf("player-%d", playerID),
	}, time.Now())
	require.NoError(t, err)
	return res
}

func TestChallengeEscrowAndFillReveal(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()

	creator := seedPlayer(t, db, 1000)
	opponent := seedPlayer(t, db, 200)

	m, err := CreateChallenge(db, cfg, creator, ChallengeParams{
		GameType:     "bgmi",
		ScheduledAt:  time.Now().Add(2 * time.Hour),
		EntryFee:     50,
		PrizePool:    500,
		RoomID:       "room-1",
		RoomPassword: "pw",
		InGameID:     "cr",
		InGameName:   "creator",
	}, time.Now())
	require.NoError(t, err)

	// Escrow debited up front
	assert.Equal(t, int64(500), balanceOf(t, db, creator))

	res, err := Join(db, cfg, m.ID, opponent, JoinParams{
		InGameID: "op", InGameName: "opponent", SlotNumber: 2,
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(150), balanceOf(t, db, opponent))
	assert.True(t, res.RoomRevealed)
	assert.Equal(t, "room-1", res.RoomID)

	got, err := Get(db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRoomRevealed, got.Status)
	assert.Equal(t, 2, got.FilledSlots)
}

func TestConcurrentLastSlotJoinOneWinner(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()

	m := seedStandardMatch(t, db, cfg, 2, 50, nil, 0)
	first := seedPlayer(t, db, 100)
	join(t, db, cfg, m.ID, first)

	a := seedPlayer(t, db, 100)
	b := seedPlayer(t, db, 100)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, pid := range []int{a, b} {
		wg.Add(1)
		go func(i, pid int) {
			defer wg.Done()
			_, errs[i] = Join(db, cfg, m.ID, pid, JoinParams{
				InGameID: fmt.Sprintf("ig-%d", pid), InGameName: "racer",
			}, time.Now())
		}(i, pid)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrMatchFull)
		}
	}
	assert.Equal(t, 1, winners, "exactly one racer takes the last slot")

	got, err := Get(db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FilledSlots)

	slots, err := Slots(db, m.ID)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestWalletRecordSerializesConcurrentDebits(t *testing.T) {
	db := setupTestDB(t)
	player := seedPlayer(t, db, 100)

	const attempts = 5
	var wg sync.WaitGroup
	var succeeded int64
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := db.Beginx()
			if err != nil {
				return
			}
			_, err = wallet.Record(tx, player, models.DirectionDebit, models.CategoryMatchEntry, 30, models.ReferenceAdjustment, sql.NullInt64{})
			if err != nil {
				tx.Rollback()
				return
			}
			if tx.Commit() == nil {
				atomic.AddInt64(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	// 100 covers exactly three debits of 30
	assert.Equal(t, int64(3), succeeded)
	assert.Equal(t, int64(10), balanceOf(t, db, player))

	// Every ledger row must chain exactly
	var rows []models.Transaction
	require.NoError(t, db.Select(&rows, `
		SELECT id, player_id, direction, category, amount, balance_before, balance_after,
		       reference_type, reference_id, status, created_at
		FROM transactions WHERE player_id=$1 ORDER BY id
	`, player))
	assert.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, r.BalanceBefore-r.Amount, r.BalanceAfter)
		assert.GreaterOrEqual(t, r.BalanceAfter, int64(0))
	}
}

func TestCancelRefundsAllAndRetryAcrossPathsPaysOnce(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()

	m := seedStandardMatch(t, db, cfg, 4, 100, nil, 0)
	players := []int{
		seedPlayer(t, db, 100),
		seedPlayer(t, db, 100),
		seedPlayer(t, db, 100),
	}
	for _, pid := range players {
		join(t, db, cfg, m.ID, pid)
		assert.Equal(t, int64(0), balanceOf(t, db, pid))
	}

	require.NoError(t, Cancel(db, m.ID, "testing refunds", "operator", false))
	for _, pid := range players {
		assert.Equal(t, int64(100), balanceOf(t, db, pid), "cancel refunds the full entry fee")
	}

	// Simulate a partial first pass: clear the processed flag, then retry
	// down the other path. The sweeper writes auto refunds, operators
	// manual ones; a retry must recognize either as already paid.
	_, err := db.Exec(`UPDATE matches SET refunds_processed=FALSE WHERE id=$1`, m.ID)
	require.NoError(t, err)

	require.NoError(t, Cancel(db, m.ID, "retrying refunds", "system", true))
	for _, pid := range players {
		assert.Equal(t, int64(100), balanceOf(t, db, pid), "retry must not double-pay")
		assert.Equal(t, 1, entryRefundRows(t, db, pid, m.ID))
	}
}

func TestSweepExpiredChallengeTwiceRefundsOnce(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	cfg.ChallengeCreationFee = 25

	creator := seedPlayer(t, db, 1000)
	m, err := CreateChallenge(db, cfg, creator, ChallengeParams{
		GameType:     "bgmi",
		ScheduledAt:  time.Now().Add(time.Hour),
		PrizePool:    500,
		RoomID:       "r",
		RoomPassword: "p",
		InGameID:     "cr",
		InGameName:   "creator",
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(475), balanceOf(t, db, creator))

	// Push the start into the past so the sweep predicate picks it up
	_, err = db.Exec(`UPDATE matches SET scheduled_at=NOW()-INTERVAL '1 hour' WHERE id=$1`, m.ID)
	require.NoError(t, err)

	sweeper := NewSweeper(db, cfg)
	sweeper.Sweep(time.Now())

	got, err := Get(db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.True(t, got.RefundsProcessed)
	assert.Equal(t, int64(1000), balanceOf(t, db, creator), "escrow and creation fee come back")

	var before int
	require.NoError(t, db.Get(&before, `SELECT COUNT(*) FROM transactions`))

	sweeper.Sweep(time.Now())

	var after int
	require.NoError(t, db.Get(&after, `SELECT COUNT(*) FROM transactions`))
	assert.Equal(t, before, after, "second sweep performs zero additional refunds")
	assert.Equal(t, int64(1000), balanceOf(t, db, creator))
}

func TestDeclareResultsPaysOnce(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()

	table := models.PrizeTable{{Position: 1, Amount: 200}}
	m := seedStandardMatch(t, db, cfg, 2, 0, table, 5)
	winner := seedPlayer(t, db, 0)
	loser := seedPlayer(t, db, 0)
	join(t, db, cfg, m.ID, winner)
	join(t, db, cfg, m.ID, loser)

	entries := []ResultEntry{{PlayerID: winner, Position: 1, Kills: 5}}
	require.NoError(t, DeclareResults(db, m.ID, entries))

	// 200 position prize + 5 kills x 5
	assert.Equal(t, int64(225), balanceOf(t, db, winner))
	assert.Equal(t, int64(0), balanceOf(t, db, loser))

	got, err := Get(db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.Len(t, got.Results, 1)
	assert.Equal(t, winner, got.Results[0].PlayerID)

	// A repeated declaration cannot credit again
	err = DeclareResults(db, m.ID, entries)
	assert.ErrorIs(t, err, ErrStateTransition)
	assert.Equal(t, int64(225), balanceOf(t, db, winner))
}

func TestDeclareResultsRejectsPayoutOverPool(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()

	// Embedded table promises more than the pool backs
	table := models.PrizeTable{{Position: 1, Amount: 300}}
	m := seedStandardMatch(t, db, cfg, 2, 0, table, 0)
	a := seedPlayer(t, db, 0)
	b := seedPlayer(t, db, 0)
	join(t, db, cfg, m.ID, a)
	join(t, db, cfg, m.ID, b)

	err := DeclareResults(db, m.ID, []ResultEntry{{PlayerID: a, Position: 1, Kills: 0}})
	assert.ErrorIs(t, err, ErrPrizeCapExceeded)

	// Nothing paid, nothing settled
	assert.Equal(t, int64(0), balanceOf(t, db, a))
	got, err := Get(db, m.ID)
	require.NoError(t, err)
	assert.NotEqual(t, models.StatusCompleted, got.Status)
}

func TestLeaveRenumbersSlotsAndRefunds(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()

	m := seedStandardMatch(t, db, cfg, 4, 100, nil, 0)
	a := seedPlayer(t, db, 100)
	b := seedPlayer(t, db, 100)
	c := seedPlayer(t, db, 100)
	join(t, db, cfg, m.ID, a)
	join(t, db, cfg, m.ID, b)
	join(t, db, cfg, m.ID, c)

	refund, err := Leave(db, cfg, m.ID, b, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(90), refund)
	assert.Equal(t, int64(90), balanceOf(t, db, b))

	slots, err := Slots(db, m.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 1, slots[0].SlotNumber)
	assert.Equal(t, 2, slots[1].SlotNumber)
	assert.Equal(t, a, slots[0].PlayerID)
	assert.Equal(t, c, slots[1].PlayerID)

	got, err := Get(db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FilledSlots)
}

func TestChallengeDeclarePaysEscrowedPool(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()

	creator := seedPlayer(t, db, 1000)
	opponent := seedPlayer(t, db, 100)

	m, err := CreateChallenge(db, cfg, creator, ChallengeParams{
		GameType:     "bgmi",
		ScheduledAt:  time.Now().Add(time.Hour),
		PrizePool:    500,
		RoomID:       "r",
		RoomPassword: "p",
		InGameID:     "cr",
		InGameName:   "creator",
	}, time.Now())
	require.NoError(t, err)

	_, err = Join(db, cfg, m.ID, opponent, JoinParams{
		InGameID: "op", InGameName: "opponent", SlotNumber: 2,
	}, time.Now())
	require.NoError(t, err)

	// With no operator rule, the seeded winner-takes-all table pays the
	// escrowed pool to position 1
	require.NoError(t, DeclareResults(db, m.ID, []ResultEntry{
		{PlayerID: opponent, Position: 1, Kills: 0},
	}))

	assert.Equal(t, int64(600), balanceOf(t, db, opponent))
	assert.Equal(t, int64(500), balanceOf(t, db, creator))
}
