package prize

import (
	"database/sql"
	"testing"

	"github.com/playarena/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func TestComputePositionBased(t *testing.T) {
	d := Distribution{
		Type: models.DistributionPositionBased,
		PositionTable: models.PrizeTable{
			{Position: 1, Amount: 500},
			{Position: 2, Amount: 300},
			{Position: 3, Amount: 150},
		},
	}
	standings := []Standing{
		{PlayerID: 10, Position: 1},
		{PlayerID: 11, Position: 2},
		{PlayerID: 12, Position: 4},
	}

	payouts := Compute(d, standings, 1000, 0)
	require.Len(t, payouts, 3)
	assert.Equal(t, int64(500), payouts[0].Amount)
	assert.Equal(t, int64(300), payouts[1].Amount)
	assert.Equal(t, int64(0), payouts[2].Amount, "positions outside the table pay nothing")
	assert.Equal(t, int64(800), Total(payouts))
}

func TestComputeKillBased(t *testing.T) {
	d := Distribution{Type: models.DistributionKillBased}
	standings := []Standing{
		{PlayerID: 10, Position: 1, Kills: 7},
		{PlayerID: 11, Position: 2, Kills: 0},
	}

	payouts := Compute(d, standings, 1000, 10)
	assert.Equal(t, int64(70), payouts[0].Amount)
	assert.Equal(t, int64(0), payouts[1].Amount)
}

func TestComputeHybridAddsKillComponent(t *testing.T) {
	// A winner's payout is the position amount plus kills times the
	// per-kill prize: 200 + 5*5 = 225
	d := Distribution{
		Type:          models.DistributionHybrid,
		PositionTable: models.PrizeTable{{Position: 1, Amount: 200}},
	}
	standings := []Standing{{PlayerID: 10, Position: 1, Kills: 5}}

	payouts := Compute(d, standings, 200, 5)
	require.Len(t, payouts, 1)
	assert.Equal(t, int64(225), payouts[0].Amount)
}

func TestComputePercentageRounds(t *testing.T) {
	d := Distribution{
		Type: models.DistributionPercentage,
		PercentTable: models.PercentTable{
			{Position: 1, Percent: 50},
			{Position: 2, Percent: 33.3},
		},
	}
	standings := []Standing{
		{PlayerID: 10, Position: 1},
		{PlayerID: 11, Position: 2},
	}

	payouts := Compute(d, standings, 999, 0)
	assert.Equal(t, int64(500), payouts[0].Amount, "999 * 50% rounds to 500")
	assert.Equal(t, int64(333), payouts[1].Amount, "999 * 33.3% rounds to 333")
}

func TestResolvePrefersHighestPriorityMatchingRule(t *testing.T) {
	m := &models.Match{
		MatchType:   "standard",
		GameType:    "bgmi",
		FilledSlots: 20,
		EntryFee:    50,
		PrizePool:   1000,
	}
	rules := []models.PrizeRule{
		{ID: 1, DistributionType: models.DistributionPositionBased, Priority: 1, IsActive: true},
		{ID: 2, DistributionType: models.DistributionPercentage, Priority: 5, IsActive: true, GameType: nullStr("bgmi")},
		{ID: 3, DistributionType: models.DistributionKillBased, Priority: 9, IsActive: true, GameType: nullStr("freefire")},
		{ID: 4, DistributionType: models.DistributionKillBased, Priority: 9, IsActive: false},
	}

	d := Resolve(rules, m)
	assert.Equal(t, 2, d.RuleID, "inactive and non-matching rules never win")
	assert.Equal(t, models.DistributionPercentage, d.Type)
}

func TestResolveParticipantBounds(t *testing.T) {
	m := &models.Match{MatchType: "standard", GameType: "bgmi", FilledSlots: 2}
	r := models.PrizeRule{
		ID: 1, DistributionType: models.DistributionPositionBased,
		IsActive:        true,
		MinParticipants: nullInt(10),
	}

	d := Resolve([]models.PrizeRule{r}, m)
	assert.Equal(t, 0, d.RuleID, "rule requiring 10+ participants must not match 2")
}

func TestResolveFallsBackToEmbeddedTable(t *testing.T) {
	m := &models.Match{
		MatchType:         "standard",
		GameType:          "bgmi",
		PrizeDistribution: models.PrizeTable{{Position: 1, Amount: 400}},
	}

	d := Resolve(nil, m)
	assert.Equal(t, 0, d.RuleID)
	assert.Equal(t, models.DistributionPositionBased, d.Type)
	assert.Equal(t, int64(400), d.PositionTable[0].Amount)
}

func TestResolvePromotesEmbeddedTableToHybrid(t *testing.T) {
	m := &models.Match{
		MatchType:         "standard",
		GameType:          "bgmi",
		PerKillPrize:      5,
		PrizeDistribution: models.PrizeTable{{Position: 1, Amount: 200}},
	}

	d := Resolve(nil, m)
	assert.Equal(t, models.DistributionHybrid, d.Type)
}

func TestResolveDefaultRuleLast(t *testing.T) {
	m := &models.Match{MatchType: "standard", GameType: "bgmi"}
	rules := []models.PrizeRule{
		{ID: 7, DistributionType: models.DistributionPercentage, IsActive: true, IsDefault: true},
	}

	d := Resolve(rules, m)
	assert.Equal(t, 7, d.RuleID)
}

func TestResolveNothingResolvablePaysZero(t *testing.T) {
	m := &models.Match{MatchType: "standard", GameType: "bgmi"}

	d := Resolve(nil, m)
	payouts := Compute(d, []Standing{{PlayerID: 1, Position: 1, Kills: 3}}, 500, 5)
	assert.Equal(t, int64(0), Total(payouts))
}

func TestCapIncludesKillComponent(t *testing.T) {
	standings := []Standing{
		{PlayerID: 1, Position: 1, Kills: 5},
		{PlayerID: 2, Position: 2, Kills: 3},
	}
	assert.Equal(t, int64(200+8*5), Cap(200, 5, standings))
}
