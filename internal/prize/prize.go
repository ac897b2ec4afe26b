// Package prize computes payouts from a distribution rule and final
// standings. Everything here is a pure function of its inputs: no I/O, no
// clock, no database. Position uniqueness is an upstream invariant.
package prize

import (
	"math"

	"github.com/playarena/backend/internal/models"
)

// Standing is one finalized placement fed into the engine
type Standing struct {
	PlayerID int
	Position int
	Kills    int
}

// Payout is the computed prize for one standing
type Payout struct {
	PlayerID int
	Position int
	Kills    int
	Amount   int64
}

// Distribution is a resolved payout scheme
type Distribution struct {
	RuleID        int // 0 when resolved from the match's embedded table
	Type          string
	PositionTable models.PrizeTable
	PercentTable  models.PercentTable
}

// Resolve selects the distribution for a match: the highest-priority
// active rule whose predicate matches, else the match's embedded table,
// else the default rule. A match carrying a per-kill prize promotes its
// embedded table to a hybrid scheme.
func Resolve(rules []models.PrizeRule, m *models.Match) Distribution {
	var best *models.PrizeRule
	for i := range rules {
		r := &rules[i]
		if !r.IsActive || r.IsDefault {
			continue
		}
		if !Matches(r, m) {
			continue
		}
		if best == nil || r.Priority > best.Priority {
			best = r
		}
	}
	if best != nil {
		return fromRule(best)
	}

	if len(m.PrizeDistribution) > 0 {
		typ := models.DistributionPositionBased
		if m.PerKillPrize > 0 {
			typ = models.DistributionHybrid
		}
		return Distribution{Type: typ, PositionTable: m.PrizeDistribution}
	}

	for i := range rules {
		r := &rules[i]
		if r.IsActive && r.IsDefault {
			return fromRule(r)
		}
	}

	// Nothing resolvable: every payout computes to zero
	return Distribution{Type: models.DistributionPositionBased}
}

// Matches reports whether a rule's predicate covers the match
func Matches(r *models.PrizeRule, m *models.Match) bool {
	if r.MatchType.Valid && r.MatchType.String != m.MatchType {
		return false
	}
	if r.GameType.Valid && r.GameType.String != m.GameType {
		return false
	}
	participants := int64(m.FilledSlots)
	if r.MinParticipants.Valid && participants < r.MinParticipants.Int64 {
		return false
	}
	if r.MaxParticipants.Valid && participants > r.MaxParticipants.Int64 {
		return false
	}
	if r.MinEntryFee.Valid && m.EntryFee < r.MinEntryFee.Int64 {
		return false
	}
	if r.MaxEntryFee.Valid && m.EntryFee > r.MaxEntryFee.Int64 {
		return false
	}
	if r.MinPrizePool.Valid && m.PrizePool < r.MinPrizePool.Int64 {
		return false
	}
	if r.MaxPrizePool.Valid && m.PrizePool > r.MaxPrizePool.Int64 {
		return false
	}
	return true
}

func fromRule(r *models.PrizeRule) Distribution {
	return Distribution{
		RuleID:        r.ID,
		Type:          r.DistributionType,
		PositionTable: r.PositionTable,
		PercentTable:  r.PercentTable,
	}
}

// Compute turns a distribution and standings into one payout per standing
func Compute(d Distribution, standings []Standing, prizePool, perKillPrize int64) []Payout {
	payouts := make([]Payout, 0, len(standings))
	for _, s := range standings {
		payouts = append(payouts, Payout{
			PlayerID: s.PlayerID,
			Position: s.Position,
			Kills:    s.Kills,
			Amount:   amountFor(d, s, prizePool, perKillPrize),
		})
	}
	return payouts
}

func amountFor(d Distribution, s Standing, prizePool, perKillPrize int64) int64 {
	switch d.Type {
	case models.DistributionPositionBased:
		return positionAmount(d.PositionTable, s.Position)
	case models.DistributionKillBased:
		return int64(s.Kills) * perKillPrize
	case models.DistributionPercentage:
		for _, tier := range d.PercentTable {
			if tier.Position == s.Position {
				return int64(math.Round(float64(prizePool) * tier.Percent / 100))
			}
		}
		return 0
	case models.DistributionHybrid:
		return positionAmount(d.PositionTable, s.Position) + int64(s.Kills)*perKillPrize
	default:
		return 0
	}
}

func positionAmount(table models.PrizeTable, position int) int64 {
	for _, tier := range table {
		if tier.Position == position {
			return tier.Amount
		}
	}
	return 0
}

// Total sums a payout list
func Total(payouts []Payout) int64 {
	var total int64
	for _, p := range payouts {
		total += p.Amount
	}
	return total
}

// Cap is the largest legal total payout for a match: the prize pool plus
// the kill component across all standings
func Cap(prizePool, perKillPrize int64, standings []Standing) int64 {
	var kills int64
	for _, s := range standings {
		kills += int64(s.Kills)
	}
	return prizePool + perKillPrize*kills
}
