package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/models"
	"github.com/playarena/backend/internal/operator"
)

// AdminListPrizeRules returns all prize rules, highest priority first
func AdminListPrizeRules(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rules []models.PrizeRule
		err := db.Select(&rules, `SELECT * FROM prize_rules ORDER BY priority DESC, id`)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"rules": rules})
	}
}

// AdminCreatePrizeRule adds a prize distribution rule
func AdminCreatePrizeRule(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name             string              `json:"name" binding:"required"`
			MatchType        string              `json:"match_type"`
			GameType         string              `json:"game_type"`
			MinParticipants  *int64              `json:"min_participants"`
			MaxParticipants  *int64              `json:"max_participants"`
			MinEntryFee      *int64              `json:"min_entry_fee"`
			MaxEntryFee      *int64              `json:"max_entry_fee"`
			MinPrizePool     *int64              `json:"min_prize_pool"`
			MaxPrizePool     *int64              `json:"max_prize_pool"`
			DistributionType string              `json:"distribution_type" binding:"required"`
			PositionTable    models.PrizeTable   `json:"position_table"`
			PercentTable     models.PercentTable `json:"percent_table"`
			Priority         int                 `json:"priority"`
			IsDefault        bool                `json:"is_default"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and distribution_type required"})
			return
		}

		switch req.DistributionType {
		case models.DistributionPositionBased, models.DistributionKillBased,
			models.DistributionPercentage, models.DistributionHybrid:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown distribution_type"})
			return
		}

		var id int
		err := db.QueryRowx(`
			INSERT INTO prize_rules (
				name, match_type, game_type, min_participants, max_participants,
				min_entry_fee, max_entry_fee, min_prize_pool, max_prize_pool,
				distribution_type, position_table, percent_table, priority,
				is_default, is_active, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,TRUE,NOW())
			RETURNING id
		`, req.Name, nullString(req.MatchType), nullString(req.GameType),
			nullInt(req.MinParticipants), nullInt(req.MaxParticipants),
			nullInt(req.MinEntryFee), nullInt(req.MaxEntryFee),
			nullInt(req.MinPrizePool), nullInt(req.MaxPrizePool),
			req.DistributionType, req.PositionTable, req.PercentTable,
			req.Priority, req.IsDefault).Scan(&id)

		operator.LogAction(db, operatorIdentity(c), c.ClientIP(), c.FullPath(), "create_prize_rule",
			map[string]interface{}{"name": req.Name, "distribution_type": req.DistributionType}, err == nil)

		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// AdminUpdatePrizeRule toggles a rule's active flag or priority
func AdminUpdatePrizeRule(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ruleID, err := strconv.Atoi(c.Param("id"))
		if err != nil || ruleID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule id"})
			return
		}

		var req struct {
			IsActive *bool `json:"is_active"`
			Priority *int  `json:"priority"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || (req.IsActive == nil && req.Priority == nil) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_active or priority required"})
			return
		}

		res, err := db.Exec(`
			UPDATE prize_rules
			SET is_active = COALESCE($1, is_active),
			    priority = COALESCE($2, priority)
			WHERE id = $3
		`, req.IsActive, req.Priority, ruleID)
		if err != nil {
			respondError(c, err)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Prize rule not found"})
			return
		}

		operator.LogAction(db, operatorIdentity(c), c.ClientIP(), c.FullPath(), "update_prize_rule",
			map[string]interface{}{"rule_id": ruleID}, true)

		c.JSON(http.StatusOK, gin.H{"message": "Prize rule updated"})
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
