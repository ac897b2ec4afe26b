package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/match"
	"github.com/playarena/backend/internal/models"
	"github.com/playarena/backend/internal/operator"
)

func operatorIdentity(c *gin.Context) string {
	if phone := c.GetString("phone"); phone != "" {
		return phone
	}
	return fmt.Sprintf("player:%d", playerID(c))
}

// AdminCreateMatch creates a standard operator-funded match
func AdminCreateMatch(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Title             string            `json:"title" binding:"required"`
			GameType          string            `json:"game_type" binding:"required"`
			MatchType         string            `json:"match_type"`
			ScheduledAt       string            `json:"scheduled_at" binding:"required"`
			MaxSlots          int               `json:"max_slots" binding:"required"`
			EntryFee          int64             `json:"entry_fee"`
			PrizePool         int64             `json:"prize_pool"`
			PerKillPrize      int64             `json:"per_kill_prize"`
			PrizeDistribution models.PrizeTable `json:"prize_distribution"`
			MinLevel          int               `json:"min_level"`
			RoomID            string            `json:"room_id"`
			RoomPassword      string            `json:"room_password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required match fields"})
			return
		}

		scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_at must be RFC3339"})
			return
		}

		m, err := match.Create(db, cfg, match.CreateParams{
			Title:             req.Title,
			GameType:          req.GameType,
			MatchType:         req.MatchType,
			ScheduledAt:       scheduledAt,
			MaxSlots:          req.MaxSlots,
			EntryFee:          req.EntryFee,
			PrizePool:         req.PrizePool,
			PerKillPrize:      req.PerKillPrize,
			PrizeDistribution: req.PrizeDistribution,
			MinLevel:          req.MinLevel,
			RoomID:            req.RoomID,
			RoomPassword:      req.RoomPassword,
		}, time.Now())

		operator.LogAction(db, operatorIdentity(c), c.ClientIP(), c.FullPath(), "create_match",
			map[string]interface{}{"title": req.Title, "scheduled_at": req.ScheduledAt}, err == nil)

		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"match": m})
	}
}

// AdminRescheduleMatch moves a match and recomputes its derived times
func AdminRescheduleMatch(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		var req struct {
			ScheduledAt string `json:"scheduled_at" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_at required"})
			return
		}
		scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_at must be RFC3339"})
			return
		}

		err = match.Reschedule(db, cfg, matchID, scheduledAt)

		operator.LogAction(db, operatorIdentity(c), c.ClientIP(), c.FullPath(), "reschedule_match",
			map[string]interface{}{"match_id": matchID, "scheduled_at": req.ScheduledAt}, err == nil)

		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Match rescheduled"})
	}
}

// AdminCancelMatch cancels a match and refunds every participant in full
func AdminCancelMatch(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		var req struct {
			Reason string `json:"reason"`
		}
		c.ShouldBindJSON(&req)
		if req.Reason == "" {
			req.Reason = "cancelled by operator"
		}

		err := match.Cancel(db, matchID, req.Reason, operatorIdentity(c), false)

		operator.LogAction(db, operatorIdentity(c), c.ClientIP(), c.FullPath(), "cancel_match",
			map[string]interface{}{"match_id": matchID, "reason": req.Reason}, err == nil)

		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Match cancelled, refunds processed"})
	}
}

// AdminVerifyResult approves or rejects one participant's screenshot
func AdminVerifyResult(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		var req struct {
			PlayerID     int    `json:"player_id" binding:"required"`
			Approve      *bool  `json:"approve" binding:"required"`
			Position     int    `json:"position"`
			Kills        int    `json:"kills"`
			RejectReason string `json:"reject_reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_id and approve required"})
			return
		}

		err := match.VerifyResult(db, matchID, req.PlayerID, req.Position, req.Kills, *req.Approve, req.RejectReason)

		operator.LogAction(db, operatorIdentity(c), c.ClientIP(), c.FullPath(), "verify_result",
			map[string]interface{}{"match_id": matchID, "player_id": req.PlayerID, "approve": *req.Approve}, err == nil)

		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Result verification recorded"})
	}
}

// AdminDeclareWinners posts final standings and pays prizes
func AdminDeclareWinners(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		var req struct {
			Results []struct {
				PlayerID int `json:"player_id" binding:"required"`
				Position int `json:"position" binding:"required"`
				Kills    int `json:"kills"`
			} `json:"results" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || len(req.Results) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "results list required"})
			return
		}

		entries := make([]match.ResultEntry, 0, len(req.Results))
		for _, r := range req.Results {
			entries = append(entries, match.ResultEntry{
				PlayerID: r.PlayerID,
				Position: r.Position,
				Kills:    r.Kills,
			})
		}

		err := match.DeclareResults(db, matchID, entries)

		operator.LogAction(db, operatorIdentity(c), c.ClientIP(), c.FullPath(), "declare_winners",
			map[string]interface{}{"match_id": matchID, "results": len(entries)}, err == nil)

		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Winners declared, prizes distributed"})
	}
}

// AdminAuditLogs lists recent operator actions
func AdminAuditLogs(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		logs, err := operator.AuditLogs(db, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs})
	}
}
