package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/match"
)

// CreateChallenge opens a 1v1 match funded by the creator
func CreateChallenge(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Title        string `json:"title" binding:"required"`
			GameType     string `json:"game_type" binding:"required"`
			ScheduledAt  string `json:"scheduled_at" binding:"required"`
			EntryFee     int64  `json:"entry_fee"`
			PrizePool    int64  `json:"prize_pool"`
			RoomID       string `json:"room_id"`
			RoomPassword string `json:"room_password"`
			InGameID     string `json:"in_game_id" binding:"required"`
			InGameName   string `json:"in_game_name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required challenge fields"})
			return
		}

		scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_at must be RFC3339"})
			return
		}

		m, err := match.CreateChallenge(db, cfg, playerID(c), match.ChallengeParams{
			Title:        req.Title,
			GameType:     req.GameType,
			ScheduledAt:  scheduledAt,
			EntryFee:     req.EntryFee,
			PrizePool:    req.PrizePool,
			RoomID:       req.RoomID,
			RoomPassword: req.RoomPassword,
			InGameID:     req.InGameID,
			InGameName:   req.InGameName,
		}, time.Now())
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"match": m})
	}
}

// AcceptChallenge joins the open slot of a challenge
func AcceptChallenge(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		var req struct {
			InGameID   string `json:"in_game_id" binding:"required"`
			InGameName string `json:"in_game_name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "in_game_id and in_game_name required"})
			return
		}

		res, err := match.AcceptChallenge(db, cfg, matchID, playerID(c), match.JoinParams{
			InGameID:   req.InGameID,
			InGameName: req.InGameName,
			SlotNumber: 2,
		}, time.Now())
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// CancelChallenge lets the creator withdraw an unaccepted challenge
// and recover the escrow
func CancelChallenge(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		if err := match.CancelChallenge(db, matchID, playerID(c)); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Challenge cancelled, escrow refunded"})
	}
}
