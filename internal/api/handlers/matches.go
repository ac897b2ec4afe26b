package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/match"
	"github.com/playarena/backend/internal/media"
	"github.com/playarena/backend/internal/models"
	"github.com/playarena/backend/internal/screenshot"
	"github.com/redis/go-redis/v9"
)

// matchView is the public representation of a match; room credentials
// appear only once the reveal condition is met, and only to participants
type matchView struct {
	*models.Match
	RoomID       string `json:"room_id,omitempty"`
	RoomPassword string `json:"room_password,omitempty"`
}

// credentialsRevealed covers both reveal paths: the match filled (the
// write side set room_visible) or the reveal time passed
func credentialsRevealed(m *models.Match, now time.Time) bool {
	if m.Status == models.StatusCancelled {
		return false
	}
	return m.RoomVisible || !now.Before(m.CredentialsRevealAt)
}

func viewOf(m *models.Match, participant bool, now time.Time) matchView {
	v := matchView{Match: m}
	if participant && credentialsRevealed(m, now) {
		v.RoomID = m.RoomID.String
		v.RoomPassword = m.RoomPassword.String
	}
	return v
}

// ListMatches returns non-terminal matches soonest-first
func ListMatches(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		matches, err := match.List(db, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}

		now := time.Now()
		views := make([]matchView, 0, len(matches))
		for i := range matches {
			views = append(views, viewOf(&matches[i], false, now))
		}
		c.JSON(http.StatusOK, gin.H{"matches": views})
	}
}

// GetMatch returns one match with its slots; credentials only for
// participants after reveal
func GetMatch(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		m, err := match.Get(db, matchID)
		if err != nil {
			respondError(c, err)
			return
		}
		slots, err := match.Slots(db, matchID)
		if err != nil {
			respondError(c, err)
			return
		}

		participant := false
		for i := range slots {
			if slots[i].PlayerID == playerID(c) {
				participant = true
				break
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"match": viewOf(m, participant, time.Now()),
			"slots": slots,
		})
	}
}

// JoinMatch takes a slot and debits the entry fee
func JoinMatch(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		var req struct {
			InGameID   string `json:"in_game_id" binding:"required"`
			InGameName string `json:"in_game_name" binding:"required"`
			SlotNumber int    `json:"slot_number"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "in_game_id and in_game_name required"})
			return
		}

		res, err := match.Join(db, cfg, matchID, playerID(c), match.JoinParams{
			InGameID:   req.InGameID,
			InGameName: req.InGameName,
			SlotNumber: req.SlotNumber,
		}, time.Now())
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// LeaveMatch gives the slot up for a 90% refund
func LeaveMatch(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		refund, err := match.Leave(db, cfg, matchID, playerID(c), time.Now())
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"refund_amount": refund})
	}
}

// UploadScreenshot accepts a proof image, rejects content-hash
// duplicates, stores the image, and queues the slot for manual review
func UploadScreenshot(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}
		pid := playerID(c)

		m, err := match.Get(db, matchID)
		if err != nil {
			respondError(c, err)
			return
		}
		if m.Status == models.StatusCancelled || m.Status == models.StatusCompleted {
			respondError(c, fmt.Errorf("match is %s: %w", m.Status, match.ErrStateTransition))
			return
		}
		if _, err := match.SlotFor(db, matchID, pid); err != nil {
			respondError(c, err)
			return
		}

		// Rate limit per player
		if rdb != nil && cfg.UploadRateLimitSeconds > 0 {
			key := fmt.Sprintf("screenshot_rate:%d", pid)
			ttl := time.Duration(cfg.UploadRateLimitSeconds) * time.Second
			ok, err := rdb.SetNX(context.Background(), key, "1", ttl).Result()
			if err == nil && !ok {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "Upload rate limit exceeded"})
				return
			}
		}

		fileHeader, err := c.FormFile("screenshot")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "screenshot file required"})
			return
		}
		if fileHeader.Size > cfg.MaxScreenshotBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "screenshot too large"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, cfg.MaxScreenshotBytes+1))
		if err != nil {
			respondError(c, err)
			return
		}

		hash := screenshot.Hash(data)

		// Duplicate check before paying for storage
		original, err := screenshot.CheckDuplicate(db, hash)
		if err != nil {
			respondError(c, err)
			return
		}
		if original != nil {
			respondError(c, screenshot.FlagDuplicate(db, matchID, pid, hash, original.ID))
			return
		}

		if media.Default == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Uploads are not configured"})
			return
		}
		contentType := fileHeader.Header.Get("Content-Type")
		url, err := media.Default.Upload(c.Request.Context(), media.ScreenshotKey(matchID), contentType, data)
		if err != nil {
			log.Printf("[API] Screenshot upload failed for match %d player %d: %v", matchID, pid, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to store screenshot"})
			return
		}

		if err := screenshot.Attach(db, matchID, pid, hash, url); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": models.ScreenshotPending})
	}
}
