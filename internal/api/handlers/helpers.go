package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playarena/backend/internal/match"
	"github.com/playarena/backend/internal/screenshot"
	"github.com/playarena/backend/internal/wallet"
)

// respondError translates domain errors to HTTP responses. No domain
// error is swallowed: anything unmapped logs and becomes a 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, match.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, match.ErrValidation),
		errors.Is(err, wallet.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient wallet balance"})
	case errors.Is(err, match.ErrMatchFull),
		errors.Is(err, match.ErrAlreadyJoined),
		errors.Is(err, match.ErrSlotTaken),
		errors.Is(err, match.ErrAlreadyVerified),
		errors.Is(err, match.ErrChallengeHasOpponent),
		errors.Is(err, screenshot.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, match.ErrOwnChallenge),
		errors.Is(err, match.ErrOperatorJoin),
		errors.Is(err, match.ErrNotCreator),
		errors.Is(err, match.ErrLevelTooLow):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, match.ErrNotJoinable),
		errors.Is(err, match.ErrLeaveWindowClosed),
		errors.Is(err, match.ErrStateTransition),
		errors.Is(err, match.ErrNotChallenge),
		errors.Is(err, match.ErrNotParticipant),
		errors.Is(err, match.ErrPrizeCapExceeded):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("[API] Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// playerID returns the authenticated player's id set by the auth
// middleware
func playerID(c *gin.Context) int {
	return c.GetInt("player_id")
}

// matchIDParam parses the :id path segment
func matchIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match id"})
		return 0, false
	}
	return id, true
}
