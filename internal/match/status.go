package match

import (
	"time"

	"github.com/playarena/backend/internal/models"
)

// statusRank orders the forward lifecycle. Cancelled sits outside the
// ranking: it is reachable from any non-terminal status and is terminal.
var statusRank = map[string]int{
	models.StatusUpcoming:           0,
	models.StatusRegistrationOpen:   1,
	models.StatusRegistrationClosed: 2,
	models.StatusRoomRevealed:       3,
	models.StatusLive:               4,
	models.StatusResultPending:      5,
	models.StatusCompleted:          6,
}

// IsTerminal reports whether a status can never change again
func IsTerminal(status string) bool {
	return status == models.StatusCompleted || status == models.StatusCancelled
}

// CanTransition reports whether a status move is legal: strictly forward
// through the lifecycle, or the universal escape to cancelled.
func CanTransition(from, to string) bool {
	if from == to || IsTerminal(from) {
		return false
	}
	if to == models.StatusCancelled {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// IsJoinable reports whether a player may take a slot right now
func IsJoinable(m *models.Match, now time.Time) bool {
	if m.Status != models.StatusUpcoming && m.Status != models.StatusRegistrationOpen {
		return false
	}
	if m.FilledSlots >= m.MaxSlots {
		return false
	}
	return !now.After(m.RegistrationCloseAt)
}

// RegistrationClose derives when registration shuts. Challenges stay open
// until the scheduled start; standard matches close earlier.
func RegistrationClose(scheduledAt time.Time, isChallenge bool, closeMinutes int) time.Time {
	if isChallenge {
		return scheduledAt
	}
	return scheduledAt.Add(-time.Duration(closeMinutes) * time.Minute)
}

// CredentialsReveal derives when room credentials become visible on the
// time-based path
func CredentialsReveal(scheduledAt time.Time, revealMinutes int) time.Time {
	return scheduledAt.Add(-time.Duration(revealMinutes) * time.Minute)
}

// LeaveRefund is the amount returned when a player leaves voluntarily:
// the entry fee less the cancellation-fee percentage
func LeaveRefund(entryFee int64, feePercent int) int64 {
	if feePercent < 0 || feePercent > 100 {
		feePercent = 0
	}
	return entryFee - entryFee*int64(feePercent)/100
}

// screenshotTerminal reports whether a slot's screenshot review is done
func screenshotTerminal(status string) bool {
	switch status {
	case models.ScreenshotVerified, models.ScreenshotRejected, models.ScreenshotFlagged:
		return true
	}
	return false
}
