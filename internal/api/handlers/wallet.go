package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/wallet"
)

// GetBalance returns the caller's current wallet balance
func GetBalance(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		balance, err := wallet.Balance(db, playerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": balance})
	}
}

// GetTransactions returns the caller's ledger, newest first, with
// optional from/to date filters
func GetTransactions(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		var from, to *time.Time
		if s := c.Query("from"); s != "" {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
				return
			}
			from = &t
		}
		if s := c.Query("to"); s != "" {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
				return
			}
			// Include the whole end day
			end := t.Add(24 * time.Hour)
			to = &end
		}

		txns, err := wallet.History(db, playerID(c), from, to, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": txns})
	}
}

// GetWalletSummary returns per-day credit/debit totals
func GetWalletSummary(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
		if days < 1 || days > 365 {
			days = 30
		}

		summary, err := wallet.Summarize(db, playerID(c), days)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": summary})
	}
}
