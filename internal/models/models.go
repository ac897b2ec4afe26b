package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Player represents a user in the system. Balance is the custodial wallet
// balance in the smallest currency unit; it only moves through the ledger.
type Player struct {
	ID               int            `db:"id" json:"id"`
	PhoneNumber      string         `db:"phone_number" json:"phone_number"`
	DisplayName      string         `db:"display_name" json:"display_name"`
	Role             string         `db:"role" json:"role"`
	Balance          int64          `db:"balance" json:"balance"`
	Level            int            `db:"level" json:"level"`
	XP               int64          `db:"xp" json:"xp"`
	MatchesPlayed    int            `db:"matches_played" json:"matches_played"`
	MatchesWon       int            `db:"matches_won" json:"matches_won"`
	TotalKills       int            `db:"total_kills" json:"total_kills"`
	LifetimeEarnings int64          `db:"lifetime_earnings" json:"lifetime_earnings"`
	IsActive         bool           `db:"is_active" json:"is_active"`
	BlockReason      sql.NullString `db:"block_reason" json:"block_reason,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// Player roles
const (
	RolePlayer   = "player"
	RoleOperator = "operator"
)

// Match statuses
const (
	StatusUpcoming           = "upcoming"
	StatusRegistrationOpen   = "registration_open"
	StatusRegistrationClosed = "registration_closed"
	StatusRoomRevealed       = "room_revealed"
	StatusLive               = "live"
	StatusResultPending      = "result_pending"
	StatusCompleted          = "completed"
	StatusCancelled          = "cancelled"
)

// Match represents a scheduled contest. Room credentials stay hidden until
// RoomVisible flips; handlers must never serialize them before that.
type Match struct {
	ID                   int            `db:"id" json:"id"`
	Title                string         `db:"title" json:"title"`
	GameType             string         `db:"game_type" json:"game_type"`
	MatchType            string         `db:"match_type" json:"match_type"`
	ScheduledAt          time.Time      `db:"scheduled_at" json:"scheduled_at"`
	RegistrationCloseAt  time.Time      `db:"registration_close_at" json:"registration_close_at"`
	CredentialsRevealAt  time.Time      `db:"credentials_reveal_at" json:"credentials_reveal_at"`
	MaxSlots             int            `db:"max_slots" json:"max_slots"`
	FilledSlots          int            `db:"filled_slots" json:"filled_slots"`
	EntryFee             int64          `db:"entry_fee" json:"entry_fee"`
	PrizePool            int64          `db:"prize_pool" json:"prize_pool"`
	PerKillPrize         int64          `db:"per_kill_prize" json:"per_kill_prize"`
	PrizeDistribution    PrizeTable     `db:"prize_distribution" json:"prize_distribution,omitempty"`
	RuleID               sql.NullInt64  `db:"rule_id" json:"rule_id,omitempty"`
	MinLevel             int            `db:"min_level" json:"min_level"`
	RoomID               sql.NullString `db:"room_id" json:"-"`
	RoomPassword         sql.NullString `db:"room_password" json:"-"`
	RoomVisible          bool           `db:"room_visible" json:"room_visible"`
	Status               string         `db:"status" json:"status"`
	IsChallenge          bool           `db:"is_challenge" json:"is_challenge"`
	CreationFee          int64          `db:"creation_fee" json:"creation_fee"`
	CreatedBy            sql.NullInt64  `db:"created_by" json:"created_by,omitempty"`
	CancelReason         sql.NullString `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledBy          sql.NullString `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt          sql.NullTime   `db:"cancelled_at" json:"cancelled_at,omitempty"`
	RefundsProcessed     bool           `db:"refunds_processed" json:"refunds_processed"`
	Results              ResultList     `db:"results" json:"results,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// Screenshot statuses for a slot
const (
	ScreenshotNotUploaded = "not_uploaded"
	ScreenshotPending     = "pending"
	ScreenshotVerified    = "verified"
	ScreenshotRejected    = "rejected"
	ScreenshotFlagged     = "flagged"
)

// Slot is a participant's reservation within a match
type Slot struct {
	ID                   int            `db:"id" json:"id"`
	MatchID              int            `db:"match_id" json:"match_id"`
	PlayerID             int            `db:"player_id" json:"player_id"`
	SlotNumber           int            `db:"slot_number" json:"slot_number"`
	InGameName           string         `db:"in_game_name" json:"in_game_name"`
	InGameID             string         `db:"in_game_id" json:"in_game_id"`
	Kills                int            `db:"kills" json:"kills"`
	Position             int            `db:"position" json:"position"`
	PrizeWon             int64          `db:"prize_won" json:"prize_won"`
	PrizeDistributed     bool           `db:"prize_distributed" json:"prize_distributed"`
	ScreenshotURL        sql.NullString `db:"screenshot_url" json:"screenshot_url,omitempty"`
	ScreenshotHash       sql.NullString `db:"screenshot_hash" json:"-"`
	ScreenshotUploadedAt sql.NullTime   `db:"screenshot_uploaded_at" json:"screenshot_uploaded_at,omitempty"`
	ScreenshotStatus     string         `db:"screenshot_status" json:"screenshot_status"`
	RejectReason         sql.NullString `db:"reject_reason" json:"reject_reason,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
}

// Transaction directions
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// Transaction categories
const (
	CategoryMatchEntry       = "match_entry"
	CategoryMatchRefund      = "match_refund"
	CategoryMatchPrize       = "match_prize"
	CategoryPrizePoolEscrow  = "prize_pool_escrow"
	CategoryMatchCreationFee = "match_creation_fee"
	CategoryMatchAutoRefund  = "match_auto_refund"
	CategoryEscrowRefund     = "escrow_refund"
	CategoryCreationFeeRefund = "creation_fee_refund"
)

// Reference types for ledger rows
const (
	ReferenceMatch      = "match"
	ReferenceSlot       = "slot"
	ReferenceAdjustment = "adjustment"
)

// Transaction is one immutable wallet movement. Rows are never mutated
// after insert except for Status (pending -> completed/failed).
type Transaction struct {
	ID            int           `db:"id" json:"id"`
	PlayerID      int           `db:"player_id" json:"player_id"`
	Direction     string        `db:"direction" json:"direction"`
	Category      string        `db:"category" json:"category"`
	Amount        int64         `db:"amount" json:"amount"`
	BalanceBefore int64         `db:"balance_before" json:"balance_before"`
	BalanceAfter  int64         `db:"balance_after" json:"balance_after"`
	ReferenceType string        `db:"reference_type" json:"reference_type"`
	ReferenceID   sql.NullInt64 `db:"reference_id" json:"reference_id,omitempty"`
	Status        string        `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// ScreenshotHash is the content-hash index entry for one upload
type ScreenshotHash struct {
	ID          int           `db:"id" json:"id"`
	ContentHash string        `db:"content_hash" json:"content_hash"`
	PlayerID    int           `db:"player_id" json:"player_id"`
	MatchID     int           `db:"match_id" json:"match_id"`
	IsDuplicate bool          `db:"is_duplicate" json:"is_duplicate"`
	DuplicateOf sql.NullInt64 `db:"duplicate_of" json:"duplicate_of,omitempty"`
	Status      string        `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// Prize distribution types
const (
	DistributionPositionBased = "position_based"
	DistributionKillBased     = "kill_based"
	DistributionPercentage    = "percentage"
	DistributionHybrid        = "hybrid"
)

// PrizeRule matches a class of matches to a distribution configuration.
// Highest priority active rule wins; IsDefault marks the final fallback.
type PrizeRule struct {
	ID               int            `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	MatchType        sql.NullString `db:"match_type" json:"match_type,omitempty"`
	GameType         sql.NullString `db:"game_type" json:"game_type,omitempty"`
	MinParticipants  sql.NullInt64  `db:"min_participants" json:"min_participants,omitempty"`
	MaxParticipants  sql.NullInt64  `db:"max_participants" json:"max_participants,omitempty"`
	MinEntryFee      sql.NullInt64  `db:"min_entry_fee" json:"min_entry_fee,omitempty"`
	MaxEntryFee      sql.NullInt64  `db:"max_entry_fee" json:"max_entry_fee,omitempty"`
	MinPrizePool     sql.NullInt64  `db:"min_prize_pool" json:"min_prize_pool,omitempty"`
	MaxPrizePool     sql.NullInt64  `db:"max_prize_pool" json:"max_prize_pool,omitempty"`
	DistributionType string         `db:"distribution_type" json:"distribution_type"`
	PositionTable    PrizeTable     `db:"position_table" json:"position_table,omitempty"`
	PercentTable     PercentTable   `db:"percent_table" json:"percent_table,omitempty"`
	Priority         int            `db:"priority" json:"priority"`
	IsDefault        bool           `db:"is_default" json:"is_default"`
	IsActive         bool           `db:"is_active" json:"is_active"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// PrizeTier is one position -> fixed amount entry
type PrizeTier struct {
	Position int   `json:"position"`
	Amount   int64 `json:"amount"`
}

// PrizeTable is a jsonb column of PrizeTier entries
type PrizeTable []PrizeTier

func (t PrizeTable) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

func (t *PrizeTable) Scan(src interface{}) error {
	return scanJSON(src, t)
}

// PercentTier is one position -> percentage-of-pool entry
type PercentTier struct {
	Position int     `json:"position"`
	Percent  float64 `json:"percent"`
}

// PercentTable is a jsonb column of PercentTier entries
type PercentTable []PercentTier

func (t PercentTable) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

func (t *PercentTable) Scan(src interface{}) error {
	return scanJSON(src, t)
}

// Result is one finalized standing entry, snapshotted onto the match
// when it completes
type Result struct {
	PlayerID   int    `json:"player_id"`
	SlotNumber int    `json:"slot_number"`
	Position   int    `json:"position"`
	Kills      int    `json:"kills"`
	PrizeWon   int64  `json:"prize_won"`
	InGameName string `json:"in_game_name"`
}

// ResultList is a jsonb column of finalized Results sorted by position
type ResultList []Result

func (r ResultList) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func (r *ResultList) Scan(src interface{}) error {
	return scanJSON(src, r)
}

// OperatorAccount is a privileged account used for match administration
type OperatorAccount struct {
	Phone       string    `db:"phone" json:"phone"`
	DisplayName string    `db:"display_name" json:"display_name"`
	TokenHash   string    `db:"token_hash" json:"-"`
	Roles       []string  `db:"roles" json:"roles"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// OperatorAudit is one recorded operator action
type OperatorAudit struct {
	ID            int             `db:"id" json:"id"`
	OperatorPhone string          `db:"operator_phone" json:"operator_phone"`
	IP            string          `db:"ip" json:"ip"`
	Route         string          `db:"route" json:"route"`
	Action        string          `db:"action" json:"action"`
	Details       json.RawMessage `db:"details" json:"details"`
	Success       bool            `db:"success" json:"success"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

func scanJSON(src, dst interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
