package domain

import "time"

// TimestampLayout is the wire and storage format of ledger timestamps.
const TimestampLayout = "2006-01-02T15:04:05Z"

// FormatTimestamp renders t in UTC at second resolution.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// TransactionRequest is what a client submits to the ledger.
type TransactionRequest struct {
	TransactionID  string
	ItemID         int64
	Delta          int
	SubmittingUser string
}

// Transaction is an immutable history row.
type Transaction struct {
	TransactionID  string `json:"transactionid"`
	ItemID         int64  `json:"itemid"`
	Delta          int    `json:"delta"`
	SubmittingUser string `json:"user"`
	ProcessedAtUTC string `json:"processed_utc"`
}

// CurrentCount is the running total of one item.
type CurrentCount struct {
	ItemID        int64  `json:"itemid"`
	Count         int    `json:"count"`
	LastEditedUTC string `json:"last_edited_utc,omitempty"`
}

type OutcomeStatus string

const (
	OutcomeApplied   OutcomeStatus = "applied"
	OutcomeDiscarded OutcomeStatus = "discarded"
)

type DiscardReason string

const (
	ReasonNone      DiscardReason = ""
	ReasonZeroDelta DiscardReason = "zero_delta"
	ReasonDuplicate DiscardReason = "duplicate"
)

// Outcome reports what the ledger did with a transaction. Count is the item's
// running total after the transaction and is only meaningful when applied.
type Outcome struct {
	TransactionID string
	Status        OutcomeStatus
	Reason        DiscardReason
	Count         int
}

func Applied(transactionID string, count int) Outcome {
	return Outcome{TransactionID: transactionID, Status: OutcomeApplied, Count: count}
}

func Discarded(transactionID string, reason DiscardReason) Outcome {
	return Outcome{TransactionID: transactionID, Status: OutcomeDiscarded, Reason: reason}
}
