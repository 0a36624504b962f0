package domain

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	"github.com/smallbiznis/tradebook/internal/sequence/format"
)

type EntryKind string

const (
	EntrySettlement EntryKind = "settlement"
	EntryPayment    EntryKind = "payment"
)

// Entry is one statement line. Debit raises what the counterparty owes,
// Credit lowers it.
type Entry struct {
	Kind           EntryKind       `json:"kind"`
	DocumentNumber string          `json:"document_number"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	Balance        decimal.Decimal `json:"balance"`
}

type Statement struct {
	CounterpartyID  snowflake.ID     `json:"counterparty_id"`
	Side            orderdomain.Side `json:"side"`
	Start           time.Time        `json:"start"`
	End             time.Time        `json:"end"`
	PreviousBalance decimal.Decimal  `json:"previous_balance"`
	TotalSettled    decimal.Decimal  `json:"total_settled"`
	TotalCollected  decimal.Decimal  `json:"total_collected"`
	ClosingBalance  decimal.Decimal  `json:"closing_balance"`
	// Entries are newest first.
	Entries       []Entry          `json:"entries"`
	StoredBalance *decimal.Decimal `json:"stored_balance,omitempty"`
	Consistent    *bool            `json:"consistent,omitempty"`
}

// BuildStatement orders entries chronologically, runs the balance forward
// from previous, and returns them newest first with the range totals.
func BuildStatement(previous decimal.Decimal, entries []Entry) (out []Entry, debit, credit, closing decimal.Decimal) {
	out = make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return entryLess(out[i], out[j]) })

	running := previous
	debit, credit = decimal.Zero, decimal.Zero
	for i := range out {
		running = running.Add(out[i].Debit).Sub(out[i].Credit)
		out[i].Balance = running
		debit = debit.Add(out[i].Debit)
		credit = credit.Add(out[i].Credit)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, debit, credit, running
}

// entryLess breaks timestamp ties by the document's date key and sequence,
// then by the full number so the order is total.
func entryLess(a, b Entry) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.Before(b.OccurredAt)
	}
	_, aKey, aSeq, aErr := format.Parse(a.DocumentNumber)
	_, bKey, bSeq, bErr := format.Parse(b.DocumentNumber)
	if aErr == nil && bErr == nil {
		if aKey != bKey {
			return aKey < bKey
		}
		if aSeq != bSeq {
			return aSeq < bSeq
		}
	}
	return a.DocumentNumber < b.DocumentNumber
}
