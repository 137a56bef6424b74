package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single movement against one account.
//
// Amount is always a non-negative magnitude; IsCredit carries the direction,
// interpreted through the owning account's polarity rule.
type Transaction struct {
	Date      time.Time
	CreatedAt time.Time
	ID        string
	AccountID string
	Category  Category
	Notes     string
	Amount    decimal.Decimal
	IsCredit  bool
}

// Day returns the calendar day the transaction belongs to, in the location of
// its date.
func (t *Transaction) Day() time.Time {
	y, m, d := t.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Date.Location())
}

// SignedAmount returns the amount as a flow: positive for credits, negative
// for debits. It ignores account polarity and is used for reporting.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.IsCredit {
		return t.Amount
	}
	return t.Amount.Neg()
}
