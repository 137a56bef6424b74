package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the closed set of account kinds. The value is the stable tag
// used in storage and in snapshot documents.
type AccountType string

// Asset account types.
const (
	AccountTypeBank              AccountType = "Bank Account"
	AccountTypeCash              AccountType = "Cash"
	AccountTypeInvestment        AccountType = "Investment"
	AccountTypeMutualFund        AccountType = "Mutual Fund"
	AccountTypeSavings           AccountType = "Savings"
	AccountTypePersonalLoanGiven AccountType = "Personal Loan Given"
)

// Liability account types.
const (
	AccountTypeCreditCard AccountType = "Credit Card"
	AccountTypeLoan       AccountType = "Loan"
	AccountTypeMortgage   AccountType = "Mortgage"
)

// AccountTypes lists every account type in display order.
var AccountTypes = []AccountType{
	AccountTypeBank,
	AccountTypeCash,
	AccountTypeInvestment,
	AccountTypeMutualFund,
	AccountTypeSavings,
	AccountTypePersonalLoanGiven,
	AccountTypeCreditCard,
	AccountTypeLoan,
	AccountTypeMortgage,
}

// IsValid reports whether t is one of the known account types.
func (t AccountType) IsValid() bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsAsset reports whether balances of this type represent money owned.
func (t AccountType) IsAsset() bool {
	switch t {
	case AccountTypeBank, AccountTypeCash, AccountTypeInvestment,
		AccountTypeMutualFund, AccountTypeSavings, AccountTypePersonalLoanGiven:
		return true
	default:
		return false
	}
}

// IsMutualFund reports whether t is a mutual fund.
func (t AccountType) IsMutualFund() bool {
	return t == AccountTypeMutualFund
}

// ParseAccountType resolves a type tag. The boolean is false for unknown tags.
func ParseAccountType(tag string) (AccountType, bool) {
	t := AccountType(tag)
	return t, t.IsValid()
}

// Well-known metadata keys.
const (
	MetaInterestRate     = "interestRate"
	MetaLastInterestDate = "lastInterestDate"
	MetaBorrowerName     = "borrowerName"
	MetaLoanDate         = "loanDate"
	MetaNotes            = "notes"
)

// Account is a ledger account.
//
// CreditLimit is overloaded by type: the credit ceiling for credit cards, the
// original principal for loans and personal loans given, and the invested cost
// basis for mutual funds.
type Account struct {
	Metadata    map[string]string
	CreatedAt   time.Time
	ID          string
	Name        string
	Type        AccountType
	Balance     decimal.Decimal
	CreditLimit decimal.Decimal
}

// Meta returns the metadata value for key and whether it was set.
func (a *Account) Meta(key string) (string, bool) {
	if a.Metadata == nil {
		return "", false
	}
	v, ok := a.Metadata[key]
	return v, ok
}

// SetMeta sets a metadata value, allocating the map when needed.
func (a *Account) SetMeta(key, value string) {
	if a.Metadata == nil {
		a.Metadata = make(map[string]string)
	}
	a.Metadata[key] = value
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	if a.Metadata != nil {
		meta := make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			meta[k] = v
		}
		a.Metadata = meta
	}
	return a
}
