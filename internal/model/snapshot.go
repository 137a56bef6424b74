package model

import (
	"encoding/json"
	"time"
)

// Snapshot is the portable export document. Its JSON shape is a stable
// external contract: files exported by any version must stay importable.
type Snapshot struct {
	Accounts         []SnapshotAccount     `json:"accounts"`
	Transactions     []SnapshotTransaction `json:"transactions"`
	CustomCategories []string              `json:"customCategories"`
}

// SnapshotAccount is the exported form of an Account.
type SnapshotAccount struct {
	Metadata    map[string]string `json:"metadata,omitempty"`
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Balance     json.Number       `json:"balance"`
	CreditLimit json.Number       `json:"creditLimit"`
}

// SnapshotTransaction is the exported form of a Transaction. The owning
// account is recorded by id only.
type SnapshotTransaction struct {
	Notes     *string     `json:"notes,omitempty"`
	Date      time.Time   `json:"date"`
	ID        string      `json:"id"`
	Category  string      `json:"category"`
	AccountID string      `json:"accountID"`
	Amount    json.Number `json:"amount"`
	IsCredit  bool        `json:"isCredit"`
}
