package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the recognized transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction represents a single income or expense event. BudgetID is a
// weak reference: deleting the budget clears it without removing the
// transaction.
type Transaction struct {
	Base
	UserID   uint            `gorm:"not null;index" json:"user_id"`
	Title    string          `gorm:"size:255;not null" json:"title"`
	Amount   int64           `gorm:"type:bigint;not null" json:"amount"`
	Type     TransactionType `gorm:"size:8;not null" json:"type"`
	Date     time.Time       `gorm:"not null" json:"date"`
	Notes    string          `json:"notes"`
	BudgetID *uint           `gorm:"index" json:"budget_id,omitempty"`

	// Relationships
	Budget *Budget `gorm:"foreignKey:BudgetID;constraint:OnDelete:SET NULL" json:"budget,omitempty"`
}
