package models

import "time"

const (
	// FreeBudgetTitle is the reserved title of the auto-provisioned budget
	// every user owns. The free budget has no end date and never debits.
	FreeBudgetTitle = "free"

	// FreeBudgetAmount is the sentinel allocation of the free budget.
	FreeBudgetAmount int64 = 999_999_999_999
)

// Budget represents a spending envelope owned by a user. TotalAmount is the
// remaining allocation in minor currency units; EndDate is nil only for the
// free budget.
type Budget struct {
	Base
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Title       string     `gorm:"size:100;not null" json:"title"`
	TotalAmount int64      `gorm:"type:bigint;not null" json:"total_amount"`
	StartDate   time.Time  `gorm:"not null" json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// IsFree reports whether this is the user's unlimited free budget.
func (b *Budget) IsFree() bool {
	return b.Title == FreeBudgetTitle
}
