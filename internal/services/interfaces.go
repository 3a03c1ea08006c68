package services

import (
	"time"

	"gorm.io/gorm"

	"moneta/internal/models"
	"moneta/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(username, email, password string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	AttemptLogin(username, password string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// BudgetServicer defines the contract for budget-related business logic.
// EnsureFreeBudget and Debit accept the caller's transaction handle so they
// can participate in a larger atomic unit of work.
type BudgetServicer interface {
	CreateBudget(userID uint, title string, totalAmount int64, startDate time.Time, endDate *time.Time) (*models.Budget, error)
	EnsureFreeBudget(tx *gorm.DB, userID uint) error
	BackfillFreeBudgets() (int, error)
	GetUserBudgets(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID uint) (*models.Budget, error)
	UpdateBudget(userID, budgetID uint, title string, totalAmount *int64, startDate, endDate *time.Time) (*models.Budget, error)
	DeleteBudget(userID, budgetID uint) error
	Debit(tx *gorm.DB, budgetID uint, amount int64) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Type      *models.TransactionType
	BudgetID  *uint
	MinAmount *int64
	MaxAmount *int64
}

// TransactionUpdate holds the fields of a transaction that may be patched.
// Nil pointers leave the field untouched; ClearBudget detaches the
// transaction from its budget.
type TransactionUpdate struct {
	Title       *string
	Amount      *int64
	Type        *models.TransactionType
	Notes       *string
	Date        *time.Time
	BudgetID    *uint
	ClearBudget bool
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID uint, title string, amount int64, txType models.TransactionType, notes string, budgetID *uint, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID uint) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID uint, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID uint) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
