package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"moneta/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique
// username/email. No free budget is provisioned; use CreateTestFreeBudget
// when a test needs one.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	n := nextID()
	return CreateTestUserWithName(t, db, fmt.Sprintf("user%d", n))
}

// CreateTestUserWithName creates a user with the given username.
func CreateTestUserWithName(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username: username,
		Email:    username + "@test.com",
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestBudget creates a capped budget with the given allocation and window.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID uint, total int64, start time.Time, end time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:      userID,
		Title:       fmt.Sprintf("Budget %d", nextID()),
		TotalAmount: total,
		StartDate:   start,
		EndDate:     &end,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestFreeBudget creates the user's free budget directly.
func CreateTestFreeBudget(t *testing.T, db *gorm.DB, userID uint) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:      userID,
		Title:       models.FreeBudgetTitle,
		TotalAmount: models.FreeBudgetAmount,
		StartDate:   time.Now(),
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test free budget: %v", err)
	}
	return budget
}

// CreateTestTransaction creates a transaction of the given type and amount,
// optionally attached to a budget. The budget rules are bypassed; use the
// transaction service when a test needs them enforced.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID uint, txType models.TransactionType, amount int64, budgetID *uint) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:   userID,
		Title:    fmt.Sprintf("Transaction %d", nextID()),
		Type:     txType,
		Amount:   amount,
		Date:     time.Now(),
		BudgetID: budgetID,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
