package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moneta/internal/config"
	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// transactionService handles transaction-related business logic, including
// the budget admissibility rules.
type transactionService struct {
	db            *gorm.DB
	budgetService BudgetServicer
	policy        config.CapacityPolicy
}

// NewTransactionService creates a new TransactionServicer with the given
// capacity policy.
func NewTransactionService(db *gorm.DB, budgetService BudgetServicer, policy config.CapacityPolicy) TransactionServicer {
	return &transactionService{
		db:            db,
		budgetService: budgetService,
		policy:        policy,
	}
}

// CreateTransaction creates a new transaction for the user. When a budget
// is attached, the window, type, and capacity rules are enforced and any
// capacity debit happens in the same database transaction as the insert.
func (s *transactionService) CreateTransaction(
	userID uint,
	title string,
	amount int64,
	txType models.TransactionType,
	notes string,
	budgetID *uint,
	date time.Time,
) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if !txType.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if date.IsZero() {
		date = time.Now()
	}

	transaction := &models.Transaction{
		UserID:   userID,
		Title:    title,
		Amount:   amount,
		Type:     txType,
		Date:     date,
		Notes:    notes,
		BudgetID: budgetID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if budgetID != nil {
			budget, err := getUserBudget(tx, userID, *budgetID, s.policy == config.CapacityPolicyRecompute)
			if err != nil {
				return err
			}
			needDebit, err := s.validateAgainstBudget(tx, budget, amount, txType, date, 0)
			if err != nil {
				return err
			}
			if needDebit {
				if err := s.budgetService.Debit(tx, budget.ID, amount); err != nil {
					return err
				}
			}
		}
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// validateAgainstBudget applies the admissibility rules for a proposed
// transaction against a capped budget: the free budget accepts anything,
// the date must fall inside the budget window, income is never allowed, and
// expenses must fit the remaining capacity. excludeID removes the
// transaction's own prior row from the recomputed position on updates.
// The returned flag tells the caller whether acceptance must debit the
// budget (only under the debit policy, where the sufficiency check itself
// is deferred to the atomic debit).
func (s *transactionService) validateAgainstBudget(
	tx *gorm.DB,
	budget *models.Budget,
	amount int64,
	txType models.TransactionType,
	date time.Time,
	excludeID uint,
) (bool, error) {
	if budget.IsFree() {
		return false, nil
	}

	// Budget windows have day granularity.
	day := startOfDay(date)
	if day.Before(startOfDay(budget.StartDate)) {
		return false, apperrors.ErrOutOfBudgetWindow
	}
	if budget.EndDate != nil && day.After(startOfDay(*budget.EndDate)) {
		return false, apperrors.ErrOutOfBudgetWindow
	}

	if txType == models.TransactionTypeIncome {
		return false, apperrors.ErrIncomeNotAllowed
	}

	if s.policy == config.CapacityPolicyRecompute {
		// The caller holds the budget row lock, so two of these sums cannot
		// interleave against the same budget.
		query := tx.Model(&models.Transaction{}).Where("budget_id = ?", budget.ID)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		var net int64
		if err := query.
			Select("COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE -amount END), 0)", models.TransactionTypeExpense).
			Scan(&net).Error; err != nil {
			return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if net+amount > budget.TotalAmount {
			return false, apperrors.ErrInsufficientFunds
		}
		return false, nil
	}

	return true, nil
}

// GetUserTransactions retrieves a paginated, filtered list of the user's
// transactions, newest first.
func (s *transactionService) GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.BudgetID != nil {
		q = q.Where("budget_id = ?", *f.BudgetID)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user.
func (s *transactionService) GetTransactionByID(userID, transactionID uint) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction patches a transaction. Changing the amount, type, date,
// or budget re-runs the full admissibility check against the resulting
// state, with the transaction's own prior contribution excluded.
func (s *transactionService) UpdateTransaction(userID, transactionID uint, update TransactionUpdate) (*models.Transaction, error) {
	existing, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	newAmount := existing.Amount
	if update.Amount != nil {
		newAmount = *update.Amount
	}
	newType := existing.Type
	if update.Type != nil {
		newType = *update.Type
	}
	newDate := existing.Date
	if update.Date != nil {
		newDate = *update.Date
	}
	newBudgetID := existing.BudgetID
	if update.ClearBudget {
		newBudgetID = nil
	} else if update.BudgetID != nil {
		newBudgetID = update.BudgetID
	}

	if newAmount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if !newType.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}

	revalidate := newAmount != existing.Amount ||
		newType != existing.Type ||
		!newDate.Equal(existing.Date) ||
		!uintPtrEqual(newBudgetID, existing.BudgetID)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if revalidate && newBudgetID != nil {
			budget, err := getUserBudget(tx, userID, *newBudgetID, s.policy == config.CapacityPolicyRecompute)
			if err != nil {
				return err
			}
			needDebit, err := s.validateAgainstBudget(tx, budget, newAmount, newType, newDate, existing.ID)
			if err != nil {
				return err
			}
			if needDebit {
				if err := s.settleDebit(tx, existing, budget, newAmount); err != nil {
					return err
				}
			}
		}

		updates := make(map[string]interface{})
		if update.Title != nil {
			updates["title"] = *update.Title
		}
		if update.Amount != nil {
			updates["amount"] = *update.Amount
		}
		if update.Type != nil {
			updates["type"] = *update.Type
		}
		if update.Notes != nil {
			updates["notes"] = *update.Notes
		}
		if update.Date != nil {
			updates["date"] = *update.Date
		}
		if update.ClearBudget {
			updates["budget_id"] = nil
		} else if update.BudgetID != nil {
			updates["budget_id"] = *update.BudgetID
		}

		if len(updates) > 0 {
			if err := tx.Model(existing).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// settleDebit applies the capacity debit for an updated expense. When the
// transaction stays on the same budget only the delta against its prior
// contribution moves; when it moves to a new budget the full amount is
// debited there (the old budget's allocation is not restored, matching
// delete behavior).
func (s *transactionService) settleDebit(tx *gorm.DB, existing *models.Transaction, budget *models.Budget, newAmount int64) error {
	sameBudget := existing.BudgetID != nil && *existing.BudgetID == budget.ID
	if sameBudget && existing.Type == models.TransactionTypeExpense {
		delta := newAmount - existing.Amount
		switch {
		case delta > 0:
			return s.budgetService.Debit(tx, budget.ID, delta)
		case delta < 0:
			if err := tx.Model(&models.Budget{}).
				Where("id = ?", budget.ID).
				UpdateColumn("total_amount", gorm.Expr("total_amount + ?", -delta)).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	}
	return s.budgetService.Debit(tx, budget.ID, newAmount)
}

// DeleteTransaction removes a transaction. A previously debited allocation
// is not restored.
func (s *transactionService) DeleteTransaction(userID, transactionID uint) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// getUserBudget fetches a budget scoped to its owner within the given
// transaction handle. forUpdate locks the row so that concurrent capacity
// checks against the same budget serialize; sqlite is skipped since it has a
// single writer and does not accept FOR UPDATE.
func getUserBudget(tx *gorm.DB, userID, budgetID uint, forUpdate bool) (*models.Budget, error) {
	if forUpdate && tx.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var budget models.Budget
	if err := tx.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// startOfDay truncates to the UTC calendar day so the window comparison does
// not shift with the client's timezone offset.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
