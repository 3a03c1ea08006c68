package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// CreateBudget creates a new budget for the user. The "free" title is
// reserved for the auto-provisioned budget.
func (s *budgetService) CreateBudget(
	userID uint,
	title string,
	totalAmount int64,
	startDate time.Time,
	endDate *time.Time,
) (*models.Budget, error) {
	if title == models.FreeBudgetTitle {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, `"free" is a reserved budget title`)
	}
	if totalAmount < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "Total amount must be non-negative")
	}
	if endDate != nil && endDate.Before(startDate) {
		return nil, apperrors.ErrInvalidDateRange
	}

	budget := &models.Budget{
		UserID:      userID,
		Title:       title,
		TotalAmount: totalAmount,
		StartDate:   startDate,
		EndDate:     endDate,
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// EnsureFreeBudget makes sure the user owns exactly one free budget.
// Lookup-or-create runs against the caller's transaction handle (or the
// service's own connection when tx is nil) so registration can provision
// atomically with user creation. Safe to call repeatedly.
func (s *budgetService) EnsureFreeBudget(tx *gorm.DB, userID uint) error {
	db := tx
	if db == nil {
		db = s.db
	}

	budget := models.Budget{}
	err := db.Where(models.Budget{UserID: userID, Title: models.FreeBudgetTitle}).
		Attrs(models.Budget{TotalAmount: models.FreeBudgetAmount, StartDate: time.Now()}).
		FirstOrCreate(&budget).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// BackfillFreeBudgets provisions a free budget for every user that lacks
// one. Covers users created before provisioning became part of
// registration. Returns the number of users provisioned.
func (s *budgetService) BackfillFreeBudgets() (int, error) {
	var users []models.User
	err := s.db.
		Where("NOT EXISTS (SELECT 1 FROM budgets WHERE budgets.user_id = users.id AND budgets.title = ? AND budgets.deleted_at IS NULL)",
			models.FreeBudgetTitle).
		Find(&users).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	provisioned := 0
	for i := range users {
		if err := s.EnsureFreeBudget(nil, users[i].ID); err != nil {
			return provisioned, err
		}
		provisioned++
	}
	return provisioned, nil
}

// GetUserBudgets returns a paginated list of budgets owned by the user.
func (s *budgetService) GetUserBudgets(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Scopes(pagination.Paginate(page)).Order("id").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user. A budget
// owned by someone else is reported as not found, never as forbidden.
func (s *budgetService) GetBudgetByID(userID, budgetID uint) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates an existing budget's fields. The free budget is
// immutable.
func (s *budgetService) UpdateBudget(
	userID, budgetID uint,
	title string,
	totalAmount *int64,
	startDate, endDate *time.Time,
) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}
	if budget.IsFree() {
		return nil, apperrors.ErrFreeBudgetEdit
	}
	if title == models.FreeBudgetTitle {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, `"free" is a reserved budget title`)
	}
	if totalAmount != nil && *totalAmount < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "Total amount must be non-negative")
	}

	// Validate the window that would result from the patch.
	newStart := budget.StartDate
	if startDate != nil {
		newStart = *startDate
	}
	newEnd := budget.EndDate
	if endDate != nil {
		newEnd = endDate
	}
	if newEnd != nil && newEnd.Before(newStart) {
		return nil, apperrors.ErrInvalidDateRange
	}

	updates := make(map[string]interface{})
	if title != "" {
		updates["title"] = title
	}
	if totalAmount != nil {
		updates["total_amount"] = *totalAmount
	}
	if startDate != nil {
		updates["start_date"] = *startDate
	}
	if endDate != nil {
		updates["end_date"] = endDate
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return budget, nil
}

// DeleteBudget removes a budget and detaches any transactions that
// reference it. The transactions themselves survive with a cleared budget
// reference.
func (s *budgetService) DeleteBudget(userID, budgetID uint) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}
	if budget.IsFree() {
		return apperrors.ErrFreeBudgetEdit
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).
			Where("budget_id = ?", budget.ID).
			Update("budget_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// Debit atomically reduces a budget's remaining allocation. The sufficiency
// check and the decrement run in a single conditional UPDATE, so two
// concurrent expenses against the same budget cannot both pass against a
// stale allocation. Returns ErrInsufficientFunds when the predicate fails.
func (s *budgetService) Debit(tx *gorm.DB, budgetID uint, amount int64) error {
	result := tx.Model(&models.Budget{}).
		Where("id = ? AND total_amount >= ?", budgetID, amount).
		UpdateColumn("total_amount", gorm.Expr("total_amount - ?", amount))
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrInsufficientFunds
	}
	return nil
}
