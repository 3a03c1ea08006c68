package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn   func(userID uint, title string, amount int64, txType models.TransactionType, notes string, budgetID *uint, date time.Time) (*models.Transaction, error)
	getUserTransactionsFn func(userID uint, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getTransactionByIDFn  func(userID, transactionID uint) (*models.Transaction, error)
	updateTransactionFn   func(userID, transactionID uint, update services.TransactionUpdate) (*models.Transaction, error)
	deleteTransactionFn   func(userID, transactionID uint) error
}

func (m *mockTransactionService) CreateTransaction(userID uint, title string, amount int64, txType models.TransactionType, notes string, budgetID *uint, date time.Time) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(userID, title, amount, txType, notes, budgetID, date)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetUserTransactions(userID uint, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetTransactionByID(userID, transactionID uint) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateTransaction(userID, transactionID uint, update services.TransactionUpdate) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(userID, transactionID, update)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(userID, transactionID uint) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(userID, transactionID)
	}
	return nil
}

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	g := r.Group("/transactions", injectUserID(1))
	g.POST("", handler.CreateTransaction)
	g.GET("", handler.GetTransactions)
	g.GET("/:id", handler.GetTransaction)
	g.PATCH("/:id", handler.UpdateTransaction)
	g.DELETE("/:id", handler.DeleteTransaction)
	return r
}

// --- tests ---

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransactionFn: func(userID uint, title string, amount int64, txType models.TransactionType, notes string, budgetID *uint, date time.Time) (*models.Transaction, error) {
				return &models.Transaction{
					Base:     models.Base{ID: 9},
					UserID:   userID,
					Title:    title,
					Amount:   amount,
					Type:     txType,
					BudgetID: budgetID,
				}, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions",
			`{"title":"Lunch","amount":1200,"type":"expense","budget_id":2}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		tx := result["transaction"].(map[string]interface{})
		if tx["title"] != "Lunch" {
			t.Errorf("expected title Lunch, got %v", tx["title"])
		}
		if tx["type"] != "expense" {
			t.Errorf("expected type expense, got %v", tx["type"])
		}
	})

	t.Run("returns 400 on missing amount", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions", `{"title":"Lunch","type":"expense"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on negative amount", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions", `{"title":"Lunch","amount":-5,"type":"expense"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on unknown type", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions", `{"title":"Lunch","amount":100,"type":"transfer"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 when the budget rejects the expense", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransactionFn: func(_ uint, _ string, _ int64, _ models.TransactionType, _ string, _ *uint, _ time.Time) (*models.Transaction, error) {
				return nil, apperrors.ErrInsufficientFunds
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions",
			`{"title":"TV","amount":99999,"type":"expense","budget_id":2}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_FUNDS")
	})

	t.Run("returns 404 when the budget does not exist", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransactionFn: func(_ uint, _ string, _ int64, _ models.TransactionType, _ string, _ *uint, _ time.Time) (*models.Transaction, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions",
			`{"title":"Lunch","amount":100,"type":"expense","budget_id":999}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetTransactions(t *testing.T) {
	t.Run("returns 200 and forwards filters", func(t *testing.T) {
		var gotFilter services.TransactionFilter
		txSvc := &mockTransactionService{
			getUserTransactionsFn: func(userID uint, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				gotFilter = filter
				resp := pagination.NewPageResponse([]models.Transaction{
					{Base: models.Base{ID: 1}, UserID: userID, Title: "Lunch", Amount: 1200, Type: models.TransactionTypeExpense},
				}, page.Page, page.PageSize, 1)
				return &resp, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions?type=expense&budget_id=2&min_amount=100", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotFilter.Type == nil || *gotFilter.Type != models.TransactionTypeExpense {
			t.Error("expected type filter to be forwarded")
		}
		if gotFilter.BudgetID == nil || *gotFilter.BudgetID != 2 {
			t.Error("expected budget filter to be forwarded")
		}
		if gotFilter.MinAmount == nil || *gotFilter.MinAmount != 100 {
			t.Error("expected min amount filter to be forwarded")
		}
	})

	t.Run("returns 400 on invalid type filter", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions?type=transfer", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetTransaction(t *testing.T) {
	t.Run("returns 200 with the transaction", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getTransactionByIDFn: func(userID, transactionID uint) (*models.Transaction, error) {
				return &models.Transaction{Base: models.Base{ID: transactionID}, UserID: userID, Title: "Lunch"}, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions/9", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getTransactionByIDFn: func(_, _ uint) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions/999", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("returns 200 and forwards the patch", func(t *testing.T) {
		var gotUpdate services.TransactionUpdate
		txSvc := &mockTransactionService{
			updateTransactionFn: func(userID, transactionID uint, update services.TransactionUpdate) (*models.Transaction, error) {
				gotUpdate = update
				return &models.Transaction{Base: models.Base{ID: transactionID}, UserID: userID}, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PATCH", "/transactions/9", `{"amount":500,"clear_budget":true}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotUpdate.Amount == nil || *gotUpdate.Amount != 500 {
			t.Error("expected amount patch to be forwarded")
		}
		if !gotUpdate.ClearBudget {
			t.Error("expected clear_budget flag to be forwarded")
		}
		if gotUpdate.Title != nil {
			t.Error("expected untouched fields to stay nil")
		}
	})

	t.Run("returns 400 when revalidation fails", func(t *testing.T) {
		txSvc := &mockTransactionService{
			updateTransactionFn: func(_, _ uint, _ services.TransactionUpdate) (*models.Transaction, error) {
				return nil, apperrors.ErrIncomeNotAllowed
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PATCH", "/transactions/9", `{"type":"income"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INCOME_NOT_ALLOWED")
	})

	t.Run("returns 400 on invalid amount", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PATCH", "/transactions/9", `{"amount":0}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 204 on success", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "DELETE", "/transactions/9", "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		txSvc := &mockTransactionService{
			deleteTransactionFn: func(_, _ uint) error {
				return apperrors.ErrTransactionNotFound
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "DELETE", "/transactions/999", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
