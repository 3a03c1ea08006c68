package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/services"
)

// AdminHandler handles superuser-only maintenance operations.
type AdminHandler struct {
	userService   services.UserServicer
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(userService services.UserServicer, budgetService services.BudgetServicer, auditService services.AuditServicer) *AdminHandler {
	return &AdminHandler{userService: userService, budgetService: budgetService, auditService: auditService}
}

// BackfillFreeBudgets provisions a free budget for every user missing one.
// Registration provisions new users; this covers accounts that predate the
// free-budget invariant.
// @Summary     Backfill free budgets
// @Description Provision the free budget for legacy users lacking one (superuser only)
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]int "Number of users provisioned"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/free-budgets/backfill [post]
func (h *AdminHandler) BackfillFreeBudgets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if !user.IsSuperuser {
		respondWithError(c, apperrors.ErrForbidden)
		return
	}

	provisioned, err := h.budgetService.BackfillFreeBudgets()
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "BACKFILL_FREE_BUDGETS", "budget", 0, c.ClientIP(),
		map[string]interface{}{"provisioned": provisioned})

	c.JSON(http.StatusOK, gin.H{"provisioned": provisioned})
}
