package budget

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/cycleledger/internal/rest"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type BudgetDTO struct {
	Id          int             `json:"id"`
	Category    string          `json:"category"`
	BudgetValue decimal.Decimal `json:"budgetValue"`
	Currency    string          `json:"currency"`
	Period      string          `json:"period"`
}

type BudgetPatchDTO struct {
	Category    *string          `json:"category"`
	BudgetValue *decimal.Decimal `json:"budgetValue"`
	Currency    *string          `json:"currency"`
	Period      *string          `json:"period"`
}

type BudgetSpendingDTO struct {
	Id                 int             `json:"id"`
	Category           string          `json:"category"`
	BudgetValue        decimal.Decimal `json:"budgetValue"`
	AmountSpent        decimal.Decimal `json:"amountSpent"`
	SpendingPercentage decimal.Decimal `json:"spendingPercentage"`
	Currency           string          `json:"currency"`
}

type EvaluationDTO struct {
	Period          string              `json:"period"`
	DateRange       string              `json:"dateRange"`
	StartDate       string              `json:"startDate"`
	EndDate         string              `json:"endDate"`
	TotalBudget     decimal.Decimal     `json:"totalBudget"`
	TotalSpent      decimal.Decimal     `json:"totalSpent"`
	TotalPercentage decimal.Decimal     `json:"totalPercentage"`
	TotalCategories int                 `json:"totalCategories"`
	Budgets         []BudgetSpendingDTO `json:"budgets"`
}

type BudgetHandler struct {
	budgetService BudgetService
}

func NewBudgetHandler(budgetService BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService}
}

// Create godoc
// @Summary Create a budget for a category and period kind
// @Tags Budget
// @Accept json
// @Produce json
// @Param budget body BudgetDTO true "Budget"
// @Success 201 {object} BudgetDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} rest.ErrorResponse "Budget already exists"
// @Router /api/budget [post]
// @Security XUserId
func (handler *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new budget")
	var dto BudgetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	created, err := handler.budgetService.Create(r.Context(), Budget{
		Category:    dto.Category,
		BudgetValue: dto.BudgetValue,
		Currency:    dto.Currency,
		Period:      period.Kind(dto.Period),
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, budgetToDTO(created))
}

// Evaluate godoc
// @Summary Spending of the current period against every budget of that period kind
// @Tags Budget
// @Produce json
// @Param period query string true "WEEKLY or MONTHLY"
// @Success 200 {object} EvaluationDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid period"
// @Router /api/budget [get]
// @Security XUserId
func (handler *BudgetHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	kind, err := period.ParseKind(r.URL.Query().Get("period"))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	evaluation, err := handler.budgetService.Evaluate(r.Context(), kind)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, evaluationToDTO(evaluation))
}

// Update godoc
// @Summary Update a budget, omitted fields stay unchanged
// @Tags Budget
// @Accept json
// @Produce json
// @Param id path int true "Budget ID"
// @Param budget body BudgetPatchDTO true "Changed fields"
// @Success 200 {object} BudgetDTO
// @Failure 404 {object} rest.ErrorResponse "Budget not found"
// @Failure 409 {object} rest.ErrorResponse "Budget already exists"
// @Router /api/budget/{id} [put]
// @Security XUserId
func (handler *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteBadRequest(w, "Invalid budget id")
		return
	}
	var dto BudgetPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	patch := BudgetPatch{Category: dto.Category, BudgetValue: dto.BudgetValue, Currency: dto.Currency}
	if dto.Period != nil {
		kind := period.Kind(*dto.Period)
		patch.Period = &kind
	}
	updated, err := handler.budgetService.Update(r.Context(), id, patch)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, budgetToDTO(updated))
}

// Delete godoc
// @Summary Delete a budget
// @Tags Budget
// @Param id path int true "Budget ID"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "Budget not found"
// @Router /api/budget/{id} [delete]
// @Security XUserId
func (handler *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteBadRequest(w, "Invalid budget id")
		return
	}
	if err := handler.budgetService.Delete(r.Context(), id); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func budgetToDTO(budget Budget) BudgetDTO {
	return BudgetDTO{
		Id:          budget.Id,
		Category:    budget.Category,
		BudgetValue: budget.BudgetValue,
		Currency:    budget.Currency,
		Period:      string(budget.Period),
	}
}

func evaluationToDTO(evaluation Evaluation) EvaluationDTO {
	budgets := make([]BudgetSpendingDTO, 0, len(evaluation.Budgets))
	for _, b := range evaluation.Budgets {
		budgets = append(budgets, BudgetSpendingDTO(b))
	}
	return EvaluationDTO{
		Period:          string(evaluation.Period),
		DateRange:       evaluation.Range.Format(),
		StartDate:       evaluation.Range.Start.Format(time.DateOnly),
		EndDate:         evaluation.Range.End.Format(time.DateOnly),
		TotalBudget:     evaluation.TotalBudget,
		TotalSpent:      evaluation.TotalSpent,
		TotalPercentage: evaluation.TotalPercentage,
		TotalCategories: evaluation.TotalCategories,
		Budgets:         budgets,
	}
}
