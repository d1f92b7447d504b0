package debt

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/cycleledger/internal/rest"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/shopspring/decimal"
)

type DebtDTO struct {
	Id                int             `json:"id"`
	Direction         string          `json:"direction"`
	Name              string          `json:"name"`
	Counterparty      string          `json:"counterparty,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	PaidAmount        decimal.Decimal `json:"paidAmount"`
	AmountLeft        decimal.Decimal `json:"amountLeft"`
	PaymentPercentage int             `json:"paymentPercentage"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	Icon              string          `json:"icon,omitempty"`
	Color             string          `json:"color,omitempty"`
	DebtDate          *string         `json:"debtDate"`
	PayoffDate        *string         `json:"payoffDate"`
	Notes             string          `json:"notes,omitempty"`
}

type DebtPatchDTO struct {
	Name         *string          `json:"name"`
	Counterparty *string          `json:"counterparty"`
	Amount       *decimal.Decimal `json:"amount"`
	Currency     *string          `json:"currency"`
	Icon         *string          `json:"icon"`
	Color        *string          `json:"color"`
	DebtDate     *string          `json:"debtDate"`
	PayoffDate   *string          `json:"payoffDate"`
	Notes        *string          `json:"notes"`
}

type OverviewDTO struct {
	Direction string          `json:"direction"`
	TotalLeft decimal.Decimal `json:"totalLeft"`
	Settled   string          `json:"settled"`
	Debts     []DebtDTO       `json:"debts"`
}

type PaymentDTO struct {
	Amount decimal.Decimal `json:"amount"`
}

type DebtHandler struct {
	debtService DebtService
}

func NewDebtHandler(debtService DebtService) *DebtHandler {
	return &DebtHandler{debtService}
}

// Create godoc
// @Summary Record money borrowed or lent
// @Tags Debt
// @Accept json
// @Produce json
// @Param debt body DebtDTO true "Debt"
// @Success 201 {object} DebtDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/debt [post]
// @Security XUserId
func (handler *DebtHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto DebtDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	debtDate, err := parseDate(dto.DebtDate)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	payoffDate, err := parseDate(dto.PayoffDate)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	created, err := handler.debtService.Create(r.Context(), Debt{
		Direction:    Direction(dto.Direction),
		Name:         dto.Name,
		Counterparty: dto.Counterparty,
		Amount:       dto.Amount,
		PaidAmount:   dto.PaidAmount,
		Currency:     dto.Currency,
		Icon:         dto.Icon,
		Color:        dto.Color,
		DebtDate:     debtDate,
		PayoffDate:   payoffDate,
		Notes:        dto.Notes,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, debtToDTO(created))
}

// List godoc
// @Summary List debts of one direction with repayment progress
// @Tags Debt
// @Produce json
// @Param direction query string true "BORROWED or LENT"
// @Success 200 {object} OverviewDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid direction"
// @Router /api/debt [get]
// @Security XUserId
func (handler *DebtHandler) List(w http.ResponseWriter, r *http.Request) {
	overview, err := handler.debtService.List(r.Context(), Direction(r.URL.Query().Get("direction")))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	debts := make([]DebtDTO, 0, len(overview.Debts))
	for _, debt := range overview.Debts {
		debts = append(debts, debtToDTO(debt))
	}
	rest.WriteJSON(w, http.StatusOK, OverviewDTO{
		Direction: string(overview.Direction),
		TotalLeft: overview.TotalLeft,
		Settled:   overview.SettledRatio(),
		Debts:     debts,
	})
}

// Get godoc
// @Summary Get a debt
// @Tags Debt
// @Produce json
// @Param id path int true "Debt ID"
// @Success 200 {object} DebtDTO
// @Failure 404 {object} rest.ErrorResponse "Debt not found"
// @Router /api/debt/{id} [get]
// @Security XUserId
func (handler *DebtHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := debtId(w, r)
	if !ok {
		return
	}
	debt, err := handler.debtService.Get(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, debtToDTO(debt))
}

// Update godoc
// @Summary Update a debt, omitted fields stay unchanged
// @Tags Debt
// @Accept json
// @Produce json
// @Param id path int true "Debt ID"
// @Param debt body DebtPatchDTO true "Changed fields"
// @Success 200 {object} DebtDTO
// @Failure 404 {object} rest.ErrorResponse "Debt not found"
// @Router /api/debt/{id} [put]
// @Security XUserId
func (handler *DebtHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := debtId(w, r)
	if !ok {
		return
	}
	var dto DebtPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	debtDate, err := parseDate(dto.DebtDate)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	payoffDate, err := parseDate(dto.PayoffDate)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	updated, err := handler.debtService.Update(r.Context(), id, DebtPatch{
		Name:         dto.Name,
		Counterparty: dto.Counterparty,
		Amount:       dto.Amount,
		Currency:     dto.Currency,
		Icon:         dto.Icon,
		Color:        dto.Color,
		DebtDate:     debtDate,
		PayoffDate:   payoffDate,
		Notes:        dto.Notes,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, debtToDTO(updated))
}

// Delete godoc
// @Summary Delete a debt
// @Tags Debt
// @Param id path int true "Debt ID"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "Debt not found"
// @Router /api/debt/{id} [delete]
// @Security XUserId
func (handler *DebtHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := debtId(w, r)
	if !ok {
		return
	}
	if err := handler.debtService.Delete(r.Context(), id); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddPayment godoc
// @Summary Record a repayment
// @Tags Debt
// @Accept json
// @Produce json
// @Param id path int true "Debt ID"
// @Param payment body PaymentDTO true "Amount"
// @Success 200 {object} DebtDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid amount or settled debt"
// @Failure 404 {object} rest.ErrorResponse "Debt not found"
// @Router /api/debt/{id}/payment [post]
// @Security XUserId
func (handler *DebtHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := debtId(w, r)
	if !ok {
		return
	}
	var dto PaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	updated, err := handler.debtService.AddPayment(r.Context(), id, dto.Amount)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, debtToDTO(updated))
}

// MarkPaid godoc
// @Summary Settle a debt in full
// @Tags Debt
// @Produce json
// @Param id path int true "Debt ID"
// @Success 200 {object} DebtDTO
// @Failure 400 {object} rest.ErrorResponse "Debt already settled"
// @Failure 404 {object} rest.ErrorResponse "Debt not found"
// @Router /api/debt/{id}/paid [post]
// @Security XUserId
func (handler *DebtHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := debtId(w, r)
	if !ok {
		return
	}
	updated, err := handler.debtService.MarkPaid(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, debtToDTO(updated))
}

func debtId(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteBadRequest(w, "Invalid debt id")
		return 0, false
	}
	return id, true
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	date, err := period.ParseDate(*value)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func formatDate(date *time.Time) *string {
	if date == nil {
		return nil
	}
	formatted := date.UTC().Format(time.DateOnly)
	return &formatted
}

func debtToDTO(debt Debt) DebtDTO {
	return DebtDTO{
		Id:                debt.Id,
		Direction:         string(debt.Direction),
		Name:              debt.Name,
		Counterparty:      debt.Counterparty,
		Amount:            debt.Amount,
		PaidAmount:        debt.PaidAmount,
		AmountLeft:        debt.AmountLeft(),
		PaymentPercentage: debt.PaymentPercentage(),
		Currency:          debt.Currency,
		Status:            string(debt.Status),
		Icon:              debt.Icon,
		Color:             debt.Color,
		DebtDate:          formatDate(debt.DebtDate),
		PayoffDate:        formatDate(debt.PayoffDate),
		Notes:             debt.Notes,
	}
}
