package goal

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

type GoalDTO struct {
	Id                 int             `json:"id"`
	Name               string          `json:"name"`
	TargetAmount       decimal.Decimal `json:"targetAmount"`
	AccumulatedAmount  decimal.Decimal `json:"accumulatedAmount"`
	AmountLeft         decimal.Decimal `json:"amountLeft"`
	ProgressPercentage int             `json:"progressPercentage"`
	Currency           string          `json:"currency"`
	Category           string          `json:"category"`
	Status             string          `json:"status"`
	Icon               string          `json:"icon,omitempty"`
	Color              string          `json:"color,omitempty"`
	TargetDate         *string         `json:"date,omitempty"`
	Notes              string          `json:"notes,omitempty"`
}

type GoalPatchDTO struct {
	Name         *string          `json:"name"`
	TargetAmount *decimal.Decimal `json:"targetAmount"`
	Currency     *string          `json:"currency"`
	Category     *string          `json:"category"`
	Icon         *string          `json:"icon"`
	Color        *string          `json:"color"`
	TargetDate   *string          `json:"date"`
	Notes        *string          `json:"notes"`
}

type OverviewDTO struct {
	TotalLeft      decimal.Decimal `json:"totalLeft"`
	FulfilledGoals string          `json:"fulfilledGoals"`
	Goals          []GoalDTO       `json:"goals"`
}

type ProgressDTO struct {
	Amount decimal.Decimal `json:"amount"`
}

type GoalHandler struct {
	goalService GoalService
}

func NewGoalHandler(goalService GoalService) *GoalHandler {
	return &GoalHandler{goalService}
}

// Create godoc
// @Summary Create a savings goal
// @Tags Goal
// @Accept json
// @Produce json
// @Param goal body GoalDTO true "Goal"
// @Success 201 {object} GoalDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/goal [post]
// @Security XUserId
func (handler *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto GoalDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	targetDate, err := parseTargetDate(dto.TargetDate)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	created, err := handler.goalService.Create(r.Context(), Goal{
		Name:              dto.Name,
		TargetAmount:      dto.TargetAmount,
		AccumulatedAmount: dto.AccumulatedAmount,
		Currency:          dto.Currency,
		Category:          dto.Category,
		Icon:              dto.Icon,
		Color:             dto.Color,
		TargetDate:        targetDate,
		Notes:             dto.Notes,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, goalToDTO(created))
}

// List godoc
// @Summary List goals with their progress
// @Tags Goal
// @Produce json
// @Success 200 {object} OverviewDTO
// @Router /api/goal [get]
// @Security XUserId
func (handler *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	overview, err := handler.goalService.List(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	goals := make([]GoalDTO, 0, len(overview.Goals))
	for _, goal := range overview.Goals {
		goals = append(goals, goalToDTO(goal))
	}
	rest.WriteJSON(w, http.StatusOK, OverviewDTO{
		TotalLeft:      overview.TotalLeft,
		FulfilledGoals: overview.FulfilledGoals(),
		Goals:          goals,
	})
}

// Get godoc
// @Summary Get a goal
// @Tags Goal
// @Produce json
// @Param id path int true "Goal ID"
// @Success 200 {object} GoalDTO
// @Failure 404 {object} rest.ErrorResponse "Goal not found"
// @Router /api/goal/{id} [get]
// @Security XUserId
func (handler *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := goalId(w, r)
	if !ok {
		return
	}
	goal, err := handler.goalService.Get(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, goalToDTO(goal))
}

// Update godoc
// @Summary Update a goal, omitted fields stay unchanged
// @Tags Goal
// @Accept json
// @Produce json
// @Param id path int true "Goal ID"
// @Param goal body GoalPatchDTO true "Changed fields"
// @Success 200 {object} GoalDTO
// @Failure 404 {object} rest.ErrorResponse "Goal not found"
// @Router /api/goal/{id} [put]
// @Security XUserId
func (handler *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := goalId(w, r)
	if !ok {
		return
	}
	var dto GoalPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	targetDate, err := parseTargetDate(dto.TargetDate)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	updated, err := handler.goalService.Update(r.Context(), id, GoalPatch{
		Name:         dto.Name,
		TargetAmount: dto.TargetAmount,
		Currency:     dto.Currency,
		Category:     dto.Category,
		Icon:         dto.Icon,
		Color:        dto.Color,
		TargetDate:   targetDate,
		Notes:        dto.Notes,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, goalToDTO(updated))
}

// Delete godoc
// @Summary Delete a goal
// @Tags Goal
// @Param id path int true "Goal ID"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "Goal not found"
// @Router /api/goal/{id} [delete]
// @Security XUserId
func (handler *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := goalId(w, r)
	if !ok {
		return
	}
	if err := handler.goalService.Delete(r.Context(), id); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddProgress godoc
// @Summary Add saved money to a goal
// @Tags Goal
// @Accept json
// @Produce json
// @Param id path int true "Goal ID"
// @Param progress body ProgressDTO true "Amount"
// @Success 200 {object} GoalDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid amount or completed goal"
// @Failure 404 {object} rest.ErrorResponse "Goal not found"
// @Router /api/goal/{id}/progress [post]
// @Security XUserId
func (handler *GoalHandler) AddProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := goalId(w, r)
	if !ok {
		return
	}
	var dto ProgressDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	updated, err := handler.goalService.AddProgress(r.Context(), id, dto.Amount)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, goalToDTO(updated))
}

// MarkComplete godoc
// @Summary Mark a goal as completed
// @Tags Goal
// @Produce json
// @Param id path int true "Goal ID"
// @Success 200 {object} GoalDTO
// @Failure 400 {object} rest.ErrorResponse "Goal already completed"
// @Failure 404 {object} rest.ErrorResponse "Goal not found"
// @Router /api/goal/{id}/complete [post]
// @Security XUserId
func (handler *GoalHandler) MarkComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := goalId(w, r)
	if !ok {
		return
	}
	updated, err := handler.goalService.MarkComplete(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, goalToDTO(updated))
}

func goalId(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteBadRequest(w, "Invalid goal id")
		return 0, false
	}
	return id, true
}

func parseTargetDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	date, err := period.ParseDate(*value)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func goalToDTO(goal Goal) GoalDTO {
	dto := GoalDTO{
		Id:                 goal.Id,
		Name:               goal.Name,
		TargetAmount:       goal.TargetAmount,
		AccumulatedAmount:  goal.AccumulatedAmount,
		AmountLeft:         goal.AmountLeft(),
		ProgressPercentage: goal.ProgressPercentage(),
		Currency:           goal.Currency,
		Category:           goal.Category,
		Status:             string(goal.Status),
		Icon:               goal.Icon,
		Color:              goal.Color,
		Notes:              goal.Notes,
	}
	if goal.TargetDate != nil {
		date := goal.TargetDate.UTC().Format(time.DateOnly)
		dto.TargetDate = &date
	}
	return dto
}
