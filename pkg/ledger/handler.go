package ledger

import (
	"net/http"
	"time"

	"github.com/klokku/cycleledger/internal/rest"
	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/shopspring/decimal"
)

type DailySummaryDTO struct {
	Date          string          `json:"date"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalSpending decimal.Decimal `json:"totalSpending"`
}

type CycleSummaryDTO struct {
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	DateRange     string          `json:"dateRange"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalSpending decimal.Decimal `json:"totalSpending"`
	Net           decimal.Decimal `json:"net"`
}

type Handler struct {
	aggregator Aggregator
	clock      utils.Clock
}

func NewHandler(aggregator Aggregator, clock utils.Clock) *Handler {
	return &Handler{aggregator: aggregator, clock: clock}
}

// Daily godoc
// @Summary Income and spending totals of a single UTC day
// @Tags Ledger
// @Produce json
// @Param date query string false "Day in YYYY-MM-DD format, today when omitted"
// @Success 200 {object} DailySummaryDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date"
// @Router /api/ledger/daily [get]
// @Security XUserId
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	day := h.clock.Now()
	if value := r.URL.Query().Get("date"); value != "" {
		parsed, err := period.ParseDate(value)
		if err != nil {
			rest.WriteError(w, err)
			return
		}
		day = parsed
	}

	summary, err := h.aggregator.DailySummary(r.Context(), day)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, DailySummaryDTO{
		Date:          summary.Date.Format(time.DateOnly),
		TotalIncome:   summary.TotalIncome,
		TotalSpending: summary.TotalSpending,
	})
}

// Monthly godoc
// @Summary Income and spending totals of a monthly cycle
// @Tags Ledger
// @Produce json
// @Param month query string false "Cycle month in YYYY-MM format, current cycle when omitted"
// @Success 200 {object} CycleSummaryDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid month format"
// @Router /api/ledger/monthly [get]
// @Security XUserId
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	var month *period.YearMonth
	if value := r.URL.Query().Get("month"); value != "" {
		parsed, err := period.ParseYearMonth(value)
		if err != nil {
			rest.WriteError(w, err)
			return
		}
		month = &parsed
	}

	summary, err := h.aggregator.CycleSummary(r.Context(), month)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rng := period.Range{Start: summary.Start, End: summary.End}
	rest.WriteJSON(w, http.StatusOK, CycleSummaryDTO{
		StartDate:     summary.Start.Format(time.DateOnly),
		EndDate:       summary.End.Format(time.DateOnly),
		DateRange:     rng.Format(),
		TotalIncome:   summary.TotalIncome,
		TotalSpending: summary.TotalSpending,
		Net:           summary.Net,
	})
}
