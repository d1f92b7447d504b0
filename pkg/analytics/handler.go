package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/internal/rest"
	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/shopspring/decimal"
)

var ErrInvalidYear = errs.New(errs.InvalidInput, "Invalid year")

type TrendPointDTO struct {
	Day     int             `json:"day"`
	Balance decimal.Decimal `json:"balance"`
}

type TrendDTO struct {
	Year             int             `json:"year"`
	Month            int             `json:"month"`
	StartDate        string          `json:"startDate"`
	EndDate          string          `json:"endDate"`
	DaysInMonth      int             `json:"daysInMonth"`
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	GrowthPercentage decimal.Decimal `json:"growthPercentage"`
	Trend            []TrendPointDTO `json:"trend"`
	Message          string          `json:"message,omitempty"`
}

type MonthFlowDTO struct {
	Month    int             `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

type YearOverviewDTO struct {
	Year               int             `json:"year"`
	Months             []MonthFlowDTO  `json:"months"`
	TotalIncome        decimal.Decimal `json:"totalIncome"`
	TotalExpenses      decimal.Decimal `json:"totalExpenses"`
	AvgMonthlyIncome   decimal.Decimal `json:"avgMonthlyIncome"`
	AvgMonthlyExpenses decimal.Decimal `json:"avgMonthlyExpenses"`
}

type CategoryShareDTO struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

type CategoryBreakdownDTO struct {
	Year          int                `json:"year"`
	Month         int                `json:"month"`
	DateRange     string             `json:"dateRange"`
	TotalSpending decimal.Decimal    `json:"totalSpending"`
	Categories    []CategoryShareDTO `json:"categories"`
}

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// BalanceTrend godoc
// @Summary Daily closing balances of a monthly cycle
// @Tags Analytics
// @Produce json
// @Param year query int false "Year, current year when omitted"
// @Param month query int false "Month 1-12, current month when omitted"
// @Success 200 {object} TrendDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid year or month"
// @Router /api/analytics/balance-trend [get]
// @Security XUserId
func (h *Handler) BalanceTrend(w http.ResponseWriter, r *http.Request) {
	month, err := h.yearMonth(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	trend, err := h.service.DailyTrend(r.Context(), month)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	dto := TrendDTO{
		Year:             month.Year,
		Month:            int(month.Month),
		StartDate:        trend.Range.Start.Format(time.DateOnly),
		EndDate:          trend.Range.End.Format(time.DateOnly),
		DaysInMonth:      trend.DaysInMonth,
		CurrentBalance:   trend.CurrentBalance,
		GrowthPercentage: trend.GrowthPercentage,
		Message:          trend.Message,
	}
	for _, point := range trend.Points {
		dto.Trend = append(dto.Trend, TrendPointDTO(point))
	}
	rest.WriteJSON(w, http.StatusOK, dto)
}

// IncomeVsExpenses godoc
// @Summary Monthly income and expenses of a calendar year
// @Tags Analytics
// @Produce json
// @Param year query int false "Year, current year when omitted"
// @Success 200 {object} YearOverviewDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid year"
// @Router /api/analytics/income-vs-expenses [get]
// @Security XUserId
func (h *Handler) IncomeVsExpenses(w http.ResponseWriter, r *http.Request) {
	year, err := h.year(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	overview, err := h.service.IncomeVsExpenses(r.Context(), year)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	months := make([]MonthFlowDTO, 0, len(overview.Months))
	for _, m := range overview.Months {
		months = append(months, MonthFlowDTO{Month: int(m.Month), Income: m.Income, Expenses: m.Expenses})
	}
	rest.WriteJSON(w, http.StatusOK, YearOverviewDTO{
		Year:               overview.Year,
		Months:             months,
		TotalIncome:        overview.TotalIncome,
		TotalExpenses:      overview.TotalExpenses,
		AvgMonthlyIncome:   overview.AvgMonthlyIncome,
		AvgMonthlyExpenses: overview.AvgMonthlyExpenses,
	})
}

// SpendingByCategory godoc
// @Summary Spending of a monthly cycle grouped by category
// @Tags Analytics
// @Produce json
// @Param year query int false "Year, current year when omitted"
// @Param month query int false "Month 1-12, current month when omitted"
// @Success 200 {object} CategoryBreakdownDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid year or month"
// @Router /api/analytics/spending-by-category [get]
// @Security XUserId
func (h *Handler) SpendingByCategory(w http.ResponseWriter, r *http.Request) {
	month, err := h.yearMonth(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	breakdown, err := h.service.SpendingByCategory(r.Context(), month)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	categories := make([]CategoryShareDTO, 0, len(breakdown.Categories))
	for _, c := range breakdown.Categories {
		categories = append(categories, CategoryShareDTO(c))
	}
	rest.WriteJSON(w, http.StatusOK, CategoryBreakdownDTO{
		Year:          month.Year,
		Month:         int(month.Month),
		DateRange:     breakdown.Range.Format(),
		TotalSpending: breakdown.TotalSpending,
		Categories:    categories,
	})
}

func (h *Handler) year(r *http.Request) (int, error) {
	value := r.URL.Query().Get("year")
	if value == "" {
		return h.clock.Now().Year(), nil
	}
	year, err := strconv.Atoi(value)
	if err != nil || year < 1970 || year > 9999 {
		return 0, ErrInvalidYear
	}
	return year, nil
}

func (h *Handler) yearMonth(r *http.Request) (period.YearMonth, error) {
	year, err := h.year(r)
	if err != nil {
		return period.YearMonth{}, err
	}
	month := h.clock.Now().Month()
	if value := r.URL.Query().Get("month"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 || parsed > 12 {
			return period.YearMonth{}, period.ErrInvalidMonth
		}
		month = time.Month(parsed)
	}
	return period.YearMonth{Year: year, Month: month}, nil
}
