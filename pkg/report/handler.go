package report

import (
	"net/http"
	"time"

	"github.com/klokku/cycleledger/internal/rest"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type CategoryAmountDTO struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type GoalProgressDTO struct {
	Completed  decimal.Decimal `json:"completed"`
	Total      decimal.Decimal `json:"total"`
	Percentage int             `json:"percentage"`
	Summary    string          `json:"summary"`
}

type ItemDTO struct {
	Date     time.Time       `json:"date"`
	Type     string          `json:"type,omitempty"`
	Category string          `json:"category"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
}

type EntriesDTO struct {
	All      []ItemDTO `json:"all"`
	Earning  []ItemDTO `json:"earning"`
	Spending []ItemDTO `json:"spending"`
}

type ReportDTO struct {
	StartDate               string             `json:"startDate"`
	EndDate                 string             `json:"endDate"`
	DateRange               string             `json:"dateRange"`
	TotalEarning            decimal.Decimal    `json:"totalEarning"`
	TotalSpending           decimal.Decimal    `json:"totalSpending"`
	CurrentBalance          decimal.Decimal    `json:"currentBalance"`
	HighestSpendingCategory *CategoryAmountDTO `json:"highestSpendingCategory"`
	GoalProgress            GoalProgressDTO    `json:"goalProgress"`
	Entries                 EntriesDTO         `json:"entries"`
}

type Handler struct {
	service  Service
	renderer Renderer
}

func NewHandler(service Service, renderer Renderer) *Handler {
	return &Handler{service: service, renderer: renderer}
}

// Weekly godoc
// @Summary Report of the current weekly block
// @Tags Report
// @Produce json,text/csv
// @Param format query string false "csv for a spreadsheet export"
// @Success 200 {object} ReportDTO
// @Router /api/report/weekly [get]
// @Security XUserId
func (h *Handler) Weekly(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.WeeklyReport(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	h.write(w, r, report)
}

// Monthly godoc
// @Summary Report of a monthly cycle
// @Tags Report
// @Produce json,text/csv
// @Param month query string false "Cycle as YYYY-MM, the current cycle when omitted"
// @Param format query string false "csv for a spreadsheet export"
// @Success 200 {object} ReportDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid month"
// @Router /api/report/monthly [get]
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
	report, err := h.service.MonthlyReport(r.Context(), month)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	h.write(w, r, report)
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, report Report) {
	if r.URL.Query().Get("format") == "csv" || r.Header.Get("Accept") == "text/csv" {
		csv, err := h.renderer.RenderReport(report)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(csv)); err != nil {
			log.Errorf("failed to write csv report: %v", err)
		}
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(report))
}

func toDTO(report Report) ReportDTO {
	dto := ReportDTO{
		StartDate:      report.Range.Start.Format(time.DateOnly),
		EndDate:        report.Range.End.Format(time.DateOnly),
		DateRange:      report.Range.Format(),
		TotalEarning:   report.TotalEarning,
		TotalSpending:  report.TotalSpending,
		CurrentBalance: report.CurrentBalance,
		GoalProgress: GoalProgressDTO{
			Completed:  report.GoalProgress.Completed,
			Total:      report.GoalProgress.Total,
			Percentage: report.GoalProgress.Percentage,
			Summary:    report.GoalProgress.Summary,
		},
		Entries: EntriesDTO{
			All:      itemsToDTO(report.Entries.All, true),
			Earning:  itemsToDTO(report.Entries.Earning, false),
			Spending: itemsToDTO(report.Entries.Spending, false),
		},
	}
	if report.HighestSpendingCategory != nil {
		dto.HighestSpendingCategory = &CategoryAmountDTO{
			Category: report.HighestSpendingCategory.Category,
			Amount:   report.HighestSpendingCategory.Amount,
		}
	}
	return dto
}

func itemsToDTO(items []Item, tagged bool) []ItemDTO {
	dtos := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		dto := ItemDTO{Date: item.Date, Category: item.Category, Name: item.Name, Amount: item.Amount}
		if tagged {
			dto.Type = kindLabel(item.Kind)
		}
		dtos = append(dtos, dto)
	}
	return dtos
}
