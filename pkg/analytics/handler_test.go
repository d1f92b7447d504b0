package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_BalanceTrend(t *testing.T) {
	t.Run("should return trend of the requested month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		handler := NewHandler(service, clock)
		addEntry(ledger.Income, "Salary", "100", day(time.January, 1))
		balances.set("100")
		req := httptest.NewRequest(http.MethodGet, "/api/analytics/balance-trend?year=2026&month=1", nil)
		w := httptest.NewRecorder()

		// when
		handler.BalanceTrend(w, req.WithContext(userCtx(1)))

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var dto TrendDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
		assert.Equal(t, 2026, dto.Year)
		assert.Equal(t, 1, dto.Month)
		assert.Equal(t, "2026-01-01", dto.StartDate)
		assert.Equal(t, "2026-01-31", dto.EndDate)
		require.Len(t, dto.Trend, 31)
		assert.Equal(t, 1, dto.Trend[0].Day)
		assert.Equal(t, "100", dto.Trend[0].Balance.String())
	})

	t.Run("should encode missing trend as null", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		handler := NewHandler(service, clock)
		req := httptest.NewRequest(http.MethodGet, "/api/analytics/balance-trend", nil)
		w := httptest.NewRecorder()

		handler.BalanceTrend(w, req.WithContext(userCtx(1)))

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Nil(t, body["trend"])
		assert.Equal(t, NoTransactionsMessage, body["message"])
		assert.Equal(t, float64(2), body["month"])
	})

	t.Run("should reject invalid month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		handler := NewHandler(service, clock)
		req := httptest.NewRequest(http.MethodGet, "/api/analytics/balance-trend?year=2026&month=13", nil)
		w := httptest.NewRecorder()

		handler.BalanceTrend(w, req.WithContext(userCtx(1)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_IncomeVsExpenses(t *testing.T) {
	t.Run("should return twelve months", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		handler := NewHandler(service, clock)
		addEntry(ledger.Income, "Salary", "120", day(time.February, 1))
		req := httptest.NewRequest(http.MethodGet, "/api/analytics/income-vs-expenses?year=2026", nil)
		w := httptest.NewRecorder()

		handler.IncomeVsExpenses(w, req.WithContext(userCtx(1)))

		require.Equal(t, http.StatusOK, w.Code)
		var dto YearOverviewDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
		require.Len(t, dto.Months, 12)
		assert.Equal(t, "120", dto.Months[1].Income.String())
		assert.Equal(t, "10", dto.AvgMonthlyIncome.String())
	})

	t.Run("should reject malformed year", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		handler := NewHandler(service, clock)
		req := httptest.NewRequest(http.MethodGet, "/api/analytics/income-vs-expenses?year=abc", nil)
		w := httptest.NewRecorder()

		handler.IncomeVsExpenses(w, req.WithContext(userCtx(1)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_SpendingByCategory(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	handler := NewHandler(service, clock)
	addEntry(ledger.Spending, "Food", "40", day(time.January, 2))
	req := httptest.NewRequest(http.MethodGet, "/api/analytics/spending-by-category?year=2026&month=1", nil)
	w := httptest.NewRecorder()

	// when
	handler.SpendingByCategory(w, req.WithContext(userCtx(1)))

	// then
	require.Equal(t, http.StatusOK, w.Code)
	var dto CategoryBreakdownDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
	assert.Equal(t, "1 January 2026 - 31 January 2026", dto.DateRange)
	require.Len(t, dto.Categories, 1)
	assert.Equal(t, "100", dto.Categories[0].Percentage.String())
}
