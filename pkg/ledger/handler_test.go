package ledger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Daily(t *testing.T) {
	t.Run("should return totals of the requested day", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		handler := NewHandler(aggregator, clock)
		addEntry(Income, "Salary", "200", day(time.January, 5))
		addEntry(Spending, "Food", "35.75", day(time.January, 5))
		addEntry(Spending, "Food", "10", day(time.January, 6))
		req := httptest.NewRequest(http.MethodGet, "/api/ledger/daily?date=2026-01-05", nil)
		w := httptest.NewRecorder()

		// when
		handler.Daily(w, req.WithContext(userCtx(1)))

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var dto DailySummaryDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
		assert.Equal(t, "2026-01-05", dto.Date)
		assert.True(t, decimal.NewFromInt(200).Equal(dto.TotalIncome))
		assert.True(t, decimal.RequireFromString("35.75").Equal(dto.TotalSpending))
	})

	t.Run("should reject malformed date", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		handler := NewHandler(aggregator, clock)
		req := httptest.NewRequest(http.MethodGet, "/api/ledger/daily?date=05.01.2026", nil)
		w := httptest.NewRecorder()

		handler.Daily(w, req.WithContext(userCtx(1)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_Monthly(t *testing.T) {
	t.Run("should return totals of the explicit cycle", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		handler := NewHandler(aggregator, clock)
		addEntry(Income, "Salary", "1000", day(time.March, 1))
		addEntry(Spending, "Rent", "400", day(time.March, 2))
		req := httptest.NewRequest(http.MethodGet, "/api/ledger/monthly?month=2026-03", nil)
		w := httptest.NewRecorder()

		// when
		handler.Monthly(w, req.WithContext(userCtx(1)))

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var dto CycleSummaryDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
		assert.Equal(t, "2026-03-01", dto.StartDate)
		assert.Equal(t, "2026-03-31", dto.EndDate)
		assert.Equal(t, "1 March 2026 - 31 March 2026", dto.DateRange)
		assert.True(t, decimal.NewFromInt(600).Equal(dto.Net))
	})

	t.Run("should reject malformed month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		handler := NewHandler(aggregator, clock)
		req := httptest.NewRequest(http.MethodGet, "/api/ledger/monthly?month=2026-13", nil)
		w := httptest.NewRecorder()

		handler.Monthly(w, req.WithContext(userCtx(1)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid month format")
	})
}
