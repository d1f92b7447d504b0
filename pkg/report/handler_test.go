package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Weekly(t *testing.T) {
	t.Run("should return report as json", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		addSampleEntries()
		handler := NewHandler(service, NewCsvReportRenderer())
		req := httptest.NewRequest(http.MethodGet, "/api/report/weekly", nil)
		w := httptest.NewRecorder()

		// when
		handler.Weekly(w, req.WithContext(userCtx()))

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var dto ReportDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
		assert.Equal(t, "2026-01-15", dto.StartDate)
		assert.Equal(t, "2026-01-21", dto.EndDate)
		assert.Equal(t, "Food", dto.HighestSpendingCategory.Category)
		require.Len(t, dto.Entries.All, 4)
		assert.Equal(t, "spending", dto.Entries.All[0].Type)
		assert.Equal(t, "", dto.Entries.Earning[0].Type)
		assert.Equal(t, 25, dto.GoalProgress.Percentage)
	})

	t.Run("should encode missing highest category as null", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		handler := NewHandler(service, NewCsvReportRenderer())
		w := httptest.NewRecorder()

		handler.Weekly(w, httptest.NewRequest(http.MethodGet, "/api/report/weekly", nil).WithContext(userCtx()))

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Contains(t, body, "highestSpendingCategory")
		assert.Nil(t, body["highestSpendingCategory"])
	})
}

func TestHandler_Monthly(t *testing.T) {
	t.Run("should render csv on request", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		addEntry(ledger.Spending, "Travel", "Train", "500", 10)
		handler := NewHandler(service, NewCsvReportRenderer())
		req := httptest.NewRequest(http.MethodGet, "/api/report/monthly?month=2026-01&format=csv", nil)
		w := httptest.NewRecorder()

		// when
		handler.Monthly(w, req.WithContext(userCtx()))

		// then
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(w.Body.String(), "Date,Type,Category,Name,Amount\n10/01/2026,spending,Travel,Train,500.00\n"))
	})

	t.Run("should reject malformed month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		handler := NewHandler(service, NewCsvReportRenderer())
		w := httptest.NewRecorder()

		handler.Monthly(w, httptest.NewRequest(http.MethodGet, "/api/report/monthly?month=2026-13", nil).WithContext(userCtx()))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
