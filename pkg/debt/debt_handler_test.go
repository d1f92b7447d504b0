package debt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebtHandler(t *testing.T) {
	t.Run("should create and list lent money", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		handler := NewDebtHandler(service)
		body := `{"direction":"LENT","name":"Rent share","counterparty":"Sam","amount":"300","debtDate":"2026-01-05"}`
		createReq := httptest.NewRequest(http.MethodPost, "/api/debt", strings.NewReader(body))
		createW := httptest.NewRecorder()

		// when
		handler.Create(createW, createReq.WithContext(ctx))
		listW := httptest.NewRecorder()
		handler.List(listW, httptest.NewRequest(http.MethodGet, "/api/debt?direction=lent", nil).WithContext(ctx))

		// then
		require.Equal(t, http.StatusCreated, createW.Code)
		var created DebtDTO
		require.NoError(t, json.NewDecoder(createW.Body).Decode(&created))
		assert.Equal(t, "LENT", created.Direction)
		assert.Equal(t, "UNPAID", created.Status)
		require.NotNil(t, created.DebtDate)
		assert.Equal(t, "2026-01-05", *created.DebtDate)
		assert.Nil(t, created.PayoffDate)

		require.Equal(t, http.StatusOK, listW.Code)
		var overview OverviewDTO
		require.NoError(t, json.NewDecoder(listW.Body).Decode(&overview))
		assert.Equal(t, "LENT", overview.Direction)
		assert.Equal(t, "0/1", overview.Settled)
		assert.Equal(t, "300", overview.TotalLeft.String())
		require.Len(t, overview.Debts, 1)
		assert.Equal(t, "Sam", overview.Debts[0].Counterparty)
	})

	t.Run("should reject list without direction", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		handler := NewDebtHandler(service)
		w := httptest.NewRecorder()

		handler.List(w, httptest.NewRequest(http.MethodGet, "/api/debt", nil).WithContext(ctx))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should record payment and settle", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		handler := NewDebtHandler(service)
		debt := createDebt(t, Borrowed, "Car repair", "500", "0")
		vars := map[string]string{"id": strconv.Itoa(debt.Id)}
		paymentReq := httptest.NewRequest(http.MethodPost, "/api/debt/1/payment", strings.NewReader(`{"amount":"200"}`))
		paymentW := httptest.NewRecorder()
		paidW := httptest.NewRecorder()

		// when
		handler.AddPayment(paymentW, mux.SetURLVars(paymentReq.WithContext(ctx), vars))
		handler.MarkPaid(paidW, mux.SetURLVars(httptest.NewRequest(http.MethodPost, "/api/debt/1/paid", nil).WithContext(ctx), vars))

		// then
		require.Equal(t, http.StatusOK, paymentW.Code)
		var paid DebtDTO
		require.NoError(t, json.NewDecoder(paymentW.Body).Decode(&paid))
		assert.Equal(t, "300", paid.AmountLeft.String())
		assert.Equal(t, 40, paid.PaymentPercentage)

		require.Equal(t, http.StatusOK, paidW.Code)
		var settled DebtDTO
		require.NoError(t, json.NewDecoder(paidW.Body).Decode(&settled))
		assert.Equal(t, "PAID", settled.Status)
		assert.True(t, settled.AmountLeft.IsZero())
	})

	t.Run("should answer not found for unknown debt", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		handler := NewDebtHandler(service)
		w := httptest.NewRecorder()
		req := mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/api/debt/99", nil).WithContext(ctx), map[string]string{"id": "99"})

		handler.Delete(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
