package debt

import (
	"testing"
	"time"

	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/internal/test_utils"
	"github.com/klokku/cycleledger/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var debtRepoStub = NewStubDebtRepo()
var clock = &utils.MockClock{FixedNow: time.Date(2026, time.January, 20, 12, 0, 0, 0, time.UTC)}
var service *DebtServiceImpl
var ctx = test_utils.UserContext(test_utils.TestUser(1))

func setup(t *testing.T) func() {
	service = NewDebtServiceImpl(debtRepoStub, clock)
	return func() {
		t.Log("Teardown after test")
		debtRepoStub.Cleanup()
	}
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func createDebt(t *testing.T, direction Direction, name, amount, paid string) Debt {
	t.Helper()
	debt, err := service.Create(ctx, Debt{
		Direction:    direction,
		Name:         name,
		Counterparty: "Alex",
		Amount:       dec(amount),
		PaidAmount:   dec(paid),
	})
	require.NoError(t, err)
	return debt
}

func TestDebtServiceImpl_Create(t *testing.T) {
	t.Run("should create unpaid debt with user currency", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		debt := createDebt(t, "borrowed", "  Car repair ", "500", "0")

		// then
		assert.Equal(t, Borrowed, debt.Direction)
		assert.Equal(t, "Car repair", debt.Name)
		assert.Equal(t, Unpaid, debt.Status)
		assert.Equal(t, "USD", debt.Currency)
		assert.Equal(t, 1, debt.UserId)
	})

	t.Run("should mark debt paid when created fully repaid", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		debt := createDebt(t, Lent, "Concert tickets", "80", "80")

		assert.Equal(t, Paid, debt.Status)
	})

	t.Run("should validate input", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		debtDate := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
		payoffDate := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
		cases := map[error]Debt{
			ErrInvalidDirection:  {Direction: "OWED", Name: "x", Amount: dec("1")},
			ErrNameRequired:      {Direction: Borrowed, Name: " ", Amount: dec("1")},
			ErrInvalidAmount:     {Direction: Borrowed, Name: "x", Amount: dec("0")},
			ErrNegativePaid:      {Direction: Borrowed, Name: "x", Amount: dec("10"), PaidAmount: dec("-1")},
			ErrPaidExceedsAmount: {Direction: Lent, Name: "x", Amount: dec("10"), PaidAmount: dec("11")},
			ErrDatesOutOfOrder:   {Direction: Lent, Name: "x", Amount: dec("10"), DebtDate: &debtDate, PayoffDate: &payoffDate},
		}

		for expected, debt := range cases {
			// when
			_, err := service.Create(ctx, debt)

			// then
			assert.ErrorIs(t, err, expected)
			assert.True(t, errs.IsKind(err, errs.InvalidInput))
		}
	})
}

func TestDebtServiceImpl_AddPayment(t *testing.T) {
	t.Run("should add payments and settle at the full amount", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		debt := createDebt(t, Borrowed, "Car repair", "500", "100")

		// when
		partial, err := service.AddPayment(ctx, debt.Id, dec("150"))
		require.NoError(t, err)
		full, err := service.AddPayment(ctx, debt.Id, dec("250"))
		require.NoError(t, err)

		// then
		assert.Equal(t, "250", partial.PaidAmount.String())
		assert.Equal(t, Unpaid, partial.Status)
		assert.Equal(t, 50, partial.PaymentPercentage())
		assert.Equal(t, Paid, full.Status)
		assert.True(t, full.AmountLeft().IsZero())
	})

	t.Run("should cap payments at the outstanding amount", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		borrowed := createDebt(t, Borrowed, "Car repair", "500", "450")
		lent := createDebt(t, Lent, "Rent share", "300", "200")

		_, borrowedErr := service.AddPayment(ctx, borrowed.Id, dec("60"))
		_, lentErr := service.AddPayment(ctx, lent.Id, dec("150"))

		require.Error(t, borrowedErr)
		assert.True(t, errs.IsKind(borrowedErr, errs.InvalidInput))
		assert.Equal(t, "Adding 60 would exceed the debt amount. Maximum you can pay: 50", borrowedErr.Error())
		assert.Equal(t, "Adding 150 would exceed the lent amount. Maximum you can collect: 100", lentErr.Error())
		stored, _ := service.Get(ctx, borrowed.Id)
		assert.Equal(t, "450", stored.PaidAmount.String())
	})

	t.Run("should reject payment on settled debt", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		borrowed := createDebt(t, Borrowed, "Car repair", "10", "10")
		lent := createDebt(t, Lent, "Rent share", "10", "10")

		_, borrowedErr := service.AddPayment(ctx, borrowed.Id, dec("1"))
		_, lentErr := service.AddPayment(ctx, lent.Id, dec("1"))

		assert.EqualError(t, borrowedErr, "This debt is already fully paid")
		assert.EqualError(t, lentErr, "This lent amount is already fully collected")
	})

	t.Run("should reject non positive payment", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		debt := createDebt(t, Borrowed, "Car repair", "10", "0")

		_, err := service.AddPayment(ctx, debt.Id, dec("-5"))

		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("should not touch debt of another user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		debt := createDebt(t, Borrowed, "Car repair", "10", "0")
		other := test_utils.UserContext(test_utils.TestUser(2))

		_, err := service.AddPayment(other, debt.Id, dec("1"))

		assert.ErrorIs(t, err, ErrDebtNotFound)
		assert.ErrorIs(t, service.Delete(other, debt.Id), ErrDebtNotFound)
	})
}

func TestDebtServiceImpl_MarkPaid(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	debt := createDebt(t, Lent, "Rent share", "300", "20")

	// when
	settled, err := service.MarkPaid(ctx, debt.Id)
	require.NoError(t, err)
	_, again := service.MarkPaid(ctx, debt.Id)

	// then
	assert.Equal(t, Paid, settled.Status)
	assert.Equal(t, "300", settled.PaidAmount.String())
	assert.EqualError(t, again, "This lent amount is already fully collected")
}

func TestDebtServiceImpl_Update(t *testing.T) {
	t.Run("should update fields and keep payments", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		debt := createDebt(t, Borrowed, "Car repair", "500", "100")
		name := "Car service"
		amount := dec("600")
		payoff := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

		// when
		updated, err := service.Update(ctx, debt.Id, DebtPatch{Name: &name, Amount: &amount, PayoffDate: &payoff})

		// then
		require.NoError(t, err)
		assert.Equal(t, "Car service", updated.Name)
		assert.Equal(t, "600", updated.Amount.String())
		assert.Equal(t, "100", updated.PaidAmount.String())
		assert.Equal(t, payoff, *updated.PayoffDate)
		assert.Equal(t, Borrowed, updated.Direction)
	})

	t.Run("should settle when amount is lowered to the paid amount", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		debt := createDebt(t, Borrowed, "Car repair", "500", "100")
		lowered := dec("100")
		tooLow := dec("50")

		updated, err := service.Update(ctx, debt.Id, DebtPatch{Amount: &lowered})
		require.NoError(t, err)
		_, err = service.Update(ctx, debt.Id, DebtPatch{Amount: &tooLow})

		assert.Equal(t, Paid, updated.Status)
		assert.ErrorIs(t, err, ErrPaidExceedsAmount)
	})
}

func TestDebtServiceImpl_List(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	createDebt(t, Borrowed, "Car repair", "500", "125")
	phone := createDebt(t, Borrowed, "Phone", "200", "0")
	_, err := service.MarkPaid(ctx, phone.Id)
	require.NoError(t, err)
	createDebt(t, Borrowed, "Laptop", "300", "0.5")
	createDebt(t, Lent, "Rent share", "1000", "0")

	// when
	overview, err := service.List(ctx, "borrowed")

	// then
	require.NoError(t, err)
	require.Len(t, overview.Debts, 3)
	assert.Equal(t, Borrowed, overview.Direction)
	assert.Equal(t, "Laptop", overview.Debts[0].Name)
	assert.Equal(t, 0, overview.Debts[0].PaymentPercentage())
	assert.Equal(t, 25, overview.Debts[2].PaymentPercentage())
	assert.Equal(t, "674.5", overview.TotalLeft.String())
	assert.Equal(t, "1/3", overview.SettledRatio())

	_, err = service.List(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidDirection)
}
