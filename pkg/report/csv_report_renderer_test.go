package report

import (
	"testing"
	"time"

	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCsvReportRendererImpl_RenderReport(t *testing.T) {
	t.Run("should render entry feed and totals", func(t *testing.T) {
		// given
		report := Report{
			TotalEarning:            dec("1000"),
			TotalSpending:           dec("80.5"),
			CurrentBalance:          dec("919.5"),
			HighestSpendingCategory: &CategoryAmount{Category: "Food", Amount: dec("80.5")},
			Entries: Entries{All: []Item{
				{Date: time.Date(2026, time.January, 17, 10, 0, 0, 0, time.UTC), Kind: ledger.Spending, Category: "Food", Name: "Dinner, with friends", Amount: dec("80.5")},
				{Date: time.Date(2026, time.January, 16, 10, 0, 0, 0, time.UTC), Kind: ledger.Income, Category: "Job", Name: "Salary", Amount: dec("1000")},
			}},
		}

		// when
		csv, err := NewCsvReportRenderer().RenderReport(report)

		// then
		require.NoError(t, err)
		assert.Equal(t, "Date,Type,Category,Name,Amount\n"+
			"17/01/2026,spending,Food,\"Dinner, with friends\",80.50\n"+
			"16/01/2026,earning,Job,Salary,1000.00\n"+
			"Total earning,,,,1000.00\n"+
			"Total spending,,,,80.50\n"+
			"Current balance,,,,919.50\n"+
			"Highest spending,,Food,,80.50\n", csv)
	})

	t.Run("should skip highest spending row without spending", func(t *testing.T) {
		csv, err := NewCsvReportRenderer().RenderReport(Report{})

		require.NoError(t, err)
		assert.Equal(t, "Date,Type,Category,Name,Amount\n"+
			"Total earning,,,,0.00\n"+
			"Total spending,,,,0.00\n"+
			"Current balance,,,,0.00\n", csv)
	})
}
