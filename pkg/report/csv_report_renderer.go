package report

import (
	"bytes"
	"encoding/csv"

	"github.com/klokku/cycleledger/pkg/ledger"
	log "github.com/sirupsen/logrus"
)

type Renderer interface {
	RenderReport(report Report) (string, error)
}

type CsvReportRendererImpl struct {
}

func NewCsvReportRenderer() *CsvReportRendererImpl {
	return &CsvReportRendererImpl{}
}

// RenderReport writes the entry feed followed by the report totals.
func (t *CsvReportRendererImpl) RenderReport(report Report) (string, error) {
	data := make([][]string, 0, len(report.Entries.All)+5)
	data = append(data, []string{"Date", "Type", "Category", "Name", "Amount"})
	for _, item := range report.Entries.All {
		data = append(data, []string{
			item.Date.UTC().Format("02/01/2006"),
			kindLabel(item.Kind),
			item.Category,
			item.Name,
			item.Amount.StringFixed(2),
		})
	}
	data = append(data,
		[]string{"Total earning", "", "", "", report.TotalEarning.StringFixed(2)},
		[]string{"Total spending", "", "", "", report.TotalSpending.StringFixed(2)},
		[]string{"Current balance", "", "", "", report.CurrentBalance.StringFixed(2)},
	)
	if report.HighestSpendingCategory != nil {
		data = append(data, []string{"Highest spending", "", report.HighestSpendingCategory.Category, "",
			report.HighestSpendingCategory.Amount.StringFixed(2)})
	}

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		err := writer.Write(row)
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}

func kindLabel(kind ledger.Kind) string {
	if kind == ledger.Income {
		return "earning"
	}
	return "spending"
}
