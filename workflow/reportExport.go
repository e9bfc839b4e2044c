package workflow

import (
	"bytes"
	"context"
	"fmt"

	"bitbucket.org/dojoworks/dojo_backend/models"
	"github.com/xuri/excelize/v2"
)

// BuildBatchReport renders a reconciliation spreadsheet for one batch: a
// summary block plus one row per transaction. Handed to treasurers who match
// bank statements against the submitted file.
func BuildBatchReport(ctx context.Context, batchId int) ([]byte, string, error) {
	batch, err := models.GetBatchWithTransactions(ctx, batchId)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheetName := "Batch"
	f.SetSheetName("Sheet1", sheetName)

	// Summary block
	f.SetCellValue(sheetName, "A1", "BatchReference")
	f.SetCellValue(sheetName, "B1", batch.BatchReference)
	f.SetCellValue(sheetName, "A2", "ExecutionDate")
	f.SetCellValue(sheetName, "B2", batch.ExecutionDate.Format("2006-01-02"))
	f.SetCellValue(sheetName, "A3", "Status")
	f.SetCellValue(sheetName, "B3", string(batch.Status))
	f.SetCellValue(sheetName, "A4", "TransactionCount")
	f.SetCellValue(sheetName, "B4", batch.TransactionCount)
	f.SetCellValue(sheetName, "A5", "TotalAmountEUR")
	f.SetCellValue(sheetName, "B5", batch.TotalAmount.StringFixed(2))

	// Transaction table headers
	headerRow := 7
	f.SetCellValue(sheetName, "A"+fmt.Sprint(headerRow), "EndToEndId")
	f.SetCellValue(sheetName, "B"+fmt.Sprint(headerRow), "DebtorName")
	f.SetCellValue(sheetName, "C"+fmt.Sprint(headerRow), "DebtorIban")
	f.SetCellValue(sheetName, "D"+fmt.Sprint(headerRow), "MandateReference")
	f.SetCellValue(sheetName, "E"+fmt.Sprint(headerRow), "SequenceType")
	f.SetCellValue(sheetName, "F"+fmt.Sprint(headerRow), "AmountEUR")
	f.SetCellValue(sheetName, "G"+fmt.Sprint(headerRow), "Purpose")

	for i, t := range batch.Transactions {
		row := fmt.Sprint(headerRow + 1 + i)
		f.SetCellValue(sheetName, "A"+row, t.EndToEndId)
		f.SetCellValue(sheetName, "B"+row, t.DebtorName)
		f.SetCellValue(sheetName, "C"+row, t.DebtorIban)
		f.SetCellValue(sheetName, "D"+row, t.MandateReference)
		f.SetCellValue(sheetName, "E"+row, string(t.SequenceType))
		f.SetCellValue(sheetName, "F"+row, t.Amount.StringFixed(2))
		f.SetCellValue(sheetName, "G"+row, t.PurposeText)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), batch.BatchReference + ".xlsx", nil
}
