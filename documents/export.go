package documents

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportQuotationXLSX builds a spreadsheet for one quotation: header fields
// up top, then the item rows. The caller streams the file to the client.
func ExportQuotationXLSX(ctx context.Context, id string) (*excelize.File, string, error) {
	head, err := GetQuotation(ctx, id)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	const sheet = "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, "", err
	}

	qNo := stringField(head, "qNo")
	f.SetCellValue(sheet, "A1", "Quotation")
	f.SetCellValue(sheet, "B1", qNo)
	f.SetCellValue(sheet, "A2", "Date")
	f.SetCellValue(sheet, "B2", stringField(head, "qDate"))
	f.SetCellValue(sheet, "A3", "Status")
	f.SetCellValue(sheet, "B3", stringField(head, "status"))
	f.SetCellValue(sheet, "A4", "Customer")
	f.SetCellValue(sheet, "B4", stringField(head, "customerCode"))
	f.SetCellValue(sheet, "C4", stringField(head, "customerFirstName")+" "+stringField(head, "customerLastName"))

	f.SetCellValue(sheet, "A6", "ItemCode")
	f.SetCellValue(sheet, "B6", "ItemName")
	f.SetCellValue(sheet, "C6", "Qty")
	f.SetCellValue(sheet, "D6", "UnitPrice")
	f.SetCellValue(sheet, "E6", "Discount")
	f.SetCellValue(sheet, "F6", "LineTotal")

	items, _ := head["items"].([]map[string]any)
	row := 7
	for _, it := range items {
		f.SetCellValue(sheet, "A"+fmt.Sprint(row), stringField(it, "itemCode"))
		f.SetCellValue(sheet, "B"+fmt.Sprint(row), stringField(it, "itemName"))
		f.SetCellValue(sheet, "C"+fmt.Sprint(row), decimalField(it, "qty").InexactFloat64())
		f.SetCellValue(sheet, "D"+fmt.Sprint(row), decimalField(it, "unitPrice").InexactFloat64())
		f.SetCellValue(sheet, "E"+fmt.Sprint(row), decimalField(it, "discount").InexactFloat64())
		f.SetCellValue(sheet, "F"+fmt.Sprint(row), decimalField(it, "lineTotal").InexactFloat64())
		row++
	}

	row++
	f.SetCellValue(sheet, "E"+fmt.Sprint(row), "TotalBeforeDiscount")
	f.SetCellValue(sheet, "F"+fmt.Sprint(row), decimalField(head, "totalBeforeDiscount").InexactFloat64())
	row++
	f.SetCellValue(sheet, "E"+fmt.Sprint(row), "Discount")
	f.SetCellValue(sheet, "F"+fmt.Sprint(row), decimalField(head, "discount").InexactFloat64())
	row++
	f.SetCellValue(sheet, "E"+fmt.Sprint(row), "GrandTotal")
	f.SetCellValue(sheet, "F"+fmt.Sprint(row), decimalField(head, "grandTotal").InexactFloat64())

	return f, fmt.Sprintf("quotation-%s.xlsx", qNo), nil
}
