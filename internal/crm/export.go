package crm

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CmdExport handles export commands
func (c *Client) CmdExport(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: crm-cli export <type> -o <file.xlsx>")
		fmt.Println("Types: sales, payments")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  crm-cli export sales -o sales.xlsx")
		fmt.Println("  crm-cli export payments -o payments.xlsx")
		return nil
	}

	outputFile := ""
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			outputFile = args[i+1]
		}
	}
	if outputFile == "" {
		return fmt.Errorf("output file required: -o <file.xlsx>")
	}
	if !strings.EqualFold(filepath.Ext(outputFile), ".xlsx") {
		return fmt.Errorf("output file must end in .xlsx")
	}

	ctx := context.Background()
	switch args[0] {
	case "sales":
		fmt.Printf("%sExporting sales to %s...%s\n", Blue, outputFile, Reset)
		sales, err := c.ListSales(ctx)
		if err != nil {
			return err
		}
		if err := WriteSalesWorkbook(outputFile, sales, c.Config.Currency); err != nil {
			return err
		}
		fmt.Printf("%s✓ Exported %d sales%s\n", Green, len(sales), Reset)
	case "payments":
		fmt.Printf("%sExporting payments to %s...%s\n", Blue, outputFile, Reset)
		rows, err := c.ListPayments(ctx)
		if err != nil {
			return err
		}
		if err := WritePaymentsWorkbook(outputFile, rows, c.Config.Currency); err != nil {
			return err
		}
		fmt.Printf("%s✓ Exported %d customers%s\n", Green, len(rows), Reset)
	default:
		return fmt.Errorf("unknown export type: %s", args[0])
	}

	c.Log.Info().Str("type", args[0]).Str("file", outputFile).Msg("exported")
	return nil
}

// sheetWriter fills one worksheet with a bold header and money columns
type sheetWriter struct {
	f     *excelize.File
	sheet string
	money int
	row   int
}

func newSheetWriter(sheet string, headers []interface{}, widths []float64) (*sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		f.Close()
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", header); err != nil {
		f.Close()
		return nil, err
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &sheetWriter{f: f, sheet: sheet, money: money, row: 1}, nil
}

// add appends a row; moneyCols are 1-based columns formatted as amounts
func (w *sheetWriter) add(values []interface{}, moneyCols ...int) error {
	w.row++
	cell, _ := excelize.CoordinatesToCellName(1, w.row)
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		return err
	}
	for _, col := range moneyCols {
		ref, _ := excelize.CoordinatesToCellName(col, w.row)
		if err := w.f.SetCellStyle(w.sheet, ref, ref, w.money); err != nil {
			return err
		}
	}
	return nil
}

func (w *sheetWriter) save(path string) error {
	defer w.f.Close()
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteSalesWorkbook writes the sales list to an .xlsx file
func WriteSalesWorkbook(path string, sales []SaleSummary, currency string) error {
	w, err := newSheetWriter("Sales",
		[]interface{}{"ID", "Customer", "Total (" + currency + ")", "Final", "Status", "Created"},
		[]float64{8, 35, 18, 8, 10, 12},
	)
	if err != nil {
		return err
	}

	for _, s := range sales {
		final := "No"
		if s.IsOrderFinal {
			final = "Yes"
		}
		err := w.add([]interface{}{
			s.ID, s.CustomerName, s.TotalPrice.InexactFloat64(), final, s.Status, shortDate(s.CreatedAt),
		}, 3)
		if err != nil {
			w.f.Close()
			return err
		}
	}
	return w.save(path)
}

// WritePaymentsWorkbook writes the per-customer payment summary plus a totals row
func WritePaymentsWorkbook(path string, rows []PaymentSummary, currency string) error {
	w, err := newSheetWriter("Payments",
		[]interface{}{"Customer", "Collected (" + currency + ")", "Remaining (" + currency + ")", "Last payment"},
		[]float64{35, 18, 18, 14},
	)
	if err != nil {
		return err
	}

	for _, r := range rows {
		err := w.add([]interface{}{
			r.CustomerName, r.TotalCollected.InexactFloat64(), r.RemainingBalance.InexactFloat64(), shortDate(r.LastPaymentDate),
		}, 2, 3)
		if err != nil {
			w.f.Close()
			return err
		}
	}

	totals := SumPayments(rows)
	if err := w.add([]interface{}{"Total", totals.Collected.InexactFloat64(), totals.Remaining.InexactFloat64()}, 2, 3); err != nil {
		w.f.Close()
		return err
	}
	return w.save(path)
}
