package google

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"kosh/internal/core"
	ports "kosh/internal/sheets"
)

// Raw-flows header names as they appear in the sheet.
const (
	colDate              = "Date"
	colName              = "Name"
	colAmount            = "Amount"
	colType              = "Type"
	colCategory          = "Category"
	colIncomeAccount     = "Income Account"
	colExpenseAccount    = "Expense Account"
	colExpenseInstrument = "Expense Instrument"
	colOutflowAccount    = "Outflow Account"
	colInflowAccount     = "Inflow Account"
	colInvolvedAccount   = "Involved Account"
	colDebtType          = "Debt Type"
	colRefund            = "Benki?"
	colNotes             = "Notes"

	colValAccount = "Account"
	colValValue   = "Value"
)

func parseRawFlows(values [][]interface{}) ([]ports.RawFlowRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	idx := headerIndex(values[0])
	if _, ok := idx[colDate]; !ok {
		return nil, fmt.Errorf("raw flows sheet missing %q column", colDate)
	}

	var rows []ports.RawFlowRow
	for i, raw := range values[1:] {
		cells := toStrings(raw)
		rowNum := i + 2 // 1-based, after header

		dateCell := cellAt(cells, idx, colDate)
		if dateCell == "" {
			continue // blank row
		}
		// A bad date never aborts the batch; the row goes through with a
		// zero date so the importer can count it.
		date, err := parseDateCell(dateCell)
		if err != nil {
			slog.Warn("Unparseable date in raw flows sheet", "row", rowNum, "date", dateCell)
		}

		rows = append(rows, ports.RawFlowRow{
			Row:               rowNum,
			Date:              date,
			DateRaw:           dateCell,
			Name:              cellAt(cells, idx, colName),
			Amount:            cellAt(cells, idx, colAmount),
			Kind:              strings.ToLower(cellAt(cells, idx, colType)),
			Category:          cellAt(cells, idx, colCategory),
			IncomeAccount:     cellAt(cells, idx, colIncomeAccount),
			ExpenseAccount:    cellAt(cells, idx, colExpenseAccount),
			ExpenseInstrument: cellAt(cells, idx, colExpenseInstrument),
			OutflowAccount:    cellAt(cells, idx, colOutflowAccount),
			InflowAccount:     cellAt(cells, idx, colInflowAccount),
			InvolvedAccount:   cellAt(cells, idx, colInvolvedAccount),
			DebtKind:          strings.ToLower(cellAt(cells, idx, colDebtType)),
			Refund:            strings.EqualFold(cellAt(cells, idx, colRefund), "yes"),
			Notes:             cellAt(cells, idx, colNotes),
		})
	}
	return rows, nil
}

func parseValuations(values [][]interface{}) ([]ports.ValuationRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	idx := headerIndex(values[0])
	for _, col := range []string{colDate, colValAccount, colValValue} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("valuations sheet missing %q column", col)
		}
	}

	var rows []ports.ValuationRow
	for i, raw := range values[1:] {
		cells := toStrings(raw)
		rowNum := i + 2

		dateCell := cellAt(cells, idx, colDate)
		if dateCell == "" {
			continue
		}
		date, err := parseDateCell(dateCell)
		if err != nil {
			slog.Warn("Unparseable date in valuations sheet", "row", rowNum, "date", dateCell)
		}

		rows = append(rows, ports.ValuationRow{
			Row:     rowNum,
			Date:    date,
			DateRaw: dateCell,
			Account: cellAt(cells, idx, colValAccount),
			Value:   cellAt(cells, idx, colValValue),
		})
	}
	return rows, nil
}

// parseDateCell accepts a spreadsheet serial number or a YYYY-MM-DD string.
func parseDateCell(s string) (core.Date, error) {
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return core.DateFromSerial(serial), nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("unparseable date %q", s)
	}
	return d, nil
}

func headerIndex(header []interface{}) map[string]int {
	idx := map[string]int{}
	for i, cell := range header {
		name := strings.TrimSpace(fmt.Sprint(cell))
		if name != "" {
			idx[name] = i
		}
	}
	return idx
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch t := v.(type) {
		case string:
			out[i] = strings.TrimSpace(t)
		case float64:
			out[i] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			if t {
				out[i] = "yes"
			} else {
				out[i] = "no"
			}
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(t))
		}
	}
	return out
}

func cellAt(cells []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(cells) {
		return ""
	}
	return cells[i]
}
