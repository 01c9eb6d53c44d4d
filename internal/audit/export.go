// Package audit produces xlsx snapshots of the working tables so managers can
// keep an offline copy of shifts and attendance.
package audit

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iyaskobsp-spec/helpme.bot/internal/store"
)

// MonthNames in Ukrainian for filename generation.
var MonthNames = map[time.Month]string{
	time.January:   "Січень",
	time.February:  "Лютий",
	time.March:     "Березень",
	time.April:     "Квітень",
	time.May:       "Травень",
	time.June:      "Червень",
	time.July:      "Липень",
	time.August:    "Серпень",
	time.September: "Вересень",
	time.October:   "Жовтень",
	time.November:  "Листопад",
	time.December:  "Грудень",
}

// GenerateFilename creates a filename like "Вересень_2026.xlsx".
func GenerateFilename(t time.Time) string {
	return fmt.Sprintf("%s_%d.xlsx", MonthNames[t.Month()], t.Year())
}

// Exporter snapshots a fixed set of tables into one workbook, one sheet per
// table.
type Exporter struct {
	store  store.Tabular
	tables []string
	logger *zerolog.Logger
}

// NewExporter creates an exporter over the given tables.
func NewExporter(st store.Tabular, tables []string, logger *zerolog.Logger) *Exporter {
	return &Exporter{store: st, tables: tables, logger: logger}
}

// Export reads every configured table and returns the workbook bytes. A table
// that fails to read gets skipped so one broken sheet cannot sink the whole
// report.
func (e *Exporter) Export(ctx context.Context) (*bytes.Buffer, error) {
	w := NewWriter()
	defer w.Close()

	exported := 0
	for _, table := range e.tables {
		rows, err := e.store.GetAllRows(ctx, table)
		if err != nil {
			e.logger.Error().Err(err).Str("table", table).Msg("export: table read failed")
			continue
		}

		if err := w.AddSheet(table); err != nil {
			return nil, err
		}
		for i, row := range rows {
			if i == 0 {
				if err := w.WriteHeader(row); err != nil {
					return nil, err
				}
				continue
			}
			if err := w.WriteRow(row); err != nil {
				return nil, err
			}
		}
		exported++
		e.logger.Debug().Str("table", table).Int("rows", len(rows)).Msg("export: sheet written")
	}

	if exported == 0 {
		return nil, fmt.Errorf("export: no tables could be read")
	}

	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		return nil, fmt.Errorf("export: save workbook: %w", err)
	}
	return &buf, nil
}
