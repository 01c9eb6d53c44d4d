package audit

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iyaskobsp-spec/helpme.bot/internal/store"
)

func TestExportBuildsWorkbook(t *testing.T) {
	m := store.NewMemory()
	m.Seed("Requests", [][]string{
		{"ID", "Магазин", "Статус"},
		{"1", "101", "Pending"},
		{"2", "102", "Підтверджено (1/1)"},
	})
	m.Seed("Attendance", [][]string{
		{"Місто", "Магазин", "ПІБ"},
		{"Київ", "101", "Шевченко Тарас"},
	})

	logger := zerolog.New(io.Discard)
	e := NewExporter(m, []string{"Requests", "Attendance"}, &logger)

	buf, err := e.Export(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Requests", "Attendance"}, f.GetSheetList())

	rows, err := f.GetRows("Requests")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Магазин", "Статус"}, rows[0])
	assert.Equal(t, "Підтверджено (1/1)", rows[2][2])
}

func TestExportSkipsUnreadableTable(t *testing.T) {
	m := store.NewMemory()
	m.Err = assert.AnError

	logger := zerolog.New(io.Discard)
	e := NewExporter(m, []string{"Requests"}, &logger)

	_, err := e.Export(context.Background())
	assert.Error(t, err)
}

func TestGenerateFilename(t *testing.T) {
	ts := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Вересень_2026.xlsx", GenerateFilename(ts))
}
