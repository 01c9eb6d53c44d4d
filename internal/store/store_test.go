package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBasicOps(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	idx, err := m.AppendRow(ctx, "Requests", []string{"", "101"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = m.AppendRow(ctx, "Requests", []string{"", "102"})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	// Writing past the current row width grows the row.
	require.NoError(t, m.UpdateCell(ctx, "Requests", 2, 9, "Pending"))

	row, err := m.GetRow(ctx, "Requests", 2)
	require.NoError(t, err)
	require.Len(t, row, 9)
	assert.Equal(t, "Pending", row[8])

	rows, err := m.GetAllRows(ctx, "Requests")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	missing, err := m.GetRow(ctx, "Requests", 10)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryBatchUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Seed("Requests", [][]string{{"header"}})

	err := m.BatchUpdate(ctx, "Requests", []RangeUpdate{
		{Range: "B2:B2", Values: [][]string{{"101"}}},
		{Range: "D2:G2", Values: [][]string{{"15.09.2025", "09:00", "18:00", "2"}}},
		{Range: "I2:I2", Values: [][]string{{"Pending"}}},
	})
	require.NoError(t, err)

	row, err := m.GetRow(ctx, "Requests", 2)
	require.NoError(t, err)
	assert.Equal(t, "101", row[1])
	assert.Equal(t, "18:00", row[5])
	assert.Equal(t, "2", row[6])
	assert.Equal(t, "Pending", row[8])

	assert.Error(t, m.BatchUpdate(ctx, "Requests", []RangeUpdate{{Range: "7B", Values: nil}}))
}

func TestMemoryErrInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Err = errors.New("store down")

	_, err := m.GetAllRows(ctx, "Requests")
	assert.Error(t, err)
	_, err = m.AppendRow(ctx, "Requests", []string{"x"})
	assert.Error(t, err)
}

func TestParseA1(t *testing.T) {
	col, row, err := parseA1("B7")
	require.NoError(t, err)
	assert.Equal(t, 2, col)
	assert.Equal(t, 7, row)

	col, _, err = parseA1("AA10")
	require.NoError(t, err)
	assert.Equal(t, 27, col)

	for _, bad := range []string{"", "7", "B", "B0"} {
		_, _, err := parseA1(bad)
		assert.Error(t, err, "ref: %q", bad)
	}
}

func TestCacheServesWithinTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Seed("Requests", [][]string{{"h"}, {"", "101"}})

	now := time.Now()
	c := NewCache(m, 20*time.Second)
	c.now = func() time.Time { return now }

	rows, fromCache, err := c.GetAllRows(ctx, "Requests")
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Len(t, rows, 2)

	// A write bypassing the cache is not visible until the TTL lapses.
	_, err = m.AppendRow(ctx, "Requests", []string{"", "102"})
	require.NoError(t, err)

	rows, fromCache, err = c.GetAllRows(ctx, "Requests")
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Len(t, rows, 2)

	now = now.Add(21 * time.Second)
	rows, fromCache, err = c.GetAllRows(ctx, "Requests")
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Len(t, rows, 3)
}

func TestCachePerTableTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Seed("Stores", [][]string{{"h"}})

	now := time.Now()
	c := NewCache(m, 20*time.Second)
	c.SetTTL("Stores", time.Minute)
	c.now = func() time.Time { return now }

	_, _, err := c.GetAllRows(ctx, "Stores")
	require.NoError(t, err)

	now = now.Add(40 * time.Second)
	_, fromCache, err := c.GetAllRows(ctx, "Stores")
	require.NoError(t, err)
	assert.True(t, fromCache, "per-table TTL of 60s should still hold at +40s")
}

func TestCacheAbsorbsOutage(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Seed("Requests", [][]string{{"h"}, {"", "101"}})

	now := time.Now()
	c := NewCache(m, 10*time.Second)
	c.now = func() time.Time { return now }

	_, _, err := c.GetAllRows(ctx, "Requests")
	require.NoError(t, err)

	m.Err = errors.New("store down")
	now = now.Add(11 * time.Second)

	rows, fromCache, err := c.GetAllRows(ctx, "Requests")
	require.NoError(t, err, "stale data should cover a short outage")
	assert.True(t, fromCache)
	assert.Len(t, rows, 2)
}

func TestCacheReturnsIsolatedRows(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Seed("Requests", [][]string{{"h"}, {"", "101"}})

	c := NewCache(m, time.Minute)
	rows, _, err := c.GetAllRows(ctx, "Requests")
	require.NoError(t, err)
	rows[1][1] = "mutated"

	again, fromCache, err := c.GetAllRows(ctx, "Requests")
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, "101", again[1][1], "a caller's mutation must not leak into the cached entry")
}

func TestCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Seed("Requests", [][]string{{"h"}})

	c := NewCache(m, time.Minute)
	_, _, err := c.GetAllRows(ctx, "Requests")
	require.NoError(t, err)

	_, err = m.AppendRow(ctx, "Requests", []string{"", "101"})
	require.NoError(t, err)

	c.Invalidate(ctx, "Requests")
	rows, fromCache, err := c.GetAllRows(ctx, "Requests")
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Len(t, rows, 2)
}
