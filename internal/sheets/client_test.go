package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		col      int
		expected string
	}{
		{1, "A"},
		{2, "B"},
		{9, "I"},
		{15, "O"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ColumnLetter(tt.col), "col %d", tt.col)
	}
}

func TestRowFromRange(t *testing.T) {
	idx, err := rowFromRange("Requests!A12:G12")
	require.NoError(t, err)
	assert.Equal(t, 12, idx)

	idx, err = rowFromRange("JobQueue!A3")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	_, err = rowFromRange("Requests!A:G")
	assert.Error(t, err)
}

func TestRowConversions(t *testing.T) {
	rows := toStringRows([][]interface{}{{"101", 2, true}})
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"101", "2", "true"}, rows[0])

	back := toInterfaceRows([][]string{{"a", "b"}})
	require.Len(t, back, 1)
	assert.Equal(t, "a", back[0][0])
}
