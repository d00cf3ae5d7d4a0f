package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportService_ExportHistoryXLSX(t *testing.T) {
	f := newHistoryFixture(t)
	attemptID := f.submitAt(t, f.student.ID, 1, 33.33)

	data, err := NewExportService(f.history, testLogger()).ExportHistoryXLSX(context.Background(), HistoryQuery{})
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{attemptsSheet, itemsSheet}, book.GetSheetList())

	attempts, err := book.GetRows(attemptsSheet)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "Attempt ID", attempts[0][0])
	assert.Equal(t, attemptID, attempts[1][0])
	assert.Equal(t, "B1102", attempts[1][1])
	assert.Equal(t, "SUBMITTED", attempts[1][3])

	items, err := book.GetRows(itemsSheet)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "1", items[1][2])
	assert.Equal(t, "COPY", items[1][3])
	assert.Equal(t, "Y", items[1][6])
	assert.Equal(t, "N", items[2][6])
}
