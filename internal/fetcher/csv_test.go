package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamCSV_HeaderThenRows(t *testing.T) {
	src := strings.NewReader("REF_DATE,GEO,VALUE\n2021,Alberta,100\n2021,Ontario,200\n")
	headerCh := make(chan []string, 1)

	rowCh, errCh := StreamCSV(context.Background(), src, headerCh)

	header := <-headerCh
	assert.Equal(t, []string{"REF_DATE", "GEO", "VALUE"}, header)

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	require.NoError(t, <-errCh)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2021", "Alberta", "100"}, rows[0])
	assert.Equal(t, []string{"2021", "Ontario", "200"}, rows[1])
}

func TestStreamCSV_NilHeaderChannel(t *testing.T) {
	src := strings.NewReader("A,B\n1,2\n")

	rowCh, errCh := StreamCSV(context.Background(), src, nil)

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	require.NoError(t, <-errCh)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1", "2"}, rows[0])
}

func TestStreamCSV_EmptyInput(t *testing.T) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(""), headerCh)

	for range rowCh {
		t.Fatal("no rows expected")
	}
	assert.NoError(t, <-errCh)
	select {
	case h := <-headerCh:
		t.Fatalf("unexpected header %v", h)
	default:
	}
}

func TestStreamCSV_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("A,B\n1,2\n"), nil)

	for range rowCh {
	}
	assert.Error(t, <-errCh)
}

func TestStreamCSV_VariableFieldCounts(t *testing.T) {
	src := strings.NewReader("A,B,C\n1,2\n1,2,3,4\n")

	rowCh, errCh := StreamCSV(context.Background(), src, nil)

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	require.NoError(t, <-errCh)
	assert.Len(t, rows, 2)
}
