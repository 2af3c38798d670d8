package txlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokendrip/internal/model"
)

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "transactions.csv")
	records := []*model.DistributionRecord{
		{Address: "addr1", Amount: amount(t, "100500000000000000000"), Status: model.StatusCompleted, TxHash: "0xdeadbeef", SourceRow: 1},
		{Address: "addr2", Amount: amount(t, "250000000000000000000"), Status: model.StatusFailed, SourceRow: 2},
		{Address: "addr3", Amount: amount(t, "1"), Status: model.StatusCompleted, TxHash: "unknown", SourceRow: 3},
	}

	require.NoError(t, Write(path, "astar", records))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"SourceFileRowNumber", "Address", "Amount", "Status", "TransactionHash", "ExplorerLink"}, rows[0])
	assert.Equal(t, []string{"1", "addr1", "100.5", "completed", "0xdeadbeef", "https://astar.subscan.io/extrinsic/0xdeadbeef"}, rows[1])
	assert.Equal(t, []string{"2", "addr2", "250", "failed", "", ""}, rows[2])

	// The "unknown" sentinel never produces a link.
	assert.Equal(t, []string{"3", "addr3", "0.000000000000000001", "completed", "unknown", ""}, rows[3])
}

func TestWriteReportUnrecognizedNetwork(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	records := []*model.DistributionRecord{
		{Address: "addr1", Amount: amount(t, "1000000000000000000"), Status: model.StatusCompleted, TxHash: "0xabc", SourceRow: 1},
	}

	require.NoError(t, Write(path, "somechain", records))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[1][5])
}

func TestWriteReportEscapesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	records := []*model.DistributionRecord{
		{Address: `weird,"addr"`, Amount: amount(t, "1000000000000000000"), Status: model.StatusFailed, SourceRow: 1},
	}

	require.NoError(t, Write(path, "astar", records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// Internal quotes doubled, field wrapped in quotes.
	assert.Contains(t, string(raw), `"weird,""addr"""`)

	// And it still parses back to the original value.
	rows, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, `weird,"addr"`, rows[1][1])
}

func amount(t *testing.T, s string) *model.Amount {
	t.Helper()
	var a model.Amount
	_, ok := a.SetString(s, 10)
	require.True(t, ok)
	return &a
}
