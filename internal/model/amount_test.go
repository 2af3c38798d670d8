package model

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountMarshalsAsString(t *testing.T) {
	// Above 2^53: would be corrupted by a float64 round trip.
	v, ok := new(big.Int).SetString("123456789123456789123456789", 10)
	require.True(t, ok)

	data, err := json.Marshal(NewAmount(v))
	require.NoError(t, err)
	assert.Equal(t, `"123456789123456789123456789"`, string(data))

	var decoded Amount
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 0, decoded.Cmp(v))
}

func TestAmountAcceptsBareNumber(t *testing.T) {
	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`42`), &a))
	assert.Equal(t, int64(42), a.Int64())
}

func TestAmountRejectsGarbage(t *testing.T) {
	var a Amount
	assert.Error(t, json.Unmarshal([]byte(`"12.5"`), &a))
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &a))
}

func TestNewSummaryTotals(t *testing.T) {
	records := []*DistributionRecord{
		{Address: "a", Amount: NewAmountFromUint64(100)},
		{Address: "b", Amount: NewAmountFromUint64(250)},
	}

	s := NewSummary(records)
	assert.Equal(t, 2, s.TotalRecords)
	assert.Equal(t, "350", s.TotalAmount.String())
	assert.Equal(t, "0", s.DistributedAmount.String())
	assert.Equal(t, "0", s.FailedAmount.String())
	assert.Nil(t, s.EndTime)
	assert.False(t, s.AbortedByUser)
}
