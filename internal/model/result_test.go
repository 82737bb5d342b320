package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSetMarshalJSON_ColumnOriented(t *testing.T) {
	rs := NewResultSet([]string{"risk_category", "total_mentions"})
	rs.Append([]any{"Regulatory", int64(7)})
	rs.Append([]any{[]byte("Operational"), int64(3)})

	b, err := json.Marshal(rs)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"RISK_CATEGORY": {"0": "Regulatory", "1": "Operational"},
		"TOTAL_MENTIONS": {"0": 7, "1": 3}
	}`, string(b))

	// Column order is preserved in the encoded output.
	assert.Less(t, strings.Index(string(b), "RISK_CATEGORY"), strings.Index(string(b), "TOTAL_MENTIONS"))
}

func TestResultSetMarshalJSON_Empty(t *testing.T) {
	rs := NewResultSet([]string{"a"})
	b, err := json.Marshal(rs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"A": {}}`, string(b))
}

func TestResultSetRecords(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rs := NewResultSet([]string{"company_name", "loaded_at"})
	rs.Append([]any{"Acme", ts})

	recs := rs.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "Acme", recs[0]["COMPANY_NAME"])
	assert.Equal(t, "2025-03-01T12:00:00Z", recs[0]["LOADED_AT"])
}
