package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bciers/pkg/domain-errors"
)

// TestParseID_Invariants validates that IDs parsed at trust boundaries are
// valid, non-empty, non-nil UUIDs.
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseOperatorID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		assert.Contains(t, err.Error(), "operator_id")
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseOperationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseReportVersionID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		parsed, err := ParseFacilityID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, raw, parsed.UUID)
		assert.False(t, parsed.IsNil())
	})
}

func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE erc.operator;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserGUID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestID_Encoding(t *testing.T) {
	opID := NewOperatorID()

	payload, err := json.Marshal(struct {
		ID OperatorID `json:"id"`
	}{ID: opID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+opID.String()+`"}`, string(payload))

	var decoded struct {
		ID OperatorID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, opID, decoded.ID)

	value, err := opID.Value()
	require.NoError(t, err)
	assert.Equal(t, opID.String(), value)
}

// Typed IDs are distinct types; the following would not compile:
//
//	var _ OperatorID = NewOperationID()
func TestID_ZeroValue(t *testing.T) {
	var id ReportID
	assert.True(t, id.IsNil())
	assert.False(t, NewReportID().IsNil())
}
