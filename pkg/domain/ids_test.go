package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credentia/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseProcessID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseProcessID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseProcessID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseProcessID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, ProcessID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	processID := ProcessID(uuid.New())
	orgID := OrgID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ ProcessID = orgID   // compile error
	// var _ OrgID = processID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(processID), uuid.UUID(orgID))
}

// TestParseID_SecurityInvariants validates trust-boundary parsing rules:
// parsing must reject attack vectors at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE screening_processes;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400​-e29b-41d4-a716-446655440000", true},

		// Edge cases
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		// Valid
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocumentID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestTenantIsolation_CrossTenantAccessDenied encodes the invariant:
// "Actor from org A must never access resources from org B"
// Actual enforcement is in services, but typed IDs ensure org context is
// never accidentally omitted.
func TestTenantIsolation_CrossTenantAccessDenied(t *testing.T) {
	orgA := OrgID(uuid.New())
	orgB := OrgID(uuid.New())

	assert.NotEqual(t, orgA, orgB, "Different orgs must have different IDs")
	assert.NotEqual(t, uuid.UUID(orgA), uuid.UUID(orgB), "UUID values must differ")
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types have identical
// parsing behavior. Inconsistent validation across ID types could create
// security holes.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	parsers := map[string]func(string) error{
		"org":           func(s string) error { _, err := ParseOrgID(s); return err },
		"professional":  func(s string) error { _, err := ParseProfessionalID(s); return err },
		"process":       func(s string) error { _, err := ParseProcessID(s); return err },
		"step":          func(s string) error { _, err := ParseStepID(s); return err },
		"document":      func(s string) error { _, err := ParseDocumentID(s); return err },
		"document type": func(s string) error { _, err := ParseDocumentTypeID(s); return err },
		"version":       func(s string) error { _, err := ParseVersionID(s); return err },
		"alert":         func(s string) error { _, err := ParseAlertID(s); return err },
		"actor":         func(s string) error { _, err := ParseActorID(s); return err },
	}

	t.Run("all accept valid UUID", func(t *testing.T) {
		for name, parse := range parsers {
			require.NoError(t, parse(validUUID), "%s id parser", name)
		}
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			for name, parse := range parsers {
				require.Error(t, parse(input), "%s id parser", name)
			}
		})
	}
}
