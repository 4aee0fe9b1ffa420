package iopps_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	iopps "github.com/wingchucks/iopps-sub007"
)

func TestSessionClaims_UserID(t *testing.T) {
	t.Run("returns UID when present", func(t *testing.T) {
		claims := &iopps.SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user123"},
			UID:              "uid456",
		}

		assert.Equal(t, "uid456", claims.UserID())
	})

	t.Run("fallback to subject when UID is empty", func(t *testing.T) {
		claims := &iopps.SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user123"},
		}

		assert.Equal(t, "user123", claims.UserID())
	})
}

func TestSessionClaims_IsAdmin(t *testing.T) {
	tests := []struct {
		name     string
		claims   *iopps.SessionClaims
		expected bool
	}{
		{
			name:     "admin boolean grants privilege",
			claims:   &iopps.SessionClaims{Admin: true},
			expected: true,
		},
		{
			name:     "admin role grants privilege",
			claims:   &iopps.SessionClaims{UserRole: iopps.RoleAdmin},
			expected: true,
		},
		{
			name:     "employer role does not",
			claims:   &iopps.SessionClaims{UserRole: iopps.RoleEmployer},
			expected: false,
		},
		{
			name:     "empty claims do not",
			claims:   &iopps.SessionClaims{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.claims.IsAdmin())
		})
	}
}

func TestSessionClaims_Expires(t *testing.T) {
	t.Run("returns expiry when set", func(t *testing.T) {
		exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		claims := &iopps.SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
		}

		assert.True(t, claims.Expires().Equal(exp))
	})

	t.Run("zero when absent", func(t *testing.T) {
		claims := &iopps.SessionClaims{}
		assert.True(t, claims.Expires().IsZero())
	})
}

func TestParseRole(t *testing.T) {
	for _, role := range iopps.AllRoles() {
		parsed, ok := iopps.ParseRole(role)
		assert.True(t, ok)
		assert.Equal(t, role, parsed)
	}

	_, ok := iopps.ParseRole("superuser")
	assert.False(t, ok)
}
