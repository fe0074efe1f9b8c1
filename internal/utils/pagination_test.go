package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func paginationContext(t *testing.T, query string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/patients?"+query, nil)
	return c
}

// TestGetPaginationParams verifies defaults, clamping and bad input handling.
func TestGetPaginationParams(t *testing.T) {
	cases := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 25, 0},
		{"explicit", "limit=10&offset=30", 10, 30},
		{"limit clamped to max", "limit=500", 100, 0},
		{"zero limit falls back", "limit=0", 25, 0},
		{"negative offset falls back", "offset=-5", 25, 0},
		{"non-numeric input falls back", "limit=ten&offset=zero", 25, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := GetPaginationParams(paginationContext(t, tc.query))
			assert.Equal(t, tc.wantLimit, params.Limit)
			assert.Equal(t, tc.wantOffset, params.Offset)
		})
	}
}

// TestNewPaginationMetadata verifies the hasMore calculation.
func TestNewPaginationMetadata(t *testing.T) {
	meta := NewPaginationMetadata(42, 25, 0)
	assert.True(t, meta.HasMore)

	meta = NewPaginationMetadata(42, 25, 25)
	assert.False(t, meta.HasMore)

	meta = NewPaginationMetadata(0, 25, 0)
	assert.False(t, meta.HasMore)
}
