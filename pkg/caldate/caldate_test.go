package caldate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndValidate(t *testing.T) {
	parsed, err := Parse("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", parsed.Format(Layout))

	assert.True(t, IsValid("2024-02-29")) // 闰年
	assert.False(t, IsValid("2023-02-29"))
	assert.False(t, IsValid("2024-13-01"))
	assert.False(t, IsValid("01/03/2024"))
	assert.False(t, IsValid(""))
}

func TestAddDays(t *testing.T) {
	assert.Equal(t, "2024-03-01", AddDays("2024-02-29", 1))
	assert.Equal(t, "2024-02-29", AddDays("2024-03-01", -1))
	assert.Equal(t, "2025-01-01", AddDays("2024-12-31", 1))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween("2024-03-01", "2024-03-01"))
	assert.Equal(t, 1, DaysBetween("2024-03-01", "2024-03-02"))
	assert.Equal(t, -1, DaysBetween("2024-03-02", "2024-03-01"))
	// 跨越闰日
	assert.Equal(t, 2, DaysBetween("2024-02-28", "2024-03-01"))
}

func TestBefore(t *testing.T) {
	assert.True(t, Before("2024-03-01", "2024-03-02"))
	assert.False(t, Before("2024-03-02", "2024-03-01"))
	assert.False(t, Before("2024-03-01", "2024-03-01"))
}
