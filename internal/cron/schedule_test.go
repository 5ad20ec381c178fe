package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Seconds(t *testing.T) {
	s, err := Parse("90")
	require.NoError(t, err)
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(90*time.Second), s.Next(base))
}

func TestParse_EmptyUsesDefault(t *testing.T) {
	s, err := Parse("  ")
	require.NoError(t, err)
	assert.Equal(t, Every(DefaultInterval), s)
}

func TestParse_CronExpression(t *testing.T) {
	s, err := Parse("*/5 * * * *")
	require.NoError(t, err)
	base := time.Date(2025, 1, 15, 10, 1, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 15, 10, 5, 0, 0, time.UTC), s.Next(base))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("0")
	assert.Error(t, err)
	_, err = Parse("-5")
	assert.Error(t, err)
	_, err = Parse("every minute")
	assert.Error(t, err)
}

func TestMustParse_FallsBack(t *testing.T) {
	assert.Equal(t, Every(DefaultInterval), MustParse("nope"))
}

func TestMustParse_KeepsValidSetting(t *testing.T) {
	base := time.Date(2025, 1, 15, 10, 1, 30, 0, time.UTC)
	assert.Equal(t, base.Add(30*time.Second), MustParse("30").Next(base))
	assert.Equal(t, time.Date(2025, 1, 15, 10, 15, 0, 0, time.UTC), MustParse("*/15 * * * *").Next(base))
}
