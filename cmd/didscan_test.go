package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutoffDate_Explicit(t *testing.T) {
	now := time.Date(2025, 7, 15, 13, 0, 0, 0, time.UTC)
	got, err := cutoffDate(2025, 6, 30, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), got)
}

func TestCutoffDate_DefaultsToToday(t *testing.T) {
	now := time.Date(2025, 7, 15, 13, 45, 0, 0, time.UTC)
	got, err := cutoffDate(0, 0, 0, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), got)

	// Partial flags fall back to today as well.
	got, err = cutoffDate(2025, 6, 0, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestCutoffDate_Invalid(t *testing.T) {
	_, err := cutoffDate(2025, 13, 1, time.Now())
	assert.Error(t, err)
	_, err = cutoffDate(2025, 1, 40, time.Now())
	assert.Error(t, err)
}

func TestReportPeriod(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

	got, err := reportPeriod("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = reportPeriod("2025-03", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = reportPeriod("March 2025", now)
	assert.Error(t, err)
}

func TestBillMonth(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	year, month, err := billMonth(0, 0, now)
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, time.December, month)

	year, month, err = billMonth(2025, 6, now)
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.June, month)

	_, _, err = billMonth(2025, 14, now)
	assert.Error(t, err)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("12345678-abcd-efgh"))
	assert.Equal(t, "short", truncateID("short"))
}
