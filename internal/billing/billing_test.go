package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e164networks/e164bill/internal/model"
)

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Voice & Data - Inbound", "VOICEANDDATA"},
		{"Voice & Data - Outbound", "VOICEANDDATA"},
		{"Standard Inbound", "STANDARD"},
		{"Standard Outbound", "STANDARD"},
		{"Premium Plan", "PREMIUMPLAN"},
		{"wholesale", "WHOLESALE"},
		{"A & B & C", "AANDBANDC"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePlan(tt.in), "NormalizePlan(%q)", tt.in)
	}
}

func TestPlanWithDirection(t *testing.T) {
	assert.Equal(t, "STANDARD-IN", PlanWithDirection("Standard Inbound", "in"))
	assert.Equal(t, "STANDARD-OUT", PlanWithDirection("Standard Outbound", "out"))
	assert.Equal(t, "STANDARD", PlanWithDirection("Standard", "local"))
}

func call(reseller, client int64, rname, cname, ext string, dur int64, rcost, ccost string) model.CallRecord {
	return model.CallRecord{
		ResellerID:   reseller,
		ResellerName: rname,
		ClientID:     client,
		ClientName:   cname,
		Direction:    "out",
		BillingPlan:  "Standard Outbound",
		Start:        time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
		Extension:    ext,
		PhoneNumber:  "61255501",
		Duration:     dur,
		ResellerCost: decimal.RequireFromString(rcost),
		ClientCost:   decimal.RequireFromString(ccost),
	}
}

func TestAggregate_GroupsAndTotals(t *testing.T) {
	records := []model.CallRecord{
		call(1, 10, "Acme Telecom", "Beta Pty", "0001", 60, "0.10", "0.25"),
		call(1, 10, "Acme Telecom", "Beta Pty", "0001", 120, "0.20", "0.50"),
		call(1, 10, "Acme Telecom", "Beta Pty", "0002", 30, "0.05", "0.10"),
		call(1, 11, "Acme Telecom", "Gamma Ltd", "0101", 300, "0.50", "1.00"),
		call(2, 20, "Zenith Voice", "Delta Co", "0201", 45, "0.08", "0.15"),
	}
	counts := Counts{
		ResellerDids:       map[int64]int{1: 200, 2: 50},
		ClientDids:         map[int64]int{10: 120, 11: 80, 20: 50},
		ResellerExtensions: map[int64]int{1: 30, 2: 5},
		ClientExtensions:   map[int64]int{10: 20, 11: 10, 20: 5},
	}

	bills := Aggregate(records, counts)
	require.Len(t, bills, 2)

	acme := bills[0]
	assert.Equal(t, int64(1), acme.ResellerID)
	assert.Equal(t, "Acme Telecom", acme.ResellerName)
	assert.Equal(t, int64(510), acme.Duration)
	assert.True(t, acme.ResellerCost.Equal(decimal.RequireFromString("0.85")), "got %s", acme.ResellerCost)
	assert.True(t, acme.ClientCost.Equal(decimal.RequireFromString("1.85")), "got %s", acme.ClientCost)
	assert.Equal(t, 200, acme.DidCount)
	assert.Equal(t, 30, acme.ExtensionCount)
	require.Len(t, acme.Clients, 2)

	beta := acme.Clients[0]
	assert.Equal(t, "Beta Pty", beta.ClientName)
	assert.Equal(t, int64(210), beta.Duration)
	assert.Equal(t, 120, beta.DidCount)
	require.Len(t, beta.Extensions, 2)
	assert.Equal(t, "0001", beta.Extensions[0].Extension)
	assert.Equal(t, "STANDARD-OUT", beta.Extensions[0].Plan)
	assert.Len(t, beta.Extensions[0].Calls, 2)
	assert.Equal(t, int64(180), beta.Extensions[0].Duration)
	assert.Len(t, beta.Extensions[1].Calls, 1)

	zenith := bills[1]
	assert.Equal(t, "Zenith Voice", zenith.ResellerName)
	assert.Equal(t, 50, zenith.DidCount)
	require.Len(t, zenith.Clients, 1)
}

func TestAggregate_MissingCountsDefaultZero(t *testing.T) {
	bills := Aggregate([]model.CallRecord{
		call(9, 90, "Orphan", "Orphan Client", "0001", 10, "0.01", "0.02"),
	}, Counts{})
	require.Len(t, bills, 1)
	assert.Zero(t, bills[0].DidCount)
	assert.Zero(t, bills[0].Clients[0].ExtensionCount)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil, Counts{}))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0 hours, 0 minutes, 0 seconds"},
		{59, "0 hours, 0 minutes, 59 seconds"},
		{61, "0 hours, 1 minutes, 1 seconds"},
		{3661, "1 hours, 1 minutes, 1 seconds"},
		{7325, "2 hours, 2 minutes, 5 seconds"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds))
	}
}
