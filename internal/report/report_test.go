package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/e164networks/e164bill/internal/billing"
	"github.com/e164networks/e164bill/internal/model"
)

func testItems() []model.ClassifiedItem {
	return []model.ClassifiedItem{
		{
			DID: "61130000", RangeStart: "61130000", RangeEnd: "61130099",
			Product: "AU-DID-100", OwnerID: 5, E164Product: 4, RangeSize: 100,
			SetupCost:     decimal.RequireFromString("500"),
			RecurringCost: decimal.RequireFromString("150"),
		},
		{
			DID: "61255501234", Product: "AU-DID-1", OwnerID: 5,
			E164Product: 1, RangeSize: 1,
			SetupCost:     decimal.RequireFromString("10"),
			RecurringCost: decimal.RequireFromString("2.5"),
		},
	}
}

func testSummary() model.ScanSummary {
	return model.ScanSummary{
		Scope:          model.ScopeReseller,
		Products:       map[string]int{"AU-DID-100": 1, "AU-DID-1": 1},
		TotalDids:      101,
		TotalOwners:    1,
		TotalSetup:     decimal.RequireFromString("510"),
		TotalRecurring: decimal.RequireFromString("152.50"),
	}
}

func TestDefaultScanFilename(t *testing.T) {
	now := time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "20250701_RESELLER_DID_RANGES.csv",
		DefaultScanFilename(model.ScopeReseller, "csv", now))
	assert.Equal(t, "20250701_CLIENT_DID_RANGES.json",
		DefaultScanFilename(model.ScopeClient, "json", now))
}

func TestBillFilename(t *testing.T) {
	assert.Equal(t, "202506_Acme_Telecom_E164_BILL.csv",
		BillFilename(2025, time.June, "Acme Telecom"))
}

func TestWriteScanCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScanCSV(&buf, testItems()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, scanHeader, rows[0])
	assert.Equal(t, []string{"61130000", "61130000", "61130099", "AU-DID-100", "5", "4", "100", "500.00", "150.00"}, rows[1])
	assert.Equal(t, "61255501234", rows[2][0])
	assert.Empty(t, rows[2][1], "singles carry no range bounds")
}

func TestWriteScanJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScanJSON(&buf, testItems(), testSummary()))

	var doc struct {
		Items   []model.ClassifiedItem `json:"results"`
		Summary model.ScanSummary      `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Items, 2)
	assert.Equal(t, "AU-DID-100", doc.Items[0].Product)
	assert.Equal(t, 101, doc.Summary.TotalDids)
	assert.True(t, doc.Summary.TotalSetup.Equal(decimal.RequireFromString("510")))
}

func TestWriteScanJSON_EmptyItems(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScanJSON(&buf, nil, model.ScanSummary{Scope: model.ScopeClient}))
	assert.Contains(t, buf.String(), `"results": []`)
}

func TestWriteScanTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScanTable(&buf, testItems(), testSummary()))
	out := buf.String()

	assert.Contains(t, out, "DID")
	assert.Contains(t, out, "AU-DID-100")
	assert.Contains(t, out, "SUMMARY")
	assert.Contains(t, out, "Total Resellers:")
	assert.Contains(t, out, "$510.00")
	assert.Contains(t, out, "$152.50")
}

func TestWriteScanXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScanXLSX(&buf, testItems(), testSummary()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	ranges := f.Sheets[0]
	assert.Equal(t, "Ranges", ranges.Name)
	require.GreaterOrEqual(t, len(ranges.Rows), 3)
	assert.Equal(t, "did", ranges.Rows[0].Cells[0].String())
	assert.Equal(t, "61130000", ranges.Rows[1].Cells[0].String())
	assert.Equal(t, "AU-DID-100", ranges.Rows[1].Cells[3].String())

	summary := f.Sheets[1]
	assert.Equal(t, "Summary", summary.Name)
}

func testBill() billing.ResellerBill {
	return billing.ResellerBill{
		ResellerID:     7,
		ResellerName:   "Acme Telecom",
		Duration:       3661,
		ResellerCost:   decimal.RequireFromString("12.34"),
		ClientCost:     decimal.RequireFromString("45.60"),
		DidCount:       2,
		ExtensionCount: 1,
		Clients: []billing.ClientBill{
			{
				ClientID:       70,
				ClientName:     "Beta Pty",
				Duration:       3661,
				ResellerCost:   decimal.RequireFromString("12.34"),
				ClientCost:     decimal.RequireFromString("45.60"),
				DidCount:       2,
				ExtensionCount: 1,
				Extensions: []billing.ExtensionBill{
					{
						Extension:    "0001",
						PhoneNumber:  "61255501234",
						Plan:         "STANDARD-OUT",
						Duration:     3661,
						ResellerCost: decimal.RequireFromString("12.34"),
						ClientCost:   decimal.RequireFromString("45.60"),
						Calls: []model.CallRecord{
							{
								Start:        time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
								Extension:    "0001",
								Destination:  "61712345678",
								Duration:     3661,
								ResellerCost: decimal.RequireFromString("12.34"),
								ClientCost:   decimal.RequireFromString("45.60"),
								CallerIP:     "203.0.113.9",
								CallID:       "abc-123",
								HangupCause:  "16",
							},
						},
					},
				},
			},
		},
	}
}

func TestWriteBillCSV(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	clientID := int64(70)
	dids := []model.DidDetail{
		{Number: "61255501234", ResellerID: 7, ClientID: &clientID, OwnerName: "Beta Pty", CreatedAt: &created},
		{Number: "61255509999", ResellerID: 8, OwnerName: "Other Reseller"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBillCSV(&buf, testBill(), dids))
	out := buf.String()

	assert.Contains(t, out, "Company Name:,Acme Telecom,Reseller ID:,7")
	assert.Contains(t, out, "Total Call Time:,\"1 hours, 1 minutes, 1 seconds\"")
	assert.Contains(t, out, "Total Client Billables:,$45.60")
	assert.Contains(t, out, "Client Name:,Beta Pty,Client ID:,70")
	assert.Contains(t, out, "Phone Number:,61255501234,Extension:,0001")
	assert.Contains(t, out, "Plan:,STANDARD-OUT")
	assert.Contains(t, out, "Call Detail Records (CDRs)")
	assert.Contains(t, out, "2025-06-10 09:00:00,0001,61712345678,3661")
	assert.Contains(t, out, "Reseller DIDs")
	assert.Contains(t, out, "61255501234,7,70,Beta Pty,2024-03-01 00:00:00")
	assert.NotContains(t, out, "61255509999", "appendix only lists this reseller's DIDs")

	// Sections are separated by blank lines.
	assert.True(t, strings.Contains(out, "\n\n") || strings.Contains(out, "\r\n\r\n"))
}
