// Package report renders scan results and monthly bills to the console,
// CSV, JSON, and XLSX.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/e164networks/e164bill/internal/model"
)

// money renders a decimal amount the way the bills print it.
func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// DefaultScanFilename returns the conventional export name for a scan,
// e.g. 20250701_RESELLER_DID_RANGES.csv.
func DefaultScanFilename(scope model.Scope, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s_DID_RANGES.%s", now.Format("20060102"), scope, ext)
}

// BillFilename returns the conventional name for a reseller's monthly
// bill, e.g. 202506_Acme_Telecom_E164_BILL.csv.
func BillFilename(year int, month time.Month, resellerName string) string {
	name := strings.ReplaceAll(resellerName, " ", "_")
	return fmt.Sprintf("%d%02d_%s_E164_BILL.csv", year, month, name)
}
