package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CallRecord is one billable call from call history, with the reseller and
// client company names already joined in.
type CallRecord struct {
	ResellerID   int64           `json:"reseller_id"`
	ResellerName string          `json:"reseller_name"`
	ClientID     int64           `json:"client_id"`
	ClientName   string          `json:"client_name"`
	Direction    string          `json:"direction"` // "in" or "out"
	BillingPlan  string          `json:"billingplan"`
	Disposition  string          `json:"disposion"`
	Start        time.Time       `json:"start"`
	Extension    string          `json:"extension"`
	PhoneNumber  string          `json:"phone_number"` // "N/A" when the call had no DID
	Destination  string          `json:"destination"`
	ChargingZone string          `json:"charging_zone"`
	Duration     int64           `json:"duration"` // seconds
	ResellerCost decimal.Decimal `json:"reseller_cost"`
	ClientCost   decimal.Decimal `json:"client_cost"`
	CallerIP     string          `json:"caller_ip"`
	CallID       string          `json:"callid"`
	HangupCause  string          `json:"hangupcause"`
}

// Client is one row of the platform's client hierarchy. Level encodes the
// node kind: 10 = reseller, 50 = client, 100 = user under a client.
type Client struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parent_client_id,omitempty"`
	Company  string `json:"company"`
	Level    int    `json:"level"`
}

const (
	LevelReseller = 10
	LevelClient   = 50
	LevelUser     = 100
)

// DidDetail is one inventory row for report appendices and the hierarchy
// audit: the DID with its owners and assigned product code.
type DidDetail struct {
	Number      string     `json:"did"`
	ResellerID  int64      `json:"reseller_id"`
	ClientID    *int64     `json:"client_id,omitempty"`
	OwnerName   string     `json:"owner_name"`
	ProductCode string     `json:"product_code,omitempty"`
	CreatedAt   *time.Time `json:"created_date,omitempty"`
}
