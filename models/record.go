// Package models defines the data structures shared by the scraper,
// store, and filter layers.
package models

import "regexp"

// Status is the operator-assigned triage state of a record.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// Label returns the Persian display label for the status.
func (s Status) Label() string {
	switch s {
	case StatusAccepted:
		return "تایید شده"
	case StatusRejected:
		return "رد شده"
	default:
		return "در انتظار بررسی"
	}
}

// ParseStatus maps a stored status name to a Status. Unknown or empty
// input falls back to StatusPending so a single damaged entry never
// aborts a whole load.
func ParseStatus(raw string) Status {
	switch Status(raw) {
	case StatusAccepted:
		return StatusAccepted
	case StatusRejected:
		return StatusRejected
	default:
		return StatusPending
	}
}

// CustomerRecord is one scraped customer entry. Status and
// OperatorNotes belong to the operator and survive re-scrapes; every
// other field is refreshed from the portal on each merge.
type CustomerRecord struct {
	Name           string `json:"name"`
	Mobile         string `json:"mobile"`
	Phone          string `json:"phone"`
	Province       string `json:"province"`
	City           string `json:"city"`
	PostalCode     string `json:"postalCode"`
	Address        string `json:"address"`
	Notes          string `json:"notes"`
	RegisteredAt   string `json:"registeredAt"`
	Seller         string `json:"seller"`
	DeliveryStatus string `json:"deliveryStatus"`
	OperatorNotes  string `json:"operatorNotes"`
	Status         Status `json:"status"`
}

// \p{Zs} catches NBSP and the other Unicode spaces Go's ASCII-only \s
// misses; rendered HTML tables use &nbsp; freely.
var spaceRE = regexp.MustCompile(`[\s\p{Zs}]+`)

// Key derives the record identity: name concatenated with mobile, all
// whitespace removed. Records sharing a key are the same customer
// across scrapes. A record with both fields blank yields an empty key.
func (r *CustomerRecord) Key() string {
	return spaceRE.ReplaceAllString(r.Name+r.Mobile, "")
}

// ScrapeLinkEntry is one harvested listing row: the detail link target
// plus the listing-level registration date and status text.
type ScrapeLinkEntry struct {
	URL          string
	RegisteredAt string
	Status       string
}
