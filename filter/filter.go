// Package filter derives display views over an in-memory record set.
// Everything here is pure; the store stays untouched.
package filter

import (
	"time"

	"github.com/lkhoram/patrascan/jalali"
	"github.com/lkhoram/patrascan/models"
	"github.com/lkhoram/patrascan/parser"
)

// DeliveryAll is the sentinel that disables delivery-status filtering.
const DeliveryAll = "همه وضعیت‌ها"

// Options selects which records Apply keeps. Zero values disable the
// corresponding predicate.
type Options struct {
	// Status matches the operator triage state exactly; nil keeps all.
	Status *models.Status
	// DeliveryStatus is normalized and compared against the record's
	// normalized delivery status; empty or DeliveryAll keeps all.
	DeliveryStatus string
	// FromDate and ToDate bound registeredAt inclusively. Either
	// calendar, "YYYY-MM-DD" or "YYYY/MM/DD". A record whose date does
	// not parse fails any bound that is set.
	FromDate string
	ToDate   string
}

// Apply filters records by the combined predicates in opts.
func Apply(records []*models.CustomerRecord, opts Options) []*models.CustomerRecord {
	from, hasFrom := jalali.ParseDate(opts.FromDate)
	to, hasTo := jalali.ParseDate(opts.ToDate)

	delivery := opts.DeliveryStatus
	filterDelivery := delivery != "" && delivery != DeliveryAll
	if filterDelivery {
		// Both sides of the comparison get the canonical spelling, so a
		// typed lookalike form still matches.
		delivery = parser.NormalizeStatus(delivery)
	}

	out := make([]*models.CustomerRecord, 0, len(records))
	for _, r := range records {
		if opts.Status != nil && r.Status != *opts.Status {
			continue
		}
		if filterDelivery && parser.NormalizeStatus(r.DeliveryStatus) != delivery {
			continue
		}
		if !withinRange(r.RegisteredAt, from, hasFrom, to, hasTo) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func withinRange(registeredAt string, from time.Time, hasFrom bool, to time.Time, hasTo bool) bool {
	if !hasFrom && !hasTo {
		return true
	}
	date, ok := jalali.ParseDate(registeredAt)
	if !ok {
		return false
	}
	if hasFrom && date.Before(from) {
		return false
	}
	if hasTo && date.After(to) {
		return false
	}
	return true
}
