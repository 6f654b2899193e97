// Package parser holds the pure text-normalization and validation
// helpers shared by the scraper and the display layer. NormalizeStatus
// must behave identically at every call site, so it lives here and
// nowhere else.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lkhoram/patrascan/models"
)

// Canonical delivery-status labels produced by NormalizeStatus.
const (
	DeliveryAwaiting  = "در انتظار تحویل"
	DeliveryCollected = "وصولی"
	DeliveryCancelled = "کنسل نهایی"
	DeliveryWithdrawn = "انصرافی هماهنگی"
)

var (
	lookalikes = strings.NewReplacer("ي", "ی", "ك", "ک")

	// \p{Zs} catches NBSP and the other Unicode spaces Go's
	// ASCII-only \s misses.
	spaceRun = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// NormalizeStatus maps a raw delivery-status string from the portal to
// its canonical label. Arabic lookalike letters are folded to their
// Persian forms, whitespace runs collapse to one space, then the first
// matching category wins. Uncategorized input comes back normalized
// but otherwise untouched; empty input stays empty.
func NormalizeStatus(raw string) string {
	s := strings.TrimSpace(spaceRun.ReplaceAllString(lookalikes.Replace(raw), " "))
	if s == "" {
		return ""
	}
	switch {
	case strings.Contains(s, "در انتظار") && strings.Contains(s, "تحویل"):
		return DeliveryAwaiting
	case strings.Contains(s, "وصولی"):
		return DeliveryCollected
	// کنسلی is subsumed by کنسل; both spellings land here.
	case strings.Contains(s, "کنسل") || strings.Contains(s, "کنسلی"):
		return DeliveryCancelled
	case strings.Contains(s, "انصرافی"):
		return DeliveryWithdrawn
	default:
		return s
	}
}

// ValidateRecord ensures the scraper captured a mergeable record.
func ValidateRecord(r *models.CustomerRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if r.Key() == "" {
		return fmt.Errorf("record has no identity (name and mobile both blank)")
	}
	return nil
}

// PickLabel returns the first non-empty value among the given label
// variants. Detail pages are inconsistent about header spellings, so
// most fields are tried under more than one label.
func PickLabel(values map[string]string, labels ...string) string {
	for _, label := range labels {
		if v := values[label]; v != "" {
			return v
		}
	}
	return ""
}

// StripSpaces removes every whitespace run; used to compare header
// labels that the portal renders with erratic spacing.
func StripSpaces(s string) string {
	return spaceRun.ReplaceAllString(s, "")
}
