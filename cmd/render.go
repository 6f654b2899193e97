package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lkhoram/patrascan/models"
)

var (
	keyStyle      = lipgloss.NewStyle().Faint(true)
	nameStyle     = lipgloss.NewStyle().Bold(true)
	deliveryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	pendingBadge  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3")).Padding(0, 1)
	acceptedBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("2")).Padding(0, 1)
	rejectedBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")).Padding(0, 1)
)

func statusBadge(status models.Status) string {
	switch status {
	case models.StatusAccepted:
		return acceptedBadge.Render(status.Label())
	case models.StatusRejected:
		return rejectedBadge.Render(status.Label())
	default:
		return pendingBadge.Render(status.Label())
	}
}

func orBlank(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func renderRow(r *models.CustomerRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", statusBadge(r.Status), nameStyle.Render(orBlank(r.Name, "بدون نام")))
	fmt.Fprintf(&b, "  موبایل: %s   تاریخ ثبت: %s   %s\n",
		orBlank(r.Mobile, "نامشخص"),
		orBlank(r.RegisteredAt, "نامشخص"),
		deliveryStyle.Render(orBlank(r.DeliveryStatus, "نامشخص")),
	)
	fmt.Fprintf(&b, "  %s\n", keyStyle.Render("key: "+r.Key()))
	return b.String()
}

func renderDetail(r *models.CustomerRecord) string {
	lines := []struct {
		label string
		value string
	}{
		{"نام", orBlank(r.Name, "بدون نام")},
		{"شماره موبایل", orBlank(r.Mobile, "نامشخص")},
		{"شماره تلفن", orBlank(r.Phone, "نامشخص")},
		{"استان - شهر", orBlank(r.Province, "نامشخص") + " - " + orBlank(r.City, "نامشخص")},
		{"کد ارسال", orBlank(r.PostalCode, "نامشخص")},
		{"آدرس", orBlank(r.Address, "نامشخص")},
		{"توضیحات", orBlank(r.Notes, "ندارد")},
		{"تاریخ ثبت", orBlank(r.RegisteredAt, "نامشخص")},
		{"فروشنده", orBlank(r.Seller, "نامشخص")},
		{"وضعیت تحویل", orBlank(r.DeliveryStatus, "نامشخص")},
		{"یادداشت اپراتور", orBlank(r.OperatorNotes, "ندارد")},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", statusBadge(r.Status), keyStyle.Render("key: "+r.Key()))
	for _, line := range lines {
		fmt.Fprintf(&b, "%s: %s\n", nameStyle.Render(line.label), line.value)
	}
	return b.String()
}
