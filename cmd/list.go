package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lkhoram/patrascan/filter"
	"github.com/lkhoram/patrascan/models"
)

var (
	listStatus   string
	listDelivery string
	listFrom     string
	listTo       string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records with optional filters",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "all", "triage status: all, pending, accepted, or rejected")
	listCmd.Flags().StringVar(&listDelivery, "delivery", "", "canonical delivery status to match (empty matches all)")
	listCmd.Flags().StringVar(&listFrom, "from", "", "inclusive lower bound on registration date (YYYY-MM-DD or YYYY/MM/DD, either calendar)")
	listCmd.Flags().StringVar(&listTo, "to", "", "inclusive upper bound on registration date")
	rootCmd.AddCommand(listCmd)
}

func parseTriageStatus(value string) (*models.Status, error) {
	switch value {
	case "", "all":
		return nil, nil
	case "pending":
		s := models.StatusPending
		return &s, nil
	case "accepted":
		s := models.StatusAccepted
		return &s, nil
	case "rejected":
		s := models.StatusRejected
		return &s, nil
	default:
		return nil, fmt.Errorf("unknown status %q (want all, pending, accepted, or rejected)", value)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	status, err := parseTriageStatus(listStatus)
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.Load()
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	filtered := filter.Apply(records, filter.Options{
		Status:         status,
		DeliveryStatus: listDelivery,
		FromDate:       listFrom,
		ToDate:         listTo,
	})

	if len(filtered) == 0 {
		fmt.Println("هیچ رکوردی یافت نشد.")
		return nil
	}
	for _, r := range filtered {
		fmt.Println(renderRow(r))
	}
	fmt.Printf("%d of %d records\n", len(filtered), len(records))
	return nil
}
