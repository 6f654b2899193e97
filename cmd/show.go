package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lkhoram/patrascan/models"
)

var showCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Show the full detail of one record",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func findByKey(records []*models.CustomerRecord, key string) *models.CustomerRecord {
	for _, r := range records {
		if r.Key() == key {
			return r
		}
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.Load()
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	record := findByKey(records, args[0])
	if record == nil {
		return fmt.Errorf("no record with key %q", args[0])
	}
	fmt.Println(renderDetail(record))
	return nil
}
