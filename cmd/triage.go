package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lkhoram/patrascan/models"
)

var acceptCmd = &cobra.Command{
	Use:   "accept <key>",
	Short: "Mark a record as accepted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(args[0], models.StatusAccepted)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <key>",
	Short: "Mark a record as rejected",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(args[0], models.StatusRejected)
	},
}

var pendCmd = &cobra.Command{
	Use:   "pend <key>",
	Short: "Return a record to the pending state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(args[0], models.StatusPending)
	},
}

var noteCmd = &cobra.Command{
	Use:   "note <key> <text>...",
	Short: "Replace the operator notes of a record",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setOperatorNotes(args[0], strings.Join(args[1:], " "))
	},
}

func init() {
	rootCmd.AddCommand(acceptCmd, rejectCmd, pendCmd, noteCmd)
}

func setStatus(key string, status models.Status) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.Load()
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	if findByKey(records, key) == nil {
		return fmt.Errorf("no record with key %q", key)
	}

	if _, err := db.UpdateStatus(records, key, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	fmt.Printf("وضعیت به %s منتقل شد.\n", status.Label())
	return nil
}

func setOperatorNotes(key, notes string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.Load()
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	if findByKey(records, key) == nil {
		return fmt.Errorf("no record with key %q", key)
	}

	if _, err := db.UpdateOperatorNotes(records, key, notes); err != nil {
		return fmt.Errorf("update operator notes: %w", err)
	}
	fmt.Println("یادداشت ثبت شد.")
	return nil
}
