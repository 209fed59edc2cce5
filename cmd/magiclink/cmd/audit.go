package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmcleod/magiclink/api"
)

var auditDataDir string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recorded login audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := api.NewAuditStore(filepath.Join(auditDataDir, "audit.db"))
		if err != nil {
			return fmt.Errorf("opening audit store: %w", err)
		}
		defer store.Close()

		records, err := store.Records()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tEVENT\tUSER\tREMOTE")
		for _, rec := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.CreatedAt, rec.Event, rec.User, rec.RemoteAddr)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVar(&auditDataDir, "data-dir", "./data", "Directory holding the audit database")
}
