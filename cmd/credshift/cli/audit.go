package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// RegisterAuditCommands adds audit log commands.
func RegisterAuditCommands(root *cobra.Command) {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the tamper-evident audit log",
	}

	auditCmd.AddCommand(newAuditLogCmd())
	auditCmd.AddCommand(newAuditVerifyCmd())

	root.AddCommand(auditCmd)
}

func newAuditLogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent audit events (newest first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			rows, err := eng.AuditDB.Query(
				`SELECT timestamp, event_type, profile_id, family, detail
				 FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
			if err != nil {
				return fmt.Errorf("querying audit log: %w", err)
			}
			defer rows.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tFAMILY\tPROFILE\tDETAIL")
			count := 0
			for rows.Next() {
				var ts, eventType, profileID, family, detail string
				if err := rows.Scan(&ts, &eventType, &profileID, &family, &detail); err != nil {
					return fmt.Errorf("scanning audit row: %w", err)
				}
				if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
					ts = t.Local().Format("2006-01-02 15:04:05")
				}
				if profileID == "" {
					profileID = "-"
				} else {
					profileID = shortID(profileID)
				}
				if family == "" {
					family = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					ts, eventType, family, profileID, truncate(detail, 48))
				count++
			}
			if err := rows.Err(); err != nil {
				return fmt.Errorf("reading audit log: %w", err)
			}
			w.Flush()

			if count == 0 {
				fmt.Println("Audit log is empty.")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of events to show")

	return cmd
}

func newAuditVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the audit log hash chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			valid, count, err := eng.VerifyAudit()
			if err != nil {
				return err
			}
			if !valid {
				return fmt.Errorf("audit chain invalid after %d verified record(s)", count)
			}

			fmt.Printf("Audit chain intact: %d record(s) verified.\n", count)
			return nil
		},
	}
}
