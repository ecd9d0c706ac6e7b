package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/credshift/credshift/internal/drift"
)

// RegisterStatusCommands adds the status (drift report) command.
func RegisterStatusCommands(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Compare each tool's live configuration against the store",
		Long: `Report drift between the store's view and each tool's actual configuration
surface. States:

  in_sync    surface matches the active profile
  clear      no active profile and the surface is empty
  missing    active profile but the surface is empty
  diverged   surface holds different values than the active profile
  orphaned   no active profile but the surface holds credentials
  unknown    the surface could not be inspected`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			findings := eng.CheckDrift()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tPROFILE\tSTATE")
			for _, f := range findings {
				profile := "(none)"
				if f.Profile != "" {
					if rec, err := eng.Get(f.Profile); err == nil {
						profile = fmt.Sprintf("%s (%s)", rec.Name, shortID(rec.ID))
					} else {
						profile = shortID(f.Profile)
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", f.Family, profile, stateColor(f.State))
			}
			w.Flush()

			drifted := 0
			for _, f := range findings {
				if f.State == drift.StateInSync || f.State == drift.StateClear {
					continue
				}
				drifted++
				if f.Detail != "" {
					fmt.Printf("\n%s: %s\n", f.Family, f.Detail)
				}
			}
			if drifted > 0 {
				fmt.Printf("\nWarning: %d family(ies) drifted. Re-run 'credshift activate' to restore, or 'credshift deactivate' to clear.\n", drifted)
			}

			return nil
		},
	})
}
