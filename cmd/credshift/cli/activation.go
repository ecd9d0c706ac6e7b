package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credshift/credshift/internal/core"
)

// RegisterActivationCommands adds the activate/deactivate/current verbs.
func RegisterActivationCommands(root *cobra.Command) {
	root.AddCommand(newActivateCmd())
	root.AddCommand(newDeactivateCmd())
	root.AddCommand(newCurrentCmd())
}

func newActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id|name>",
		Short: "Activate a profile (writes the tool's live configuration)",
		Long: `Activate a profile. The previously active profile of the same family is
deactivated and its surface cleared first, then the new profile's
credentials are written to the tool's configuration surface.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			rec, err := resolveProfile(eng, args[0])
			if err != nil {
				return err
			}

			activated, err := eng.Activate(rec.ID)
			if err != nil {
				return err
			}
			meta, _ := core.LookupFamily(activated.Family)

			fmt.Printf("Profile activated: %s (%s)\n", activated.Name, shortID(activated.ID))
			fmt.Printf("  Family:   %s (%s)\n", activated.Family, meta.Title)
			fmt.Printf("  Key:      %s\n", maskSecret(activated.Secret))
			if activated.Endpoint != "" {
				fmt.Printf("  Endpoint: %s\n", activated.Endpoint)
			} else {
				fmt.Printf("  Endpoint: (tool default)\n")
			}
			if meta.Surface == core.SurfaceEnvStore {
				fmt.Println("\nOpen a new terminal for the environment change to take effect.")
			}

			return nil
		},
	}
}

func newDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <family>",
		Short: "Deactivate a family and clear its configuration surface",
		Long: `Deactivate a tool family: clear its configuration surface and unmark its
active profile. Deactivating a family with nothing active still clears
the surface and succeeds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			family, err := core.ParseFamily(args[0])
			if err != nil {
				return err
			}

			if err := eng.Deactivate(family); err != nil {
				return err
			}

			meta, _ := core.LookupFamily(family)
			fmt.Printf("%s deactivated; configuration surface cleared.\n", meta.Title)
			return nil
		},
	}
}

func newCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current [family]",
		Short: "Show the active profile of one or all families",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			families := core.Families()
			if len(args) == 1 {
				family, err := core.ParseFamily(args[0])
				if err != nil {
					return err
				}
				meta, _ := core.LookupFamily(family)
				families = []core.FamilyMeta{meta}
			}

			for _, meta := range families {
				rec, ok := eng.Active(meta.Family)
				if !ok {
					fmt.Printf("%-12s (none)\n", meta.Family)
					continue
				}
				endpoint := rec.Endpoint
				if endpoint == "" {
					endpoint = "(default)"
				}
				fmt.Printf("%-12s %s (%s)  %s  %s\n",
					meta.Family, rec.Name, shortID(rec.ID), maskSecret(rec.Secret), endpoint)
			}

			return nil
		},
	}
}
