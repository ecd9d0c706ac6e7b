package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credshift/credshift/internal/core"
)

// RegisterMergeCommands adds the merge command.
func RegisterMergeCommands(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "merge <profile>...",
		Short: "Write one combined config file from selected profiles",
		Long: `Write a single merged configuration file covering the selected profiles,
at most one per family. The selection is independent of which profiles
are active; merging never touches live tool configuration.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			selection := make(map[core.Family]string, len(args))
			chosen := make(map[core.Family]core.ProfileRecord, len(args))
			for _, ref := range args {
				rec, err := resolveProfile(eng, ref)
				if err != nil {
					return err
				}
				if prev, dup := chosen[rec.Family]; dup {
					return fmt.Errorf("both %s and %s are %s profiles; pick one per family",
						prev.Name, rec.Name, rec.Family)
				}
				selection[rec.Family] = rec.ID
				chosen[rec.Family] = rec
			}

			path, err := eng.ApplyMerged(selection)
			if err != nil {
				return err
			}

			fmt.Printf("Merged config written: %s\n", path)
			for _, meta := range core.Families() {
				if rec, ok := chosen[meta.Family]; ok {
					fmt.Printf("  %-8s %s (%s)\n", string(meta.Family)+":", rec.Name, shortID(rec.ID))
				}
			}

			return nil
		},
	})
}
