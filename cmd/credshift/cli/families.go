package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/credshift/credshift/internal/core"
)

// RegisterFamilyCommands adds the families overview command.
func RegisterFamilyCommands(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "families",
		Short: "List tool families and their activation state",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			counts := make(map[core.Family]int)
			for _, rec := range eng.List() {
				counts[rec.Family]++
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tTOOL\tSURFACE\tPROFILES\tACTIVE")
			for _, meta := range core.Families() {
				active := "(none)"
				if rec, ok := eng.Active(meta.Family); ok {
					active = fmt.Sprintf("%s (%s)", rec.Name, shortID(rec.ID))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					meta.Family,
					meta.Title,
					surfaceLabel(meta),
					counts[meta.Family],
					active,
				)
			}
			w.Flush()

			return nil
		},
	})
}

func surfaceLabel(meta core.FamilyMeta) string {
	if meta.Surface == core.SurfaceEnvStore {
		return "user environment"
	}
	return "~/" + meta.FilePath
}
