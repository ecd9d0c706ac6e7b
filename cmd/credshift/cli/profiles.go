package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/credshift/credshift/internal/core"
	"github.com/credshift/credshift/internal/engine"
)

// RegisterProfileCommands adds profile management commands.
func RegisterProfileCommands(root *cobra.Command) {
	profCmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile", "p"},
		Short:   "Manage credential profiles",
	}

	profCmd.AddCommand(newProfileListCmd())
	profCmd.AddCommand(newProfileAddCmd())
	profCmd.AddCommand(newProfileUpdateCmd())
	profCmd.AddCommand(newProfileDeleteCmd())
	profCmd.AddCommand(newProfileShowCmd())

	root.AddCommand(profCmd)
}

func newProfileListCmd() *cobra.Command {
	var familyFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all credential profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			profiles := eng.List()
			if familyFilter != "" {
				family, err := core.ParseFamily(familyFilter)
				if err != nil {
					return err
				}
				filtered := profiles[:0]
				for _, rec := range profiles {
					if rec.Family == family {
						filtered = append(filtered, rec)
					}
				}
				profiles = filtered
			}

			if len(profiles) == 0 {
				fmt.Println("No profiles found. Add one with: credshift profiles add <name> --family <family>")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tFAMILY\tKEY\tENDPOINT\tACTIVE")
			for _, rec := range profiles {
				endpoint := rec.Endpoint
				if endpoint == "" {
					endpoint = "(default)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					shortID(rec.ID),
					rec.Name,
					rec.Family,
					maskSecret(rec.Secret),
					truncate(endpoint, 40),
					activeMarker(rec.Active),
				)
			}
			w.Flush()

			return nil
		},
	}

	cmd.Flags().StringVar(&familyFilter, "family", "", "Only show profiles of this family")

	return cmd
}

func newProfileAddCmd() *cobra.Command {
	var (
		family   string
		secret   string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new credential profile",
		Long: `Add a new credential profile for a tool family.

Families:
  claude   Claude Code (persistent user environment)
  codex    Codex CLI (~/.codex/auth.json)
  gemini   Gemini CLI (~/.gemini/auth.json)

The secret is prompted for when --secret is not given. New profiles start
inactive; activate one with 'credshift activate <id>'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			if family == "" {
				return fmt.Errorf("--family is required (claude, codex or gemini)")
			}

			if secret == "" {
				label := "Enter secret"
				if meta, ok := core.LookupFamily(core.Family(family)); ok {
					label = "Enter " + meta.Title + " " + meta.SecretLabel
				}
				secret, err = promptSecret(label)
				if err != nil {
					return err
				}
			}

			rec, err := eng.Add(engine.AddInput{
				Name:     args[0],
				Family:   core.Family(family),
				Secret:   secret,
				Endpoint: endpoint,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Profile added: %s (%s)\n", rec.Name, shortID(rec.ID))
			fmt.Printf("  Family:   %s\n", rec.Family)
			fmt.Printf("  Key:      %s\n", maskSecret(rec.Secret))
			if rec.Endpoint != "" {
				fmt.Printf("  Endpoint: %s\n", rec.Endpoint)
			}
			fmt.Println("\nUse 'credshift activate " + shortID(rec.ID) + "' to make it live.")

			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "Tool family: claude, codex or gemini (required)")
	cmd.Flags().StringVar(&secret, "secret", "", "Credential secret (will prompt if not provided)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Custom API endpoint (empty = tool default)")

	return cmd
}

func newProfileUpdateCmd() *cobra.Command {
	var (
		name       string
		secret     string
		promptFlag bool
		endpoint   string
	)

	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Update a profile's name, secret or endpoint",
		Long: `Update an existing profile. Only the given flags change; everything else
keeps its stored value. Updating the active profile rewrites the tool's
live configuration with the new values.`,
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

			in := engine.UpdateInput{
				ID:       rec.ID,
				Name:     rec.Name,
				Endpoint: rec.Endpoint,
			}
			if cmd.Flags().Changed("name") {
				in.Name = name
			}
			if cmd.Flags().Changed("endpoint") {
				in.Endpoint = endpoint
			}
			if cmd.Flags().Changed("secret") {
				in.Secret = &secret
			} else if promptFlag {
				s, err := promptSecret("Enter new secret")
				if err != nil {
					return err
				}
				in.Secret = &s
			}

			updated, err := eng.Update(in)
			if err != nil {
				return err
			}

			fmt.Printf("Profile updated: %s (%s)\n", updated.Name, shortID(updated.ID))
			if updated.Active {
				meta, _ := core.LookupFamily(updated.Family)
				fmt.Printf("  %s configuration refreshed.\n", meta.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New profile name")
	cmd.Flags().StringVar(&secret, "secret", "", "New secret value")
	cmd.Flags().BoolVar(&promptFlag, "prompt-secret", false, "Prompt for a new secret without echo")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "New endpoint (empty = tool default)")

	return cmd
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a profile",
		Long: `Delete a profile. Deleting the active profile first clears the tool's
live configuration; the record is only removed once that clear succeeds.`,
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

			if err := eng.Delete(rec.ID); err != nil {
				return err
			}

			fmt.Printf("Profile deleted: %s (%s)\n", rec.Name, shortID(rec.ID))
			if rec.Active {
				meta, _ := core.LookupFamily(rec.Family)
				fmt.Printf("  %s configuration cleared.\n", meta.Title)
			}
			return nil
		},
	}
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show profile details",
		Args:  cobra.ExactArgs(1),
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
			meta, _ := core.LookupFamily(rec.Family)

			fmt.Printf("Profile: %s\n", rec.Name)
			fmt.Printf("  ID:       %s\n", rec.ID)
			fmt.Printf("  Family:   %s (%s)\n", rec.Family, meta.Title)
			fmt.Printf("  %-9s %s\n", meta.SecretLabel+":", maskSecret(rec.Secret))
			if rec.Endpoint != "" {
				fmt.Printf("  %-9s %s\n", meta.EndpointLabel+":", rec.Endpoint)
			} else {
				fmt.Printf("  %-9s (tool default)\n", meta.EndpointLabel+":")
			}
			if rec.Active {
				fmt.Printf("  Status:   %s\n", activeMarker(true)+" active")
			} else {
				fmt.Printf("  Status:   inactive\n")
			}

			return nil
		},
	}
}
