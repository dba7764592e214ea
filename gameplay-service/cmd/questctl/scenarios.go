package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"adventure-server/gameplay-service/internal/scenarios"

	"github.com/spf13/cobra"
)

func newScenariosCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Validate and list adventure templates",
	}

	var dir string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List embedded templates plus those in --dir",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			catalog, err := scenarios.LoadCatalog(dir, opts.logger)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tSTAGES\tTITLE")
			for _, s := range catalog.List() {
				fmt.Fprintf(w, "%s\t%d\t%s\n", s.Slug, s.TotalStages, s.Title)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&dir, "dir", os.Getenv("SCENARIO_TEMPLATES_DIR"), "extra template directory")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "validate FILE...",
		Short: "Parse and validate template files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var errs []error
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				t, err := scenarios.ParseBytes(data)
				if err != nil {
					fmt.Fprintf(c.OutOrStdout(), "FAIL %s: %v\n", path, err)
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
					continue
				}
				fmt.Fprintf(c.OutOrStdout(), "ok   %s (%s, %d stages)\n", path, t.Slug, t.TotalStages())
			}
			return errors.Join(errs...)
		},
	})
	return cmd
}
