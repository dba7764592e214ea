package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"adventure-server/gameplay-service/internal/builds"
	"adventure-server/shared/models"

	"github.com/spf13/cobra"
)

func newBuildsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builds",
		Short: "Inspect the pre-built character sheets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "classes",
		Short: "List classes with at least one sheet",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			lookup, err := builds.NewDefault(opts.logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), strings.Join(lookup.Classes(), "\n"))
			return nil
		},
	})

	var class, race, name string
	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the export document for a class and race",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			lookup, err := builds.NewDefault(opts.logger)
			if err != nil {
				return err
			}
			build, ok := lookup.Resolve(class, race)
			if ok && name != "" {
				build.Name = name
			}
			if !ok {
				build = nil
			}
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(models.NewBuildExport(build)); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no build for class %q", class)
			}
			return nil
		},
	}
	resolveCmd.Flags().StringVar(&class, "class", "", "character class")
	resolveCmd.Flags().StringVar(&race, "race", "", "character race (falls back to the default race)")
	resolveCmd.Flags().StringVar(&name, "name", "", "character name to put on the sheet")
	_ = resolveCmd.MarkFlagRequired("class")
	cmd.AddCommand(resolveCmd)

	return cmd
}
