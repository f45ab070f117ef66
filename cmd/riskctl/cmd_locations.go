package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/couchcryptid/flood-risk-service/internal/app"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"
)

func newLocationsCmd() *cobra.Command {
	var (
		path  string
		group string
	)
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List registered locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := app.LoadRegistry(&config.Config{LocationsPath: path})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tNAME\tGROUP\tPARENT\tLAT\tLON")
			for _, loc := range reg.Entries() {
				if group != "" && loc.Group != group {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%.4f\n", loc.Slug, loc.Name, loc.Group, loc.Parent, loc.Lat, loc.Lon)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&path, "file", sharedcfg.EnvOrDefault("LOCATIONS_PATH", ""), "Registry file (default: embedded dataset)")
	cmd.Flags().StringVar(&group, "group", "", "Only show this group")
	return cmd
}
