package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/couchcryptid/flood-risk-service/internal/app"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var flags storeFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, closeStore, err := app.OpenStore(ctx, flags.config(), observability.NewMetricsWith(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			defer closeStore()

			slugs, err := st.List(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tCATEGORY\tPROBABILITY\tOBSERVED\tGENERATED")
			for _, slug := range slugs {
				snap, err := st.Load(ctx, slug)
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\t%s\n",
					snap.Slug,
					snap.Interpretation.Category,
					snap.Probability,
					snap.ObservationDate.Format("2006-01-02"),
					snap.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
				)
			}
			return tw.Flush()
		},
	}
	flags.register(cmd)
	return cmd
}

func newShowCmd() *cobra.Command {
	var flags storeFlags
	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Print one stored prediction as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, closeStore, err := app.OpenStore(ctx, flags.config(), observability.NewMetricsWith(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			defer closeStore()

			snap, err := st.Load(ctx, args[0])
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("no prediction stored for %q", args[0])
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	flags.register(cmd)
	return cmd
}
