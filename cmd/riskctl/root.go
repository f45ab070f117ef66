package main

import (
	"github.com/couchcryptid/flood-risk-service/internal/config"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"
)

// storeFlags select the snapshot store for read-only commands.
type storeFlags struct {
	backend     string
	dir         string
	postgresURL string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.backend, "backend", sharedcfg.EnvOrDefault("STORE_BACKEND", config.StoreFile), "Store backend: file or postgres")
	fl.StringVar(&f.dir, "dir", sharedcfg.EnvOrDefault("STORE_DIR", "predictions"), "Snapshot directory for the file backend")
	fl.StringVar(&f.postgresURL, "postgres-url", sharedcfg.EnvOrDefault("POSTGRES_URL", ""), "Postgres DSN for the postgres backend")
}

func (f *storeFlags) config() *config.Config {
	return &config.Config{
		StoreBackend: f.backend,
		StoreDir:     f.dir,
		PostgresURL:  f.postgresURL,
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Operate the flood risk refresh service",
		Long:          "riskctl runs one-off refreshes and inspects the prediction store\nused by the flood risk refresher.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.AddCommand(
		newRefreshCmd(),
		newListCmd(),
		newShowCmd(),
		newLocationsCmd(),
	)
	return root
}
