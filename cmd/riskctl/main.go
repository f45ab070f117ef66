// riskctl is the operator CLI for the flood risk service. It asks the running
// refresher for a refresh, inspects stored snapshots, and lists registered
// locations.
//
// Usage:
//
//	riskctl refresh [--url=<refresher>] [--wait]
//	riskctl list [--backend=file|postgres] [--dir=<path>] [--postgres-url=<dsn>]
//	riskctl show <slug>
//	riskctl locations [--group=<group>]
//
// Settings not given as flags are read from the same environment variables
// as the refresher service.
package main

import (
	"fmt"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
