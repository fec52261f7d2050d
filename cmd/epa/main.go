// Command epa downloads EPA AQS bulk files and AirNow observations into
// keyed, append-only CSV or NDJSON files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "epa:", err)
		stop()
		os.Exit(1)
	}
}
