package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/driftwatch/anomaly-backend/internal/app"
	"github.com/driftwatch/anomaly-backend/internal/jobs/results"
	"github.com/driftwatch/anomaly-backend/internal/persistence"
)

// The worker persists one job's autodetect result stream. The detection
// engine writes newline-delimited JSON results to our stdin.
func main() {
	var jobID string
	flag.StringVar(&jobID, "job", "", "job id the result stream belongs to")
	flag.Parse()

	if jobID == "" {
		fmt.Println("missing required -job flag")
		os.Exit(2)
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if application.Bus != nil {
		err := application.Bus.StartForwarder(ctx, func(ev persistence.RefreshEvent) {
			application.Log.Debug("index refreshed elsewhere",
				"job_id", ev.JobID, "index", ev.Index, "tier", ev.Tier)
		})
		if err != nil {
			application.Log.Warn("refresh forwarder unavailable", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		processor := results.NewProcessor(application.Persister, application.Log, jobID)
		return processor.Process(gctx, os.Stdin)
	})

	if err := g.Wait(); err != nil {
		application.Log.Error("worker exited with error", "job_id", jobID, "error", err)
		os.Exit(1)
	}
}
