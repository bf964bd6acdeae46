package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/spreadindex/internal/api"
	"github.com/wonny/spreadindex/internal/api/handlers"
	"github.com/wonny/spreadindex/internal/marketdata"
	"github.com/wonny/spreadindex/internal/scheduler"
	"github.com/wonny/spreadindex/internal/scheduler/jobs"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the publishing scheduler",
	Long: `Starts the REST API and schedules the index publish job
(PUBLISH_CRON) plus the optional price import job (IMPORT_CRON).

Endpoints:
  GET  /health                      - Health check
  GET  /metrics                     - Prometheus metrics
  GET  /api/index                   - Latest run summary
  GET  /api/index/levels            - Published levels (?from&to)
  GET  /api/index/signals/{signal}  - Any signal (?component&from&to)
  GET  /api/index/stats             - Performance table
  POST /api/index/run               - Recompute now ({"to": "YYYY-MM-DD"})

Example:
  go run ./cmd/spreadindex serve
  go run ./cmd/spreadindex serve --port 8080 --warm=false`,
	RunE: runServe,
}

var (
	servePort string
	serveWarm bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API port (default: PORT)")
	serveCmd.Flags().BoolVar(&serveWarm, "warm", true, "compute the index once before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	if servePort != "" {
		a.cfg.Port = servePort
	}
	log := a.log

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := a.connect(ctx, false)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := a.newService(d, nil)
	if err != nil {
		return err
	}

	if serveWarm {
		if res, err := svc.Run(ctx, time.Time{}); err != nil {
			log.WithError(err).Warn("Initial index run failed; serving without data")
		} else {
			log.WithField("final_level", res.Summary.FinalLevel).Info("Initial index run complete")
		}
	}

	// Scheduler
	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewPublishJob(svc, a.cfg.PublishCron, log)); err != nil {
		return err
	}
	if a.cfg.ImportCron != "" {
		src := marketdata.NewCSVLoader(a.cfg.DataDir)
		dst := marketdata.NewPostgresLoader(d.db.Pool)
		job := jobs.NewImportJob(src, dst, a.strategy.Observables, a.cfg.ImportCron, a.cfg.ImportLookback, log)
		if err := sched.AddJob(job); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	// HTTP
	router := api.NewRouter(handlers.NewIndexHandler(svc, log), d.rec, log)
	server := api.New(a.cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
