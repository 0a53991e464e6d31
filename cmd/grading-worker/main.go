// grading-worker is the polling driver of the grading pipeline: it claims
// pending submissions one at a time and runs each attempt through the
// grade-attempt command. An optional ops HTTP server exposes health,
// attempt inspection, abort and rejudge endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"evograder/internal/grading/app"
	"evograder/internal/grading/controller"
	"evograder/internal/grading/service"
	"evograder/pkg/utils/logger"
)

func main() {
	configPath := flag.String("config", "configs/grading_worker.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	a, err := app.New(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ops := startOpsServer(ctx, a)

	launcher := service.NewAttemptLauncher([]string{
		a.Config.Worker.GradeAttemptPath, "-config", configPath,
	})
	worker := service.NewWorker(a.Repo, launcher, a.Config.Worker.ID, a.Config.Worker.PollInterval)
	err = worker.Run(ctx)

	if ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := ops.Shutdown(shutdownCtx); serr != nil {
			logger.Warn(context.Background(), "ops server shutdown", zap.Error(serr))
		}
	}
	return err
}

func startOpsServer(ctx context.Context, a *app.App) *http.Server {
	cfg := a.Config.Ops
	if cfg.Addr == "" {
		return nil
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	controller.NewOpsController(a.Repo, a.Logs).RegisterRoutes(r)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	go func() {
		logger.Info(ctx, "ops server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "ops server failed", zap.Error(err))
		}
	}()
	return srv
}
