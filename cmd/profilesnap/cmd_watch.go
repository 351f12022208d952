package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/HatiCode/profilesnap/cmd/profilesnap/metrics"
	"github.com/HatiCode/profilesnap/cmd/profilesnap/router"
	"github.com/HatiCode/profilesnap/pkg/httpx"
	"github.com/HatiCode/profilesnap/pkg/storage"
)

// healthService is the grpc.health.v1 service name reported besides "".
const healthService = "profilesnap"

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run updates on an interval and serve snapshots, health and metrics",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireSource(); err != nil {
		return err
	}
	if cfg.Interval <= 0 {
		return errors.New("--interval must be positive")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	a, err := newApp(ctx, cfg, m, log)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info("starting profilesnap watch",
		"version", version,
		"interval", cfg.Interval,
		"listen", cfg.Listen,
		"grpc_listen", cfg.GRPCListen,
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(healthService, grpc_health_v1.HealthCheckResponse_SERVING)
	a.updater.OnReport(func(r Report) {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if r.PublishErr != nil {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		healthServer.SetServingStatus("", status)
		healthServer.SetServingStatus(healthService, status)
	})

	stores := make(map[string]storage.Store, len(a.stores))
	for name, s := range a.stores {
		stores[name] = s
	}
	deps := router.Deps{
		Stores:     stores,
		Categories: categoryNames(),
		Gatherer:   reg,
		StaleAfter: 2 * cfg.Interval,
		Health:     a.lastRunHealth,
		Logger:     log,
	}
	if a.history != nil {
		deps.History = a.history
	}
	httpServer := httpx.NewServer(cfg.Listen, router.SetupRoutes(deps), log)

	var grpcServer *grpc.Server
	var lis net.Listener
	if cfg.GRPCListen != "" {
		lis, err = net.Listen("tcp", cfg.GRPCListen)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcServer = grpc.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		reflection.Register(grpcServer)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.updater.Run(gctx, cfg.Interval); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(httpServer.Start)
	if grpcServer != nil {
		g.Go(func() error {
			log.Info("grpc server listening", "address", lis.Addr().String())
			return grpcServer.Serve(lis)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		healthServer.Shutdown()
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := httpServer.Stop(10 * time.Second); err != nil {
			log.Error("http server shutdown failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// lastRunHealth fails while the most recent run could not publish.
func (a *app) lastRunHealth() error {
	r, ok := a.updater.Last()
	if !ok || r.PublishErr == nil {
		return nil
	}
	return fmt.Errorf("run %s failed to publish: %w", r.RunID, r.PublishErr)
}
