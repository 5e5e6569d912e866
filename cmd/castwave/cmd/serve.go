package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/castwave/internal/caster"
	"github.com/jmylchreest/castwave/internal/config"
	"github.com/jmylchreest/castwave/internal/dnscache"
	"github.com/jmylchreest/castwave/internal/httpserver"
	"github.com/jmylchreest/castwave/internal/httpserver/middleware"
	"github.com/jmylchreest/castwave/internal/proxy"
	"github.com/jmylchreest/castwave/internal/session"
	"github.com/jmylchreest/castwave/internal/version"
	"github.com/jmylchreest/castwave/pkg/netinfo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the castwave daemon",
	Long: `Start the castwave daemon: the LAN media proxy on an OS-assigned
port and the control API (discovery, cast, proxy status) on the
configured host and port.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "control API host to bind to")
	serveCmd.Flags().Int("port", 8080, "control API port to listen on")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := slog.Default()

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	store := session.New()
	dnsCache := dnscache.New(cfg.DNSCache.TTL, cfg.DNSCache.CleanupInterval)

	proxyEngine := proxy.NewEngine(cfg.Proxy, dnsCache, store, logger)
	proxyListener, err := net.Listen("tcp", fmt.Sprintf("%s:0", netinfo.LocalIPv4String()))
	if err != nil {
		return fmt.Errorf("binding proxy listener: %w", err)
	}
	proxyAddr, ok := proxyListener.Addr().(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("unexpected proxy listener address type %T", proxyListener.Addr())
	}
	store.PublishProxyAddress(proxyAddr.IP.String(), proxyAddr.Port)

	proxyRouter := chi.NewRouter()
	proxyRouter.Use(middleware.CORSWithConfig(middleware.CORSConfigFromOrigins(cfg.Server.CORSOrigins)))
	proxyEngine.RegisterChiRoutes(proxyRouter)
	proxyServer := &http.Server{Handler: proxyRouter}

	facade := caster.New(cfg, store, logger)

	server := httpserver.NewServer(cfg.Server, logger, version.Version)
	httpserver.NewHealthHandler(version.Version, proxyEngine.Breakers()).Register(server.API())
	httpserver.NewCastHandler(facade).Register(server.API())

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsRouter := http.NewServeMux()
		metricsRouter.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    cfg.Metrics.Address(),
			Handler: metricsRouter,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	errChan := make(chan error, 2)

	go func() {
		logger.Info("starting media proxy", slog.String("address", proxyListener.Addr().String()))
		if err := proxyServer.Serve(proxyListener); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("media proxy: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info("starting metrics listener", slog.String("address", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}

	go func() {
		logger.Info("starting control API", slog.String("version", version.Version))
		errChan <- server.ListenAndServe(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errChan:
		if err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = proxyServer.Shutdown(shutdownCtx)
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	return nil
}
