//	@title			bbsrelay API
//	@version		1.0
//	@description	Local relay that uploads images to the community media host.
//
//	@host		localhost:5000
//	@BasePath	/api

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bbsrelay/service/internal/browser"
	"github.com/bbsrelay/service/internal/config"
	"github.com/bbsrelay/service/internal/logging"
	"github.com/bbsrelay/service/internal/mediahost"
	"github.com/bbsrelay/service/internal/server"
	"github.com/bbsrelay/service/internal/upload"
)

const (
	FlagEnvFile   = "env-file"
	FlagNoBrowser = "no-browser"
	FlagLogLevel  = "log-level"

	browserDelay      = time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bbsrelay",
		Short:         "Relay browser uploads to the community media host",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString(FlagEnvFile)
			cfg, err := config.Load(envFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if noBrowser, _ := cmd.Flags().GetBool(FlagNoBrowser); noBrowser {
				cfg.OpenBrowser = false
			}
			if cmd.Flags().Changed(FlagLogLevel) {
				cfg.LogLevel, _ = cmd.Flags().GetString(FlagLogLevel)
			}

			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String(FlagEnvFile, ".env", "path to a .env file with configuration")
	cmd.Flags().Bool(FlagNoBrowser, false, "do not open the landing page in a browser")
	cmd.Flags().String(FlagLogLevel, "info", "log level. debug|info|warn|error")

	return cmd
}

// newServer bounds every phase of a request so a stalled client cannot hold a
// connection open.
func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       2 * cfg.UploadTimeout,
		// Uploads wait on both remote calls before answering.
		WriteTimeout: cfg.NegotiateTimeout + cfg.UploadTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Wire dependencies: media host client → upload service → handler
	host := mediahost.NewClient(mediahost.Options{
		ParamsURL:        cfg.ParamsURL,
		NegotiateTimeout: cfg.NegotiateTimeout,
		UploadTimeout:    cfg.UploadTimeout,
	}, logger)
	uploadSvc := upload.NewService(host, afero.NewOsFs(), cfg.ScratchDir, logger)
	uploadHandler := upload.NewHandler(uploadSvc, cfg.MaxUploadBytes, logger)

	srv := newServer(cfg, server.NewRouter(server.Deps{
		Upload:    uploadHandler,
		StaticDir: cfg.StaticDir,
		Logger:    logger,
	}))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if cfg.OpenBrowser {
		browser.OpenAfter(ctx, "http://127.0.0.1:"+cfg.Port, browserDelay, logger)
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
