package cmd

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/magiclink/api"
	"github.com/jmcleod/magiclink/approveapi"
	"github.com/jmcleod/magiclink/session"
)

var (
	port    int
	dataDir string
)

// serverConfig is read from the environment at startup. Missing required
// values abort startup with a non-zero exit.
type serverConfig struct {
	CookieSecretKey string `env:"COOKIE_SECRET_KEY,required"`
	ApproveAPIKey   string `env:"APPROVEAPI_TEST_KEY,required"`
	WebURL          string `env:"WEB_URL" envDefault:"http://localhost:5000"`
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the passwordless sign-in server",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg serverConfig
		if err := env.Parse(&cfg); err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}

		cookieSecret, err := base64.StdEncoding.DecodeString(cfg.CookieSecretKey)
		if err != nil {
			return fmt.Errorf("decoding COOKIE_SECRET_KEY: %w", err)
		}

		// PRODUCTION is presence-based: any value enables Secure cookies.
		_, production := os.LookupEnv("PRODUCTION")

		codec, err := session.NewCodec(cookieSecret, production)
		if err != nil {
			return fmt.Errorf("initializing session codec: %w", err)
		}

		prompts := approveapi.NewClient(cfg.ApproveAPIKey)

		var opts []api.Option
		if dataDir != "" {
			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return fmt.Errorf("creating data directory: %w", err)
			}
			store, err := api.NewAuditStore(filepath.Join(dataDir, "audit.db"))
			if err != nil {
				return fmt.Errorf("opening audit store: %w", err)
			}
			defer store.Close()
			opts = append(opts, api.WithAuditStore(store))
		}

		a := api.New(codec, prompts, cfg.WebURL, opts...)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Mount("/", a.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on port %d...\n", port)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 5000, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory for the audit database (disabled when empty)")
}
