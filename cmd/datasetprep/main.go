// Command datasetprep letterboxes image datasets to a fixed model input size.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"datasetprep/internal/config"
	"datasetprep/internal/handler"
	"datasetprep/internal/logging"
	"datasetprep/internal/manifest"
	"datasetprep/internal/middleware"
	"datasetprep/internal/pipeline"
	"datasetprep/internal/walker"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "datasetprep:", err)
		os.Exit(1)
	}
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"input":           "input_dir",
	"output":          "output_dir",
	"width":           "target_width",
	"height":          "target_height",
	"interpolation":   "interpolation",
	"pad":             "pad",
	"background":      "background_color",
	"format":          "output_format",
	"quality":         "quality",
	"auto-orient":     "auto_orient",
	"max-bytes":       "max_bytes",
	"workers":         "workers",
	"compose-workers": "compose_workers",
	"manifest":        "manifest_path",
	"resume":          "resume",
	"addr":            "server_addr",
	"rate-limit":      "rate_limit_per_min",
	"trusted-proxies": "trusted_proxies",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"log-file":        "log.file",
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	def := config.Default()

	root := &cobra.Command{
		Use:           "datasetprep",
		Short:         "Letterbox image datasets to a fixed model input size",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Flags())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "config file (yaml, toml or json)")
	pf.Int("width", def.TargetWidth, "target canvas width")
	pf.Int("height", def.TargetHeight, "target canvas height")
	pf.String("interpolation", def.Interpolation, "nearest, bilinear, bicubic or lanczos")
	pf.Bool("pad", def.Pad, "pad to the full target canvas")
	pf.String("background", def.BackgroundColor, `padding color as "r,g,b" or "#rrggbb"`)
	pf.String("format", def.OutputFormat, "output format: jpeg, png, webp or avif")
	pf.Int("quality", def.Quality, "quality for lossy formats (1-100)")
	pf.Bool("auto-orient", def.AutoOrient, "apply EXIF orientation before resizing")
	pf.Int64("max-bytes", def.MaxBytes, "largest accepted input file")
	pf.Int("compose-workers", def.ComposeWorkers, "row bands per canvas (0 = GOMAXPROCS)")
	pf.String("log-level", def.Log.Level, "debug, info, warn or error")
	pf.String("log-format", def.Log.Format, "console or json")
	pf.String("log-file", def.Log.File, "also write JSON logs to this rotated file")

	root.AddCommand(newRunCmd(a, def), newServeCmd(a, def), newPlanCmd(a))
	return root
}

// init loads the config with flags taking precedence and builds the logger.
func (a *app) init(flags *pflag.FlagSet) error {
	v, err := config.NewViper(a.configFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

func newRunCmd(a *app, def config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Normalize every image under the input directory into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.StringP("input", "i", def.InputDir, "input dataset root")
	f.StringP("output", "o", def.OutputDir, "output dataset root")
	f.Int("workers", def.Workers, "files processed concurrently (0 = GOMAXPROCS)")
	f.String("manifest", def.ManifestPath, "SQLite manifest recording every file outcome")
	f.Bool("resume", def.Resume, "skip files the manifest records as processed and unchanged")
	return cmd
}

func (a *app) run(ctx context.Context) error {
	cfg, log := a.cfg, a.logger
	if err := cfg.ValidateRun(); err != nil {
		return err
	}
	pipeline.Setup()

	proc, err := cfg.Processor()
	if err != nil {
		return err
	}

	w := walker.New(proc, log)
	w.Workers = cfg.FileWorkers()
	w.Resume = cfg.Resume
	w.TempMaxAge = time.Minute
	if cfg.ManifestPath != "" {
		store, err := manifest.Open(cfg.ManifestPath)
		if err != nil {
			return err
		}
		defer store.Close()
		w.Manifest = store
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := w.Run(ctx, cfg.InputDir, cfg.OutputDir)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		log.Warn("some files failed", zap.Int64("failed", summary.Failed), zap.Int64("total", summary.Total()))
	}
	return nil
}

func newServeCmd(a *app, def config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the normalizer over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.String("addr", def.ServerAddr, "listen address")
	f.Int("rate-limit", def.RateLimitPerMin, "requests per minute per client on pipeline routes (0 = off)")
	f.String("trusted-proxies", def.TrustedProxies, "comma-separated CIDRs allowed to set X-Forwarded-For")
	f.String("manifest", def.ManifestPath, "manifest checked by /health")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.logger
	pipeline.Setup()

	proc, err := cfg.Processor()
	if err != nil {
		return err
	}
	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	var store *manifest.Store
	if cfg.ManifestPath != "" {
		store, err = manifest.Open(cfg.ManifestPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimitPerMin,
		TrustedProxies:    trusted,
		Logger:            log.Named("ratelimit"),
	})
	h := handler.New(proc, nil, store, log)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           h.Router(limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ServerAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <width> <height>",
		Short: "Print the letterbox geometry for a source size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("width: %w", err)
			}
			h, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("height: %w", err)
			}
			spec, err := a.cfg.ResizeSpec()
			if err != nil {
				return err
			}
			plan, err := pipeline.Plan(w, h, spec)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		},
	}
}
