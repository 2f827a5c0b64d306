// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command hlscap records a live HLS stream and muxes it into MP4 files.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ManuGH/hlscap/internal/api"
	"github.com/ManuGH/hlscap/internal/capture"
	"github.com/ManuGH/hlscap/internal/config"
	"github.com/ManuGH/hlscap/internal/hls"
	"github.com/ManuGH/hlscap/internal/infra/ffmpeg"
	xglog "github.com/ManuGH/hlscap/internal/log"
	"github.com/ManuGH/hlscap/internal/mux"
	"github.com/ManuGH/hlscap/internal/platform/httpx"
	"github.com/ManuGH/hlscap/internal/stopper"
	"github.com/ManuGH/hlscap/internal/telemetry"
	"github.com/ManuGH/hlscap/internal/validate"
	"github.com/ManuGH/hlscap/internal/version"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

func main() {
	xglog.Configure(xglog.Config{
		Level:   "info",
		Format:  "console",
		Service: "hlscap",
		Version: version.Version,
	})

	if err := newRootCmd().Execute(); err != nil {
		logger := xglog.WithComponent("cli")
		logger.Error().Err(err).Msg("hlscap failed")
		os.Exit(1)
	}
}

type cliOptions struct {
	configPath   string
	chooseStream bool
	listStreams  bool
}

func newRootCmd() *cobra.Command {
	var opts cliOptions
	cmd := &cobra.Command{
		Use:           "hlscap [flags] URL",
		Short:         "Record a live HLS stream to disk",
		Long:          "hlscap polls an HLS playlist, downloads and decrypts every new segment of the selected renditions, and muxes them into MP4 once the stream ends or is interrupted.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to config file (YAML)")
	f.BoolVar(&opts.chooseStream, "choose-stream", false, "pick the variant interactively")
	f.BoolVar(&opts.listStreams, "list-streams", false, "list variants of a master playlist and exit")
	registerConfigFlags(cmd)

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}

func run(cmd *cobra.Command, playlistURL string, opts cliOptions) error {
	cfg, err := config.NewLoader(opts.configPath, version.Version).Load()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	v := validate.New()
	v.PlaylistURL("URL", playlistURL)
	if err := v.Err(); err != nil {
		return err
	}

	xglog.Reconfigure(xglog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "hlscap",
		Version: version.Version,
	})
	logger := xglog.WithComponent("cli")

	fetcher, err := newFetcher(cfg, playlistURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.listStreams {
		return listStreams(ctx, cmd, fetcher, playlistURL)
	}

	outDir, err := resolveOutputDir(cfg.OutputDir, cfg.Overwrite, time.Now())
	if err != nil {
		return err
	}

	executor := ffmpeg.NewExecutor()
	prober := ffmpeg.NewProber(cfg.FFmpeg.FFprobeBin, executor)
	muxer := mux.New(cfg.FFmpeg.Bin, executor, prober)

	var chooser hls.Chooser
	if opts.chooseStream {
		chooser = hls.PromptChooser{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
	}

	session := capture.NewSession(fetcher, prober, muxer, capture.Options{
		OutputDir:      outDir,
		Concurrency:    cfg.Concurrency,
		SegmentRetries: cfg.SegmentRetries,
		FailFast:       cfg.FailFast,
		NoRemux:        cfg.NoRemux,
		Chooser:        chooser,
	})
	ctx = xglog.ContextWithSessionID(ctx, session.ID())

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "hlscap",
		ServiceVersion: version.Version,
		SessionID:      session.ID(),
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	if cfg.StatusAddr != "" {
		if _, _, err := api.New(session, version.Version).ListenAndServe(ctx, cfg.StatusAddr); err != nil {
			return fmt.Errorf("status server: %w", err)
		}
	}

	stop := stopper.New()
	release := watchSignals(stop, os.Exit)
	defer release()

	logger.Info().
		Str(xglog.FieldSessionID, session.ID()).
		Str(xglog.FieldPath, outDir).
		Str(xglog.FieldURL, redactURL(playlistURL)).
		Msg("capture started; press Ctrl+C to stop")

	report, err := session.Run(ctx, playlistURL, stop)
	if report != nil {
		ev := logger.Info().Int("segments", report.Ledger.Len()).Bool("stopped", stop.Stopped())
		if len(report.Outputs) > 0 {
			ev = ev.Strs("outputs", report.Outputs)
		}
		ev.Msg("capture finished")
	}
	return err
}

func newFetcher(cfg config.AppConfig, playlistURL string) (*httpx.Fetcher, error) {
	opts := httpx.ClientOptions{
		Timeout:            cfg.Timeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Instrument:         cfg.Telemetry.Enabled,
	}
	if cfg.CookiesFile != "" {
		jar, err := httpx.LoadCookies(cfg.CookiesFile)
		if err != nil {
			return nil, err
		}
		opts.Jar = jar
	}

	var copyQuery url.Values
	if cfg.CopyQuery {
		u, err := url.Parse(playlistURL)
		if err != nil {
			return nil, err
		}
		copyQuery = u.Query()
	}

	return httpx.NewFetcher(httpx.NewClientWithOptions(opts), httpx.Options{
		MaxRetries: cfg.MaxRetries,
		RetryMin:   cfg.RetryMin,
		RetryMax:   cfg.RetryMax,
		UserAgent:  cfg.UserAgent,
		RateLimit:  rate.Limit(cfg.RateLimit),
		CopyQuery:  copyQuery,
	}), nil
}

func listStreams(ctx context.Context, cmd *cobra.Command, get capture.Getter, playlistURL string) error {
	variants, err := capture.ListVariants(ctx, get, playlistURL)
	if err != nil {
		return err
	}
	if len(variants) == 0 {
		return errors.New("not a master playlist: nothing to choose from")
	}
	return hls.WriteVariants(cmd.OutOrStdout(), variants)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url-redacted"
	}
	u.User = nil
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	return u.String()
}
