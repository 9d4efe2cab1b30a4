package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/facemark/facemark/internal/config"
	"github.com/facemark/facemark/internal/embed"
	"github.com/facemark/facemark/internal/engine"
	"github.com/facemark/facemark/internal/gallery"
	"github.com/facemark/facemark/internal/match"
	"github.com/facemark/facemark/internal/sink"
	"github.com/facemark/facemark/internal/web"
)

var watchCmd = &cobra.Command{
	Use:   "watch <spool-dir>",
	Short: "Watch a frame spool directory and record attendance",
	Long: `Watch a spool directory where the capture process drops frame images.
Each frame is sent to the embedding service; every detected face is
fed to the decision engine, and accepted attendance events are
delivered to the configured sink in the background. Processed frames
are moved to a "processed" subdirectory.

The recognition loop never blocks on the sink: a slow or unreachable
attendance store costs durable records, not frames.

Examples:
  # Watch /var/spool/facemark, record via the attendance API
  facemark watch /var/spool/facemark

  # Record to the local CSV log instead
  SINK=csv facemark watch /var/spool/facemark

  # Expose the operator status API while watching
  facemark watch /var/spool/facemark --listen :8087`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("interval", 500*time.Millisecond, "Spool polling interval")
	watchCmd.Flags().Duration("drain-timeout", 10*time.Second, "Grace period for delivering queued events on shutdown")
	watchCmd.Flags().Float64("threshold", 0, "Maximum accepted match distance (overrides MATCH_THRESHOLD)")
	watchCmd.Flags().Duration("cooldown", -1, "Dedup window between attendance events per identity (overrides COOLDOWN_SECONDS)")
	watchCmd.Flags().String("listen", "", "Address for the operator status API (empty = disabled)")
	watchCmd.Flags().Bool("delete-processed", false, "Delete processed frames instead of moving them")
}

// watchFlags holds the parsed flags for the watch command.
type watchFlags struct {
	spoolDir        string
	interval        time.Duration
	drainTimeout    time.Duration
	listen          string
	deleteProcessed bool
}

func runWatch(cmd *cobra.Command, args []string) error {
	flags := &watchFlags{
		spoolDir:        args[0],
		interval:        mustGetDuration(cmd, "interval"),
		drainTimeout:    mustGetDuration(cmd, "drain-timeout"),
		listen:          mustGetString(cmd, "listen"),
		deleteProcessed: mustGetBool(cmd, "delete-processed"),
	}

	cfg := config.Load()
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		cfg.Match.Threshold = t
	}
	if c := mustGetDuration(cmd, "cooldown"); c >= 0 {
		cfg.Match.Cooldown = c
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := loadGallery(ctx, cfg, true)
	if err != nil {
		return err
	}
	if g.Size() == 0 {
		zap.L().Warn("gallery is empty, every face will be unknown")
	}

	matcher, err := newMatcher(cfg, g)
	if err != nil {
		return err
	}

	s, closeSink, err := newSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	dispatcher := sink.NewDispatcher(s, cfg.Sink.QueueSize, cfg.Sink.Timeout)

	decisions := web.NewDecisionLog(50)
	eng := engine.New(g, matcher, dispatcher, cfg.Match.Threshold, cfg.Match.Cooldown,
		engine.WithObserver(decisions.Add))

	if flags.listen != "" {
		server := web.NewServer(flags.listen, eng, dispatcher, decisions)
		go func() {
			if err := server.Start(); err != nil {
				zap.L().Error("status server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	client := embed.NewClient(cfg.Embedding.URL)
	if err := watchSpool(ctx, flags, client, eng); err != nil {
		return err
	}

	// Deliver whatever is still queued, best-effort.
	drainCtx, cancel := context.WithTimeout(context.Background(), flags.drainTimeout)
	defer cancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		zap.L().Warn("shutdown drain incomplete", zap.Error(err))
	}

	stats := dispatcher.Stats()
	zap.L().Info("watch stopped",
		zap.Int64("delivered", stats.Delivered),
		zap.Int64("dropped", stats.Dropped),
		zap.Int64("failed", stats.Failed))
	return nil
}

// watchSpool polls the spool directory until the context is canceled.
func watchSpool(ctx context.Context, flags *watchFlags, client *embed.Client, eng *engine.Engine) error {
	processedDir := filepath.Join(flags.spoolDir, "processed")
	if !flags.deleteProcessed {
		if err := os.MkdirAll(processedDir, 0750); err != nil {
			return fmt.Errorf("creating processed dir: %w", err)
		}
	}

	zap.L().Info("watching spool",
		zap.String("dir", flags.spoolDir),
		zap.Duration("interval", flags.interval))

	ticker := time.NewTicker(flags.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := processSpoolOnce(ctx, flags, processedDir, client, eng); err != nil {
				return err
			}
		}
	}
}

// processSpoolOnce handles every frame currently in the spool.
func processSpoolOnce(ctx context.Context, flags *watchFlags, processedDir string, client *embed.Client, eng *engine.Engine) error {
	entries, err := os.ReadDir(flags.spoolDir)
	if err != nil {
		return fmt.Errorf("reading spool: %w", err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(flags.spoolDir, entry.Name())
		processFrame(ctx, path, client, eng)

		if flags.deleteProcessed {
			if err := os.Remove(path); err != nil {
				zap.L().Warn("could not remove frame", zap.String("path", path), zap.Error(err))
			}
		} else {
			if err := os.Rename(path, filepath.Join(processedDir, entry.Name())); err != nil {
				zap.L().Warn("could not move frame", zap.String("path", path), zap.Error(err))
			}
		}
	}
	return nil
}

// processFrame sends one frame to the embedding service and feeds
// every detected face to the engine. Frame-level failures are logged
// and skipped; they must not stop the loop.
func processFrame(ctx context.Context, path string, client *embed.Client, eng *engine.Engine) {
	data, err := os.ReadFile(path) //nolint:gosec // path is inside the spool dir
	if err != nil {
		zap.L().Warn("could not read frame", zap.String("path", path), zap.Error(err))
		return
	}

	faces, err := client.DetectFaces(ctx, data)
	if err != nil {
		zap.L().Warn("face detection failed", zap.String("path", path), zap.Error(err))
		return
	}

	for _, face := range faces {
		d := eng.Decide(face.Embedding)
		switch d.Outcome {
		case engine.OutcomeAccepted:
			zap.L().Info("recognized",
				zap.String("name", d.Name),
				zap.Float64("distance", d.Distance))
		case engine.OutcomeSuppressed:
			zap.L().Debug("recognized, already recorded",
				zap.String("name", d.Name),
				zap.Float64("distance", d.Distance))
		case engine.OutcomeUnknown:
			zap.L().Debug("face not recognized",
				zap.Float64("distance", d.Distance))
		}
	}
}

// newMatcher builds the configured matcher over the gallery.
func newMatcher(cfg *config.Config, g *gallery.Gallery) (match.Matcher, error) {
	switch cfg.Match.Index {
	case "", "brute":
		return match.NewBruteForce(g), nil
	case "hnsw":
		return match.NewHNSW(g)
	default:
		return nil, fmt.Errorf("unknown matcher %q (want brute or hnsw)", cfg.Match.Index)
	}
}

// newSink builds the configured sink. The returned close function
// releases sink resources after the dispatcher has drained.
func newSink(cfg *config.Config) (sink.Sink, func(), error) {
	switch cfg.Sink.Kind {
	case "remote":
		return sink.NewRemote(cfg.Sink.APIURL, cfg.Sink.Timeout), func() {}, nil
	case "csv":
		s, err := sink.NewCSVLog(cfg.Sink.LogPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "sqlite":
		s, err := sink.NewSQLite(cfg.Sink.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink %q (want remote, csv or sqlite)", cfg.Sink.Kind)
	}
}
