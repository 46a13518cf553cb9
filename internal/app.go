// Package internal provides the App struct that wires the configuration,
// observation store, verifier and observability components of sonata-verify.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/opensonata/sonata-verify/internal/core"
	"github.com/opensonata/sonata-verify/internal/observability"
	"github.com/opensonata/sonata-verify/internal/report"
	"github.com/opensonata/sonata-verify/internal/store"
	"github.com/opensonata/sonata-verify/internal/verify"
	"github.com/opensonata/sonata-verify/pkg/models"
)

// StoreOpener opens the observation store described by cfg.
type StoreOpener func(ctx context.Context, cfg models.DatabaseConfig) (store.Store, error)

// OpenStore is the default StoreOpener backed by database/sql.
func OpenStore(ctx context.Context, cfg models.DatabaseConfig) (store.Store, error) {
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Options holds the process-level dependencies of an App.
type Options struct {
	Stderr    io.Writer
	OpenStore StoreOpener
}

// App holds all service dependencies for a verification run.
type App struct {
	Config *models.Config
	Logger *slog.Logger

	// Observability
	Metrics  *observability.RunMetrics
	Notifier observability.Notifier

	openStore StoreOpener
	// publishTimeout bounds each network sink so a hung endpoint cannot hold
	// the exit status back.
	publishTimeout time.Duration
}

// DefaultPublishTimeout is the time allowed for the metrics push and for the
// notification of one run.
const DefaultPublishTimeout = 15 * time.Second

// NewApp creates and wires the components for cfg.
func NewApp(cfg *models.Config, opts Options) *App {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.OpenStore == nil {
		opts.OpenStore = OpenStore
	}

	observability.SetLevelByName(cfg.LogLevel)

	app := &App{
		Config:    cfg,
		Logger:    observability.NewLogger(opts.Stderr),
		Metrics:   observability.NewRunMetrics(),
		openStore:      opts.OpenStore,
		publishTimeout: DefaultPublishTimeout,
	}

	if cfg.Notifications.SlackWebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.SlackWebhookURL, cfg.Notifications.Policy)
	}
	return app
}

// Verify connects to the store, runs every check for the activity that
// started after since and prints the report and summary to out. The
// connection is released on every path. A store failure is returned without
// a summary; findings are reported through the returned Report.
func (a *App) Verify(ctx context.Context, since time.Time, out io.Writer) (*models.Report, error) {
	st, err := a.openStore(ctx, a.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to the observation database: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			a.Logger.Warn("closing the observation database", "error", err)
		}
	}()

	v := verify.New(st, verify.Options{
		TestSignal: a.Config.TestSignal,
		Out:        out,
		Color:      isTerminal(out),
		Logger:     a.Logger,
	})

	rep, err := v.Run(ctx, since, a.Config.Roster)
	if err != nil {
		return nil, err
	}
	v.PrintSummary()

	a.publish(ctx, rep)
	return rep, nil
}

// publish hands a finished report to the optional sinks. Sink failures are
// logged and never change the outcome of the run.
func (a *App) publish(ctx context.Context, rep *models.Report) {
	log := a.Logger.With("run_id", rep.RunID)

	if path := a.Config.Report.Path; path != "" {
		if err := report.WriteFile(path, rep, a.Config.Report.Format); err != nil {
			log.Error("writing report", "path", path, "error", err)
		} else {
			log.Info("report written", "path", path)
		}
	}

	a.Metrics.Observe(rep)
	if url := a.Config.Metrics.PushgatewayURL; url != "" {
		pushCtx, cancel := context.WithTimeout(ctx, a.publishTimeout)
		if err := a.Metrics.Push(pushCtx, url, a.Config.Metrics.Job); err != nil {
			log.Error("pushing metrics", "error", err)
		}
		cancel()
	}

	if path := a.Config.History.Path; path != "" {
		if err := appendHistory(path, rep); err != nil {
			log.Error("recording run history", "path", path, "error", err)
		}
	}

	if a.Notifier != nil {
		notifyCtx, cancel := context.WithTimeout(ctx, a.publishTimeout)
		if err := a.Notifier.Notify(notifyCtx, rep); err != nil {
			log.Error("sending notification", "error", err)
		}
		cancel()
	}
}

func appendHistory(path string, rep *models.Report) error {
	h, err := observability.NewJSONLHistory(path)
	if err != nil {
		return err
	}
	if err := h.Append(observability.RecordFromReport(rep)); err != nil {
		_ = h.Close()
		return err
	}
	return h.Close()
}

// ErrNoHistory is returned when the run history is not configured.
var ErrNoHistory = errors.New("run history is not configured (set history.path)")

// History returns the recorded runs matching filter, oldest first.
func (a *App) History(filter observability.HistoryFilter) ([]observability.RunRecord, error) {
	h, err := a.openHistory()
	if err != nil {
		return nil, err
	}
	defer func() { _ = h.Close() }()
	return h.Read(filter)
}

// Alerts evaluates the alert conditions over the run history.
func (a *App) Alerts() ([]observability.Alert, error) {
	h, err := a.openHistory()
	if err != nil {
		return nil, err
	}
	defer func() { _ = h.Close() }()
	return observability.NewAlertEngine(h, a.Config.History).Evaluate()
}

func (a *App) openHistory() (observability.History, error) {
	if a.Config.History.Path == "" {
		return nil, ErrNoHistory
	}
	return observability.NewJSONLHistory(a.Config.History.Path)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// ConfigSearchPaths returns the directories searched for the configuration
// file: SONATA_VERIFY_HOME if set, then the nearest directory at or above the
// working directory containing the file, then the user's home directory.
func ConfigSearchPaths() []string {
	if home := os.Getenv(core.EnvPrefix + "_HOME"); home != "" {
		return []string{home}
	}

	var paths []string
	if dir, err := os.Getwd(); err == nil {
		for {
			if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
				paths = append(paths, dir)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	return paths
}
