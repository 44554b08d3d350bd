package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/leonletto/threadtrack/internal/chanapi"
	"github.com/leonletto/threadtrack/internal/config"
	"github.com/leonletto/threadtrack/internal/history"
	"github.com/leonletto/threadtrack/internal/logx"
	"github.com/leonletto/threadtrack/internal/notify"
	"github.com/leonletto/threadtrack/internal/paths"
	"github.com/leonletto/threadtrack/internal/registry"
	"github.com/leonletto/threadtrack/internal/tracker"
)

// app holds everything one invocation needs.
type app struct {
	cfg     *config.Config
	log     logx.Logger
	dataDir string
	store   *registry.Store
	api     *chanapi.Client
	tracker *tracker.Service
	history *history.Store
}

func newApp(f *rootFlags, logOut io.Writer) (*app, error) {
	cfgPath := f.config
	if cfgPath == "" {
		p, err := paths.ConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = p
	}
	cfgPath, err := paths.ExpandHome(cfgPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}

	level := cfg.Logging.Level
	if f.verbose {
		level = "debug"
	}
	log := logx.New(logx.Config{Level: level, JSON: cfg.Logging.JSON, Out: logOut})
	log.Debug("config loaded", logx.String("path", cfgPath), logx.String("config", cfg.String()))

	dataDir, err := paths.DataDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	store := registry.NewStore(paths.RegistryPath(dataDir), log.With(logx.String("component", "registry")))
	api := chanapi.New(chanapi.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.APITimeout(),
		RatePerSec: cfg.API.RatePerSec,
		UserAgent:  cfg.API.UserAgent,
	})

	return &app{
		cfg:     cfg,
		log:     log,
		dataDir: dataDir,
		store:   store,
		api:     api,
		tracker: tracker.NewService(store, api, log.With(logx.String("component", "tracker"))),
	}, nil
}

// openHistory opens the notification log on first use.
func (a *app) openHistory() (*history.Store, error) {
	if a.history != nil {
		return a.history, nil
	}
	h, err := history.Open(paths.HistoryPath(a.dataDir))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	a.history = h
	return h, nil
}

// notifier builds the configured notification backends.
func (a *app) notifier() (notify.Notifier, error) {
	var out notify.Multi
	for _, name := range a.cfg.Notify.Backends {
		switch name {
		case "desktop":
			d := a.cfg.Notify.Desktop
			out = append(out, notify.NewDesktop(d.AppName, a.cfg.DesktopExpire(), d.Command))
		case "telegram":
			tg, err := notify.NewTelegram(notify.TelegramOptions{
				Token:   a.cfg.Notify.Telegram.Token,
				ChatID:  a.cfg.Notify.Telegram.ChatID,
				Timeout: a.cfg.APITimeout(),
			})
			if err != nil {
				return nil, fmt.Errorf("telegram notifier: %w", err)
			}
			out = append(out, tg)
		case "log":
			out = append(out, notify.Log{Logger: a.log.With(logx.String("component", "notify"))})
		default:
			return nil, fmt.Errorf("unknown notify backend %q", name)
		}
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warn("close history", logx.Err(err))
		}
	}
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
