package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/internal/adapters/file"
	"github.com/robotpit/pinsmith/internal/adapters/redis"
	"github.com/robotpit/pinsmith/internal/config"
	"github.com/robotpit/pinsmith/internal/logging"
	"github.com/robotpit/pinsmith/internal/presentation/tui"
	"github.com/robotpit/pinsmith/pkg/adapters/memory"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/robotpit/pinsmith/pkg/ports"
	"github.com/robotpit/pinsmith/pkg/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const lockPrefix = "pinsmith:"

// app holds what the commands share: configuration, logger and the lazily opened store.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	project string
	noColor bool

	catalog *domain.Catalog
	pins    *domain.PinTable

	store   ports.SnapshotStore
	redis   *redis.Store
	closers []func() error
}

func (a *app) init(cmd *cobra.Command) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if dir, _ := flags.GetString("dir"); dir != "" {
		cfg.Store.Dir = dir
	}
	if backend, _ := flags.GetString("store"); backend != "" {
		cfg.Store.Backend = strings.ToLower(backend)
	}
	if lvl, _ := flags.GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), level)
	a.project, _ = flags.GetString("project")
	a.noColor, _ = flags.GetBool("no-color")
	a.catalog = domain.DefaultCatalog()
	a.pins = domain.ESP32Pins()
	return nil
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// getStore opens the configured backend once per invocation.
func (a *app) getStore() ports.SnapshotStore {
	if a.store != nil {
		return a.store
	}
	switch a.cfg.Store.Backend {
	case config.BackendMemory:
		a.store = memory.NewStore()
	case config.BackendRedis:
		rc := a.cfg.Store.Redis
		var opts []redis.Option
		if rc.Prefix != "" {
			opts = append(opts, redis.WithPrefix(rc.Prefix))
		}
		if rc.TTL > 0 {
			opts = append(opts, redis.WithTTL(rc.TTL))
		}
		a.redis = redis.New(rc.Addr, rc.Password, rc.DB, opts...)
		a.closers = append(a.closers, a.redis.Close)
		a.store = a.redis
	default:
		a.store = file.New(a.cfg.Store.Dir)
	}
	a.logger.Debug("store opened", "backend", a.cfg.Store.Backend)
	return a.store
}

func (a *app) projectOptions(extra ...pinsmith.Option) []pinsmith.Option {
	opts := []pinsmith.Option{
		pinsmith.WithCatalog(a.catalog),
		pinsmith.WithPins(a.pins),
		pinsmith.WithStrictParams(a.cfg.Editor.StrictParams),
	}
	return append(opts, extra...)
}

// manager builds a session manager over the store. With the redis backend,
// edits are also serialized across processes.
func (a *app) manager(extra ...pinsmith.Option) *session.Manager {
	store := a.getStore()
	opts := []session.Option{
		session.WithLogger(a.logger),
		session.WithProjectOptions(a.projectOptions(extra...)...),
	}
	if a.redis != nil {
		opts = append(opts, session.WithLocker(redis.NewLocker(a.redis.Client(), lockPrefix)))
	}
	return session.NewManager(store, opts...)
}

// edit runs fn on the current project and persists what it changes.
func (a *app) edit(ctx context.Context, fn func(context.Context, *pinsmith.Project) error) error {
	return a.manager().Edit(ctx, a.project, fn)
}

// view loads the current project without changing it.
func (a *app) view(ctx context.Context) (*pinsmith.Project, error) {
	var project *pinsmith.Project
	err := a.edit(ctx, func(_ context.Context, p *pinsmith.Project) error {
		project = p
		return nil
	})
	return project, err
}

// render prints markdown, styled when stdout is a terminal.
func (a *app) render(cmd *cobra.Command, markdown string) error {
	out := cmd.OutOrStdout()
	if !isTerminal(out) {
		_, err := io.WriteString(out, markdown)
		return err
	}
	width := 100
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	text, err := tui.NewRenderer(width, a.noColor)(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func parsePin(s string) (int, error) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "GPIO")
	pin, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid pin %q", s)
	}
	return pin, nil
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return i, nil
}

// parseDelta accepts up, down or a signed integer.
func parseDelta(s string) (int, error) {
	switch strings.ToLower(s) {
	case "up":
		return -1, nil
	case "down":
		return 1, nil
	}
	d, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid direction %q (want up, down or -1/+1)", s)
	}
	return d, nil
}
