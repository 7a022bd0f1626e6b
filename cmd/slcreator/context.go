package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/gyaneshwarpardhi/slcreator/internal/config"
	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
	"github.com/gyaneshwarpardhi/slcreator/internal/sociallink"
	"github.com/gyaneshwarpardhi/slcreator/internal/store"
)

type commandContext struct {
	configFlag *string

	setupOnce sync.Once
	setupErr  error
	loader    *config.Loader
	level     slog.LevelVar
	logger    *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// setup loads the config and installs the default logger. Reloads of the
// config adjust the log level in place.
func (c *commandContext) setup(logOut io.Writer) error {
	c.setupOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		loader, err := config.NewLoader(path)
		if err != nil {
			c.setupErr = fmt.Errorf("load config: %w", err)
			return
		}
		cfg := loader.Config()
		c.logger = newLogger(logOut, cfg.Log, &c.level)
		slog.SetDefault(c.logger)

		loader.OnChange(func(cfg *config.Config) {
			if lvl, err := config.ParseLevel(cfg.Log.Level); err == nil {
				c.level.Set(lvl)
			}
		})
		c.loader = loader
	})
	return c.setupErr
}

func (c *commandContext) config() *config.Config { return c.loader.Config() }

// newLogger builds the slog handler selected by cfg. The level is read
// through lv so it can change while running.
func newLogger(w io.Writer, cfg config.LogConf, lv *slog.LevelVar) *slog.Logger {
	if lvl, err := config.ParseLevel(cfg.Level); err == nil {
		lv.Set(lvl)
	}
	opts := &slog.HandlerOptions{Level: lv}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c *commandContext) openStore() (store.Store, error) {
	cfg := c.config()
	st, err := store.Open(cfg.Store.Backend, cfg.DataDir, cfg.Store.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	return st, nil
}

func (c *commandContext) withStore(fn func(store.Store) error) error {
	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// loadCutscene reads one cutscene straight from the store.
func (c *commandContext) loadCutscene(ctx context.Context, arcana string, level, angle int) (*graph.Graph, error) {
	var g *graph.Graph
	err := c.withStore(func(st store.Store) error {
		link, err := sociallink.Load(ctx, st, arcana)
		if err != nil {
			return err
		}
		var ok bool
		if g, ok = link.Cutscene(level, angle); !ok {
			return fmt.Errorf("%s has no cutscene at level %d angle %d", arcana, level, angle)
		}
		return nil
	})
	return g, err
}

// cutsceneArgs parses "<arcana> <level> <angle>".
func cutsceneArgs(args []string) (arcana string, level, angle int, err error) {
	arcana = strings.TrimSpace(args[0])
	if arcana == "" {
		return "", 0, 0, errors.New("arcana is required")
	}
	if level, err = strconv.Atoi(args[1]); err != nil {
		return "", 0, 0, fmt.Errorf("level must be a number, got %q", args[1])
	}
	if err = sociallink.ValidLevel(level); err != nil {
		return "", 0, 0, err
	}
	if angle, err = strconv.Atoi(args[2]); err != nil || angle < 0 {
		return "", 0, 0, fmt.Errorf("angle must be a non-negative number, got %q", args[2])
	}
	return arcana, level, angle, nil
}

func intArg(name, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, raw)
	}
	return n, nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
