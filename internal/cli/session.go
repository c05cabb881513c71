package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizframe/pkg/config"
	"github.com/matzehuels/vizframe/pkg/plugin"
	"github.com/matzehuels/vizframe/pkg/source"
	"github.com/matzehuels/vizframe/pkg/store"
	"github.com/matzehuels/vizframe/pkg/view"
)

// session is a view built from a session file.
type session struct {
	cfg       *config.Config
	view      *view.View
	connector *source.Connector
	plugins   []*plugin.Base
	logger    *log.Logger
}

// loadConfig reads --config, or ./vizframe.toml when it exists.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	return config.Load(path)
}

// openSession loads the session file, attaches its plugins and applies its
// transformer configuration. The returned view has been processed once at
// the latest samples.
func (c *CLI) openSession(ctx context.Context, opts ...view.Option) (*session, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return newSession(ctx, cfg, opts...)
}

func newSession(ctx context.Context, cfg *config.Config, opts ...view.Option) (*session, error) {
	logger := loggerFromContext(ctx)
	opts = append([]view.Option{
		view.WithLogger(logger),
		view.WithMaxSamples(cfg.View.MaxSamples),
		view.WithOverlays(cfg.View.ShowGrid, cfg.View.ShowAxes),
	}, opts...)

	s := &session{cfg: cfg, view: view.New(opts...), logger: logger}
	s.connector = source.NewConnector(s.view, logger)
	if err := s.connector.Apply(cfg.Transformer()); err != nil {
		return nil, fmt.Errorf("apply transformer configuration: %w", err)
	}

	group := plugin.NewGroup(appName)
	for _, pc := range cfg.Plugins {
		p := plugin.NewBase(pc.Name)
		s.plugins = append(s.plugins, p)
		group.Add(p)
	}
	if err := s.view.Attach(group, nil); err != nil {
		return nil, err
	}
	for i, pc := range cfg.Plugins {
		switch {
		case pc.DataFrame != "":
			if err := s.view.SetPluginDataFrame(s.plugins[i], pc.DataFrame); err != nil {
				return nil, err
			}
		case pc.Port != "":
			s.connector.BindPort(pc.Port, s.plugins[i])
		}
	}
	if cfg.View.ReferenceFrame != "" {
		if err := s.view.SetReferenceFrame(cfg.View.ReferenceFrame); err != nil {
			return nil, err
		}
	}
	if err := s.view.Process(time.Time{}); err != nil {
		return nil, err
	}
	return s, nil
}

// replay pushes the recording at url into the view and processes it at at.
// A zero at processes at the latest samples. An empty url replays nothing.
func (s *session) replay(ctx context.Context, url string, at time.Time) (store.ReplayResult, error) {
	if url == "" {
		return store.ReplayResult{}, nil
	}
	st, err := store.Open(ctx, url)
	if err != nil {
		return store.ReplayResult{}, err
	}
	defer st.Close()

	res, err := store.Replay(ctx, st, s.view, store.ReplayOptions{Until: at, Logger: s.logger})
	if err != nil && ctx.Err() != nil {
		return res, err
	}
	// Rejected samples were logged by Replay; only processing errors stop us.
	if perr := s.view.Process(at); perr != nil {
		return res, errors.Join(err, perr)
	}
	return res, nil
}

// storeURL returns the flag value, falling back to the session's store.
func (s *session) storeURL(flag string) string {
	if flag != "" {
		return flag
	}
	return s.cfg.Store.URL
}

// parseTime parses an optional RFC 3339 time flag.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want RFC 3339): %w", raw, err)
	}
	return t, nil
}
