package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/observability"
	vzotel "github.com/matzehuels/vizframe/pkg/observability/otel"
	"github.com/matzehuels/vizframe/pkg/source"
	"github.com/matzehuels/vizframe/pkg/store"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// serveCommand runs the owning loop with the HTTP adapter and the live feed.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		redisURL string
		record   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the view over HTTP and follow the live feed",
		Long: `Run the view, serving its HTTP API and pushing transformations from the redis
feed when [redis] url is set.

With --record every accepted sample is appended to the session's store.
Tracing is enabled by setting VIZFRAME_OTEL_ENDPOINT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			shutdown, err := vzotel.Setup(ctx, appName)
			if err != nil {
				return fmt.Errorf("setup tracing: %w", err)
			}
			defer shutdown(context.Background())
			if _, ok := vzotel.Enabled(); ok {
				hooks := vzotel.NewSpanHooks()
				observability.SetTransformHooks(hooks)
				observability.SetSceneHooks(hooks)
				defer observability.Reset()
			}

			s, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = s.cfg.Server.Addr
			}
			if redisURL == "" {
				redisURL = s.cfg.Redis.URL
			}

			var opts []source.HandlerOption
			opts = append(opts, source.WithHandlerLogger(logger))
			if record {
				if s.cfg.Store.URL == "" {
					return verrors.New(verrors.ErrCodeInvalidConfig, "--record needs [store] url")
				}
				st, err := store.Open(ctx, s.cfg.Store.URL)
				if err != nil {
					return err
				}
				defer st.Close()
				opts = append(opts, source.WithRecorder(st))
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			errc := make(chan error, 3)
			running := 0

			run := func(name string, fn func(context.Context) error) {
				running++
				go func() {
					err := fn(ctx)
					if errors.Is(err, context.Canceled) {
						err = nil
					}
					if err != nil {
						err = fmt.Errorf("%s: %w", name, err)
					}
					errc <- err
				}()
			}

			run("view", func(ctx context.Context) error {
				return s.view.Run(ctx, s.cfg.View.RefreshInterval)
			})

			srv := &http.Server{
				Addr:              addr,
				Handler:           source.NewHandler(s.view, opts...),
				ReadHeaderTimeout: readHeaderTimeout,
			}
			run("http", func(ctx context.Context) error {
				return listenAndServe(ctx, srv)
			})
			logger.Info("serving", "addr", addr, "reference", orDash(s.cfg.View.ReferenceFrame))

			if redisURL != "" {
				client, err := newRedisClient(redisURL)
				if err != nil {
					cancel()
					return err
				}
				defer client.Close()
				feed := source.NewRedisFeed(client, s.cfg.Redis.Channel, logger)
				run("feed", func(ctx context.Context) error {
					return feed.Run(ctx, s.connector.Handle)
				})
			}

			// The first failure stops everything.
			var errs []error
			for range running {
				if err := <-errc; err != nil {
					errs = append(errs, err)
					cancel()
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: [server] addr)")
	cmd.Flags().StringVar(&redisURL, "redis", "", "redis URL of the live feed (default: [redis] url)")
	cmd.Flags().BoolVar(&record, "record", false, "append accepted HTTP samples to the session store")
	return cmd
}

// listenAndServe runs srv until ctx ends.
func listenAndServe(ctx context.Context, srv *http.Server) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newRedisClient(rawURL string) (*redis.Client, error) {
	if err := verrors.ValidateURL(rawURL, "redis", "rediss"); err != nil {
		return nil, err
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeInvalidURL, err, "parse redis URL")
	}
	return redis.NewClient(opts), nil
}
