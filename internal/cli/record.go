package cli

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vizframe/pkg/config"
	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/source"
	"github.com/matzehuels/vizframe/pkg/store"
	"github.com/matzehuels/vizframe/pkg/transform"
)

// recordCommand appends the live feed to a store until interrupted.
func (c *CLI) recordCommand() *cobra.Command {
	var (
		storeURL string
		redisURL string
		channel  string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the live feed into a store",
		Long: `Subscribe to the redis feed and append every valid sample to a store
until interrupted. The store URL may name a file, redis list or MongoDB
collection:

  vizframe record --store file://run.jsonl
  vizframe record --store "mongodb://localhost:27017/vizframe?collection=run1"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if storeURL == "" {
				storeURL = cfg.Store.URL
			}
			if redisURL == "" {
				redisURL = cfg.Redis.URL
			}
			if channel == "" {
				channel = cfg.Redis.Channel
			}
			if storeURL == "" || redisURL == "" {
				return verrors.New(verrors.ErrCodeInvalidConfig, "record needs a store URL and a redis URL")
			}

			st, err := store.Open(ctx, storeURL)
			if err != nil {
				return err
			}
			defer st.Close()
			client, err := newRedisClient(redisURL)
			if err != nil {
				return err
			}
			defer client.Close()

			var count atomic.Int64
			spin := newSpinnerWithContext(ctx, "recording "+storeURL)
			spin.Start()
			defer spin.Stop()
			prog := newProgress(logger)

			feed := source.NewRedisFeed(client, channel, logger)
			err = feed.Run(ctx, func(ctx context.Context, msg source.Message) error {
				if err := st.Append(ctx, msg.Sample); err != nil {
					return err
				}
				spin.SetMessage(fmt.Sprintf("recording %s (%d samples)", storeURL, count.Add(1)))
				return nil
			})
			spin.Stop()
			prog.done(fmt.Sprintf("Recorded %d samples", count.Load()))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&storeURL, "store", "s", "", "store URL (default: [store] url)")
	cmd.Flags().StringVar(&redisURL, "redis", "", "redis URL (default: [redis] url)")
	cmd.Flags().StringVar(&channel, "channel", "", "pub/sub channel (default: [redis] channel)")
	return cmd
}

// publishCommand sends one sample to the live feed.
func (c *CLI) publishCommand() *cobra.Command {
	var (
		redisURL string
		channel  string
		port     string
		static   bool
		at       string
		rotation []float64
	)

	cmd := &cobra.Command{
		Use:   "publish SOURCE TARGET X Y Z",
		Short: "Publish a transformation to the live feed",
		Example: `  vizframe publish laser body 0.2 0 0.1 --static
  vizframe publish body odom 1.5 0 0 --rotation 1,0,0,0 --port odometry.pose_samples`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if redisURL == "" {
				redisURL = cfg.Redis.URL
			}
			if channel == "" {
				channel = cfg.Redis.Channel
			}
			if redisURL == "" {
				return verrors.New(verrors.ErrCodeInvalidConfig, "publish needs a redis URL")
			}

			msg, err := buildMessage(args, rotation, static, at)
			if err != nil {
				return err
			}
			msg.Port = port
			if err := msg.Validate(); err != nil {
				return err
			}

			client, err := newRedisClient(redisURL)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := source.NewRedisFeed(client, channel, loggerFromContext(ctx)).Publish(ctx, msg); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "published %s %s %s", msg.Source, iconArrow, msg.Target)
			return nil
		},
	}

	cmd.Flags().StringVar(&redisURL, "redis", "", "redis URL (default: [redis] url)")
	cmd.Flags().StringVar(&channel, "channel", "", "pub/sub channel (default: [redis] channel)")
	cmd.Flags().StringVar(&port, "port", "", "producer port (task.port) the sample comes from")
	cmd.Flags().BoolVar(&static, "static", false, "publish a static transformation")
	cmd.Flags().StringVar(&at, "time", "", "sample time (RFC 3339, default now)")
	cmd.Flags().Float64SliceVar(&rotation, "rotation", []float64{1, 0, 0, 0}, "rotation quaternion w,x,y,z")
	return cmd
}

// buildMessage parses SOURCE TARGET X Y Z into a feed message.
func buildMessage(args []string, rotation []float64, static bool, at string) (source.Message, error) {
	var xyz [3]float64
	for i, raw := range args[2:5] {
		if _, err := fmt.Sscan(raw, &xyz[i]); err != nil {
			return source.Message{}, verrors.Wrap(verrors.ErrCodeInvalidInput, err, "coordinate %q", raw)
		}
	}
	if len(rotation) != 4 {
		return source.Message{}, verrors.New(verrors.ErrCodeInvalidInput, "rotation needs 4 values (w,x,y,z), got %d", len(rotation))
	}
	st := config.Static{Source: args[0], Target: args[1], Translation: xyz, Rotation: [4]float64(rotation)}
	msg := source.Message{Sample: st.Sample()}
	if static {
		return msg, nil
	}

	msg.Kind = transform.KindDynamic
	t, err := parseTime(at)
	if err != nil {
		return source.Message{}, err
	}
	if t.IsZero() {
		t = time.Now()
	}
	msg.Time = t
	return msg, nil
}
