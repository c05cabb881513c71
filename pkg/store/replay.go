package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/charmbracelet/log"
)

// ReplayOptions filters and paces a replay.
type ReplayOptions struct {
	// Until drops dynamic samples after this time when non-zero.
	Until time.Time
	// Logger receives per-sample rejections. Defaults to log.Default().
	Logger *log.Logger
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Pushed   int
	Rejected int
	Skipped  int
}

// Replay loads the recording and pushes it into p: static samples first,
// then dynamic samples by time. Rejected samples are logged and counted;
// their errors are returned joined after the rest of the recording has
// been pushed.
func Replay(ctx context.Context, s Store, p Pusher, opts ReplayOptions) (ReplayResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	samples, err := s.Load(ctx)
	if err != nil {
		return ReplayResult{}, err
	}
	sort.SliceStable(samples, func(i, j int) bool {
		a, b := samples[i], samples[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Time.Before(b.Time)
	})

	var res ReplayResult
	var errs []error
	for _, sample := range samples {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !opts.Until.IsZero() && !sample.Time.IsZero() && sample.Time.After(opts.Until) {
			res.Skipped++
			continue
		}
		if err := sample.Push(p); err != nil {
			logger.Warn("replay sample rejected", "source", sample.Source, "target", sample.Target, "err", err)
			res.Rejected++
			errs = append(errs, err)
			continue
		}
		res.Pushed++
	}
	return res, errors.Join(errs...)
}
