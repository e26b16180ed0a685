// Package probe fetches the raw output of every hardware source
package probe

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/hardware"
	"github.com/sigreer/ardenthat/internal/sources"
	"github.com/sigreer/ardenthat/internal/system"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single source fetch
const DefaultTimeout = 15 * time.Second

// Result is the raw output of one source. Err is a PROBE error when the
// source could not be read; Raw may still hold partial output.
type Result struct {
	Type   hardware.DeviceType
	Source sources.Source
	Raw    []byte
	Err    error
}

// Run fetches all sources concurrently and returns one result per source
// in the order the sources were given. A failing source never affects
// the others.
func Run(ctx context.Context, r system.Runner, srcs []sources.Source, timeout time.Duration, logger zerolog.Logger) []Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	results := make([]Result, len(srcs))
	var g errgroup.Group

	for i, src := range srcs {
		g.Go(func() error {
			start := time.Now()
			raw, err := fetch(ctx, r, src, timeout)
			results[i] = Result{Type: src.Type, Source: src, Raw: raw, Err: err}
			logger.Debug().
				Str("source", src.Name()).
				Int("bytes", len(raw)).
				Dur("duration", time.Since(start)).
				Err(err).
				Msg("Probed source")
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func fetch(ctx context.Context, r system.Runner, src sources.Source, timeout time.Duration) ([]byte, error) {
	if src.File != "" {
		raw, err := r.ReadFile(src.File)
		if err != nil {
			return nil, probeError(err, src)
		}
		return raw, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := system.RunArgv(ctx, r, src.Command)
	if err != nil {
		return raw, probeError(err, src)
	}
	return raw, nil
}

func probeError(err error, src sources.Source) error {
	return errors.Wrapf(err, errors.ErrProbe, "failed to probe %s", src.Type).
		WithDetail("source", src.Name())
}
