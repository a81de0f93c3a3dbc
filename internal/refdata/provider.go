package refdata

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

// ErrNoSnapshot is returned when no snapshot has ever been loaded and the source fails.
var ErrNoSnapshot = errors.New("refdata: reference data unavailable")

// LoadObserver receives one callback per load attempt, labelled by where the records came from.
type LoadObserver func(source, result string)

// ProviderConfig wires a Provider.
type ProviderConfig struct {
	Source  Source
	Cache   *Cache
	Refresh time.Duration
	Logger  zerolog.Logger
	Observe LoadObserver
	Now     func() time.Time
}

// Provider hands out the current Snapshot. It keeps one snapshot in memory for Refresh, consults the shared
// Redis cache before the source, and keeps serving the previous snapshot while a reload runs or after it fails.
// Concurrent callers share a single reload.
type Provider struct {
	source  Source
	cache   *Cache
	refresh time.Duration
	logger  zerolog.Logger
	observe LoadObserver
	now     func() time.Time

	reloads singleflight.Group

	mu       sync.Mutex
	current  *Snapshot
	loadedAt time.Time
}

const reloadKey = "snapshot"

// NewProvider constructs a provider.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.Source == nil {
		return nil, errors.New("refdata: source is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Observe == nil {
		cfg.Observe = func(string, string) {}
	}
	return &Provider{
		source:  cfg.Source,
		cache:   cfg.Cache,
		refresh: cfg.Refresh,
		logger:  cfg.Logger,
		observe: cfg.Observe,
		now:     cfg.Now,
	}, nil
}

// Snapshot returns the current snapshot. A stale snapshot is returned as-is while a reload runs in the
// background; only the very first load is waited for.
func (p *Provider) Snapshot(ctx context.Context) (*Snapshot, error) {
	p.mu.Lock()
	current, loadedAt := p.current, p.loadedAt
	p.mu.Unlock()

	if current != nil && (p.refresh <= 0 || p.now().Sub(loadedAt) < p.refresh) {
		return current, nil
	}

	done := p.reloads.DoChan(reloadKey, func() (any, error) {
		return p.reload(context.WithoutCancel(ctx))
	})
	if current != nil {
		return current, nil
	}
	select {
	case res := <-done:
		if res.Err != nil {
			return nil, errors.Join(ErrNoSnapshot, res.Err)
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, errors.Join(ErrNoSnapshot, ctx.Err())
	}
}

func (p *Provider) reload(ctx context.Context) (*Snapshot, error) {
	snap, err := p.load(ctx)
	if err != nil {
		p.mu.Lock()
		stale := p.current != nil
		p.mu.Unlock()
		if stale {
			p.logger.Warn().Err(err).Msg("refdata reload failed; serving previous snapshot")
		}
		return nil, err
	}
	p.mu.Lock()
	p.current = snap
	p.loadedAt = p.now()
	p.mu.Unlock()
	return snap, nil
}

// Invalidate forgets the in-memory snapshot and the shared cache entry.
func (p *Provider) Invalidate(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return p.cache.Invalidate(ctx)
}

func (p *Provider) load(ctx context.Context) (*Snapshot, error) {
	ctx, span := otel.Tracer("refdata").Start(ctx, "refdata.load")
	defer span.End()

	records, hit, err := p.cache.Get(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("refdata cache read failed")
		p.observe("redis", "error")
	}
	if hit {
		snap, err := NewSnapshot(records)
		if err == nil {
			span.SetAttributes(attribute.String("refdata.source", "redis"))
			p.observe("redis", "hit")
			return snap, nil
		}
		p.logger.Warn().Err(err).Msg("cached refdata invalid; reloading from source")
		p.observe("redis", "invalid")
	}

	source := p.source.Name()
	span.SetAttributes(attribute.String("refdata.source", source))
	records, err = p.source.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		p.observe(source, "error")
		return nil, err
	}
	snap, err := NewSnapshot(records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid records")
		p.observe(source, "invalid")
		return nil, err
	}
	if err := p.cache.Set(ctx, records); err != nil {
		p.logger.Warn().Err(err).Msg("refdata cache write failed")
	}
	p.observe(source, "ok")
	p.logger.Info().Str("source", source).Int("resorts", len(records.Resorts)).Msg("refdata snapshot loaded")
	return snap, nil
}
