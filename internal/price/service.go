package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Service returns the NEAR spot price from the first source that answers,
// caching the result for a fixed TTL.
type Service struct {
	sources []Source
	cache   *quoteCache
	group   singleflight.Group
	now     func() time.Time
}

// NewService creates a price Service trying sources in order.
func NewService(ttl time.Duration, sources ...Source) *Service {
	if len(sources) == 0 {
		panic("price.NewService: no sources")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		sources: sources,
		cache:   newQuoteCache(ttl),
		now:     time.Now,
	}
}

// Quote returns the cached price or fetches a fresh one.
func (s *Service) Quote(ctx context.Context) (Quote, error) {
	if q, ok := s.cache.get(); ok {
		return q, nil
	}

	v, err, _ := s.group.Do(quoteKey, func() (any, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return Quote{}, err
	}
	return v.(Quote), nil
}

// Refresh fetches a fresh price regardless of the cache and stores it.
func (s *Service) Refresh(ctx context.Context) (Quote, error) {
	v, err, _ := s.group.Do(quoteKey, func() (any, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return Quote{}, err
	}
	return v.(Quote), nil
}

func (s *Service) fetch(ctx context.Context) (Quote, error) {
	var errs []error
	for _, src := range s.sources {
		p, err := src.USDPrice(ctx)
		if err != nil {
			slog.Warn("price: source failed", "source", src.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		q := Quote{USD: p, Source: src.Name(), FetchedAt: s.now()}
		s.cache.set(q)
		slog.Debug("price: fetched", "source", q.Source, "usd", q.USD)
		return q, nil
	}
	return Quote{}, fmt.Errorf("fetching NEAR price: %w", errors.Join(errs...))
}
