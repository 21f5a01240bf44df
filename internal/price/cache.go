package price

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

const quoteKey = "usd"

type quoteCache struct {
	c *gocache.Cache
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	return &quoteCache{c: gocache.New(ttl, 2*ttl)}
}

func (q *quoteCache) get() (Quote, bool) {
	v, ok := q.c.Get(quoteKey)
	if !ok {
		return Quote{}, false
	}
	return v.(Quote), true
}

func (q *quoteCache) set(quote Quote) {
	q.c.SetDefault(quoteKey, quote)
}

// Quote is a spot price together with the source that produced it.
type Quote struct {
	USD       decimal.Decimal `json:"usd"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}
