package marketdata

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Mirror exports one pair's price to Redis on a fixed interval so the
// settlement side can read it. One-way: the core never reads it back, and a
// failed export does not affect core state.
type Mirror struct {
	client   *redis.Client
	feed     *Feed
	symbol   string
	interval time.Duration
}

func NewMirror(client *redis.Client, feed *Feed, symbol string, interval time.Duration) *Mirror {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Mirror{client: client, feed: feed, symbol: symbol, interval: interval}
}

func (m *Mirror) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			price, err := m.feed.Current(m.symbol)
			if err != nil {
				continue
			}
			if err := m.client.Set(ctx, "price:"+m.symbol, price.String(), 0).Err(); err != nil {
				log.Printf("mirror: export %s failed: %v", m.symbol, err)
			}
		}
	}
}
