package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/driftwatch/anomaly-backend/internal/persistence"
	"github.com/driftwatch/anomaly-backend/internal/platform/logger"
)

// RefreshBus broadcasts index refresh events over redis pub/sub so readers
// on other nodes learn when a visibility horizon moved.
type RefreshBus interface {
	NotifyRefresh(ctx context.Context, ev persistence.RefreshEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev persistence.RefreshEvent)) error
	Close() error
}

type refreshBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRefreshBus(addr, channel string, log *logger.Logger) (RefreshBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if strings.TrimSpace(channel) == "" {
		channel = "index-refresh"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &refreshBus{
		log:     log.With("client", "RedisRefreshBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *refreshBus) NotifyRefresh(ctx context.Context, ev persistence.RefreshEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("refresh bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes to the refresh channel and invokes onEvent for
// every event until ctx is done.
func (b *refreshBus) StartForwarder(ctx context.Context, onEvent func(ev persistence.RefreshEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("refresh bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var ev persistence.RefreshEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad refresh event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()

	return nil
}

func (b *refreshBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
