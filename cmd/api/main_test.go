package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/baharkarakas/fintech-transfers/internal/config"
	"github.com/baharkarakas/fintech-transfers/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ClosesStoresWhenNonceStoreFails(t *testing.T) {
	cfg := config.Config{StoreDriver: config.StoreDriverMemory, RedisURL: "not-a-redis-url"}
	closed := false
	open := func(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, error) {
		st, err := openStores(ctx, cfg, log)
		if err != nil {
			return stores{}, err
		}
		inner := st.close
		st.close = func() { closed = true; inner() }
		return st, nil
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	err := run(ctx, stop, cfg, logger.Nop(), open)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonce store")
	assert.True(t, closed)
}
