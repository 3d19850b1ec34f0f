package civilmemory

import (
	"context"
	"fmt"
	"time"

	"sparkpad/config"
	"sparkpad/pkg/logger"
	"sparkpad/store"
)

const (
	connectAttempts = 5
	retryDelay      = 2 * time.Second
)

// Connect builds the store and waits until Civil Memory answers, retrying a
// few times in case of temporary DNS/network blips.
func Connect(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	return connect(ctx, cfg, retryDelay)
}

func connect(ctx context.Context, cfg *config.Config, delay time.Duration) (*store.Store, error) {
	client := store.NewClient(store.Options{
		URL:     cfg.CivilMemoryURL,
		Path:    cfg.CivilMemoryPath,
		APIKey:  cfg.CivilMemoryAPIKey,
		Timeout: cfg.CivilMemoryTimeout,
	})
	st := store.New(client, cfg.KeyPrefix)

	var err error
	for i := 0; i < connectAttempts; i++ {
		if err = st.Ping(ctx); err == nil {
			logger.Sugar.Infof("Successfully connected to Civil Memory at %s", cfg.CivilMemoryURL)
			return st, nil
		}
		logger.Sugar.Infof("Civil Memory connection failed, retrying in %s... (%v)", delay, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("could not reach Civil Memory after %d attempts: %w", connectAttempts, err)
}
