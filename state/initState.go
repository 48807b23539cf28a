package state

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/hakanakfirat27/zeugma-realtime/config"
	"github.com/hakanakfirat27/zeugma-realtime/internal/identity"
)

type AppState struct {
	Ctx    context.Context
	Cancel context.CancelFunc

	// Redis is nil when the cursor cache is disabled; the engine falls
	// back to in-memory cursors.
	Redis    *redis.Client
	Identity *identity.Identity
}

func InitAppState(ctx context.Context, cancel context.CancelFunc) (*AppState, error) {
	self, err := identity.FromToken(config.Conf.BACKEND.Token)
	if err != nil {
		return nil, err
	}
	if self.Expired() {
		return nil, fmt.Errorf("access token is expired, refresh it before starting the agent")
	}

	var rdb *redis.Client
	if config.Conf.DATABASE.Redis.Enabled {
		rAddr := config.Conf.DATABASE.Redis.Addr
		rPass := config.Conf.DATABASE.Redis.Password

		rdb, err = InitRedis(rAddr, rPass, 0)
		if err != nil {
			return nil, err
		}
	}

	return &AppState{
		Ctx:      ctx,
		Cancel:   cancel,
		Redis:    rdb,
		Identity: self,
	}, nil
}

func (a *AppState) Close() {
	if a.Redis != nil {
		log.Info().Msg("Closing Redis client...")
		if err := a.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis client")
		}
	}
}
