package tests

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/garagehub/funnel-api/internal/config"
	"github.com/garagehub/funnel-api/internal/logging"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// TestContainers holds references to test containers
type TestContainers struct {
	RedisContainer *redis.RedisContainer
	Cleanup        func()
}

// SetupTestContainers starts a Redis container and points the app
// configuration at it
func SetupTestContainers(t *testing.T) *TestContainers {
	ctx := context.Background()

	redisContainer, err := redis.Run(ctx,
		"redis:7-alpine",
	)
	require.NoError(t, err, "Failed to start Redis container")

	redisURI, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get Redis connection string")

	require.NoError(t, logging.InitLogger())

	if config.AppConfig == nil {
		config.AppConfig = &config.Config{}
	}

	config.AppConfig.RedisURI = strings.TrimPrefix(redisURI, "redis://")
	config.AppConfig.RedisPassword = ""
	config.AppConfig.RedisDB = 0
	config.AppConfig.SessionTTL = time.Hour
	config.AppConfig.CatalogCacheTTL = 15 * time.Minute
	config.AppConfig.OTPProvider = config.OTPProviderTwoFactor
	config.AppConfig.OTPResendCooldown = 30 * time.Second
	config.AppConfig.OTPSessionTTL = 10 * time.Minute
	config.AppConfig.DefaultCountryCode = "91"
	config.AppConfig.SubmitMode = config.SubmitModeAwait
	config.AppConfig.Environment = "test"

	config.InitRedis()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, config.Redis.Ping(pingCtx).Err(), "Failed to ping Redis container")

	return &TestContainers{
		RedisContainer: redisContainer,
		Cleanup: func() {
			if err := redisContainer.Terminate(ctx); err != nil {
				t.Logf("Failed to terminate Redis container: %v", err)
			}
		},
	}
}
