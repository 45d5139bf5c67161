package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/garagehub/funnel-api/internal/config"
	"github.com/garagehub/funnel-api/internal/logging"
)

var (
	testInitOnce  sync.Once
	testInitError error
)

// setupTestEnvironment initializes the test environment once for the package
func setupTestEnvironment() {
	testInitOnce.Do(func() {
		if os.Getenv("REDIS_URI") == "" {
			os.Setenv("REDIS_URI", "localhost:6379")
		}
		if os.Getenv("CATALOG_BASE_URL") == "" {
			os.Setenv("CATALOG_BASE_URL", "http://catalog.invalid")
		}
		if os.Getenv("TWO_FACTOR_API_KEY") == "" {
			os.Setenv("TWO_FACTOR_API_KEY", "test-key")
		}

		if err := logging.InitLogger(); err != nil {
			testInitError = err
			return
		}
		if err := config.LoadConfig(); err != nil {
			testInitError = err
			return
		}
		if config.Redis == nil {
			config.InitRedis()
		}
	})
}

// requireRedis skips the test when no Redis is reachable
func requireRedis(t *testing.T) {
	t.Helper()
	setupTestEnvironment()
	if testInitError != nil {
		t.Fatalf("test environment setup failed: %v", testInitError)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := config.Redis.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping test: Redis not available")
	}
}

// cleanupSession removes every Redis key a test session may have created
func cleanupSession(t *testing.T, sid string) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		config.Redis.Del(ctx,
			"funnel_session:"+sid,
			"otp_session:"+sid,
			"otp_cooldown:"+sid,
			"otp_send_lock:"+sid,
			"otp_verify_lock:"+sid,
			"session:"+sid+":car_selection",
			"session:"+sid+":cart",
		)
	})
}

func TestMain(m *testing.M) {
	setupTestEnvironment()
	os.Exit(m.Run())
}
