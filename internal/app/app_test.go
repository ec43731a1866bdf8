package app

import (
	"testing"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/config"
	"github.com/MrSnakeDoc/smartmark/internal/connect"
)

func TestRetryOptionsFollowConfig(t *testing.T) {
	cfg := &config.Config{
		RedisConnectTimeout:    11 * time.Second,
		RedisRetryInterval:     time.Second,
		RedisMaxWait:           3 * time.Second,
		RedisPingTimeout:       2 * time.Second,
		RedisWarnThreshold:     4,
		PostgresConnectTimeout: 45 * time.Second,
		PostgresRetryInterval:  500 * time.Millisecond,
		PostgresMaxWait:        7 * time.Second,
		PostgresPingTimeout:    time.Second,
		PostgresWarnThreshold:  9,
	}

	tests := []struct {
		name string
		got  connect.Options
		want connect.Options
	}{
		{"redis", redisRetry(cfg), connect.Options{
			ConnectTimeout: 11 * time.Second, RetryInterval: time.Second, MaxWait: 3 * time.Second,
			PingTimeout: 2 * time.Second, WarnThreshold: 4,
		}},
		{"postgres", postgresRetry(cfg), connect.Options{
			ConnectTimeout: 45 * time.Second, RetryInterval: 500 * time.Millisecond, MaxWait: 7 * time.Second,
			PingTimeout: time.Second, WarnThreshold: 9,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("retry options = %+v, want %+v", tt.got, tt.want)
			}
			if err := tt.got.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}
