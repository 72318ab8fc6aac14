package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	RedisURL      string
	PostgresDSN   string
	KafkaBrokers  []string
	KafkaTopic    string
	SweepInterval time.Duration
}

// InviteTTL is the fixed validity window for civilization invites.
var InviteTTL = 7 * 24 * time.Hour

// BreakGracePeriod is the warning window between scheduling a treaty break
// and the sweep actually removing the relationship.
var BreakGracePeriod = 24 * time.Hour

// ProposalTTL is the validity window for diplomatic proposals.
var ProposalTTL = 7 * 24 * time.Hour

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("PANTHEON_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	sweep := 5 * time.Second
	if raw := os.Getenv("PANTHEON_SWEEP_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			sweep = parsed
		}
	}

	var brokers []string
	if raw := os.Getenv("PANTHEON_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}
	topic := os.Getenv("PANTHEON_KAFKA_TOPIC")
	if topic == "" {
		topic = "pantheon.domain-events"
	}

	return Server{
		Addr:          addr,
		RedisURL:      os.Getenv("PANTHEON_REDIS_URL"),
		PostgresDSN:   os.Getenv("PANTHEON_POSTGRES_DSN"),
		KafkaBrokers:  brokers,
		KafkaTopic:    topic,
		SweepInterval: sweep,
	}
}
