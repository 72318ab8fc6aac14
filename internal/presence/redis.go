package presence

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "pantheon/pkg/domain"
)

var resolveDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "pantheon_presence_resolve_duration_ms",
	Help:    "Latency of display name resolution in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	// Redis key prefix for display names, written by the session gateway.
	nameKeyPrefix = "presence:name:"
	// Redis set holding the IDs of connected players.
	onlineKey = "presence:online"
)

// Redis is the distributed implementation of Resolver. It reads keys
// maintained by the external session gateway; this core never writes them.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a redis-backed resolver.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) DisplayName(ctx context.Context, player id.PlayerID) string {
	start := time.Now()
	defer func() {
		resolveDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	name, err := r.client.Get(ctx, nameKeyPrefix+string(player)).Result()
	if errors.Is(err, redis.Nil) || err != nil || name == "" {
		return string(player)
	}
	return name
}

func (r *Redis) Online(ctx context.Context) []id.PlayerID {
	members, err := r.client.SMembers(ctx, onlineKey).Result()
	if err != nil {
		return nil
	}
	players := make([]id.PlayerID, 0, len(members))
	for _, m := range members {
		players = append(players, id.PlayerID(m))
	}
	return players
}
