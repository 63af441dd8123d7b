// Package cache stores the denormalized semaforo pair in Redis for
// deployments that keep the organization table read-only.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"semaforo/internal/semaforo"
	id "semaforo/pkg/domain"
	"semaforo/pkg/platform/sentinel"
)

const (
	keyPrefix     = "semaforo:org:"
	fieldSemaforo = "semaforo"
	fieldDetalles = "detalles"
)

// RedisStore keeps one hash per organization with the semaforo and detalles
// fields. HSET writes both fields atomically.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func key(orgID id.OrganizationID) string {
	return keyPrefix + orgID.String()
}

func (s *RedisStore) Save(ctx context.Context, orgID id.OrganizationID, status semaforo.CachedStatus) error {
	detalles, err := json.Marshal(status.Detalles)
	if err != nil {
		return fmt.Errorf("marshal detalles: %w", err)
	}
	err = s.client.HSet(ctx, key(orgID),
		fieldSemaforo, string(status.Semaforo),
		fieldDetalles, string(detalles),
	).Err()
	if err != nil {
		return fmt.Errorf("save semaforo: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, orgID id.OrganizationID) (*semaforo.CachedStatus, error) {
	fields, err := s.client.HGetAll(ctx, key(orgID)).Result()
	if err != nil {
		return nil, fmt.Errorf("find semaforo: %w", err)
	}
	return decode(fields)
}

// FindMany reads all hashes in one pipeline round trip.
func (s *RedisStore) FindMany(ctx context.Context, orgIDs []id.OrganizationID) (map[id.OrganizationID]semaforo.CachedStatus, error) {
	out := make(map[id.OrganizationID]semaforo.CachedStatus, len(orgIDs))
	if len(orgIDs) == 0 {
		return out, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(orgIDs))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, orgID := range orgIDs {
			cmds[i] = pipe.HGetAll(ctx, key(orgID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find semaforos: %w", err)
	}

	for i, cmd := range cmds {
		cached, err := decode(cmd.Val())
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out[orgIDs[i]] = *cached
	}
	return out, nil
}

func decode(fields map[string]string) (*semaforo.CachedStatus, error) {
	status, ok := fields[fieldSemaforo]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cached := semaforo.CachedStatus{Semaforo: semaforo.Status(status)}
	if err := json.Unmarshal([]byte(fields[fieldDetalles]), &cached.Detalles); err != nil {
		return nil, fmt.Errorf("decode detalles: %w", err)
	}
	return &cached, nil
}
