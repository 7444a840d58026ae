package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourusername/netreconcile/internal/models"
)

const (
	decisionApproved = "approved"
	decisionRejected = "rejected"
)

// RedisOptions configures key layout and notifications
type RedisOptions struct {
	KeyPrefix string
	// Channel receives a Notification when a diff first becomes pending.
	// Empty disables publishing.
	Channel     string
	DecisionTTL time.Duration
}

// Notification is published when a diff starts waiting for approval
type Notification struct {
	Key          string `json:"key"`
	Device       string `json:"device"`
	EntityType   string `json:"entity_type"`
	Field        string `json:"field"`
	NetworkValue any    `json:"network_value"`
	SSOTValue    any    `json:"ssot_value"`
	Severity     string `json:"severity"`
	Timestamp    int64  `json:"timestamp"`
}

// RedisStore keeps pending approvals in a hash and each decision in its own
// expiring key
type RedisStore struct {
	client  *redis.Client
	opts    RedisOptions
	pending string
	now     func() time.Time
}

// NewRedisClient connects and pings the server
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a store on an existing client
func NewRedisStore(client *redis.Client, opts RedisOptions) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "netreconcile"
	}
	return &RedisStore{
		client:  client,
		opts:    opts,
		pending: opts.KeyPrefix + ":approvals:pending",
		now:     time.Now,
	}
}

func (s *RedisStore) decisionKey(key string) string {
	return s.opts.KeyPrefix + ":approvals:decision:" + key
}

func (s *RedisStore) RecordPending(ctx context.Context, d models.DiffResult) (bool, error) {
	p := Pending{Key: Key(d), Diff: d, RequestedAt: s.now().UTC()}
	data, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("failed to marshal pending approval: %w", err)
	}
	added, err := s.client.HSetNX(ctx, s.pending, p.Key, data).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record pending approval: %w", err)
	}
	if added && s.opts.Channel != "" {
		if err := s.publish(ctx, p); err != nil {
			return true, err
		}
	}
	return added, nil
}

func (s *RedisStore) publish(ctx context.Context, p Pending) error {
	msg, err := json.Marshal(Notification{
		Key:          p.Key,
		Device:       p.Diff.Device,
		EntityType:   string(p.Diff.EntityType),
		Field:        p.Diff.Field,
		NetworkValue: p.Diff.NetworkValue,
		SSOTValue:    p.Diff.SSOTValue,
		Severity:     string(p.Diff.Severity),
		Timestamp:    p.RequestedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := s.client.Publish(ctx, s.opts.Channel, msg).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (s *RedisStore) ListPending(ctx context.Context) ([]Pending, error) {
	raw, err := s.client.HGetAll(ctx, s.pending).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	out := make([]Pending, 0, len(raw))
	for key, data := range raw {
		var p Pending
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("corrupt pending approval %s: %w", key, err)
		}
		out = append(out, p)
	}
	sortPending(out)
	return out, nil
}

func (s *RedisStore) Decide(ctx context.Context, key string, approve bool) error {
	exists, err := s.client.HExists(ctx, s.pending, key).Result()
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", key, err)
	}
	if !exists {
		return ErrNotFound
	}
	value := decisionRejected
	if approve {
		value = decisionApproved
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.decisionKey(key), value, s.opts.DecisionTTL)
		pipe.HDel(ctx, s.pending, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record decision for %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Decision(ctx context.Context, key string) (bool, bool, error) {
	value, err := s.client.Get(ctx, s.decisionKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to read decision for %s: %w", key, err)
	}
	return value == decisionApproved, true, nil
}

func (s *RedisStore) Forget(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.pending, key)
		pipe.Del(ctx, s.decisionKey(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to forget %s: %w", key, err)
	}
	return nil
}
