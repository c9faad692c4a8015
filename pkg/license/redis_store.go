package license

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisRecordStore implements TokenRecordStore over Redis, grounded on
// the teacher package's RedisStore (pkg/token/redis_store.go) and
// RedisConfigStore (pkg/resources/store.go): one JSON blob per key,
// prefixed, with the client handling its own connection pooling and
// retries.
type RedisRecordStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *logrus.Logger
}

// RedisStoreConfig configures a RedisRecordStore.
type RedisStoreConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Logger    *logrus.Logger
}

// NewRedisRecordStore dials Redis and verifies connectivity before
// returning, matching NewRedisStore's fail-fast behavior in the teacher
// package.
func NewRedisRecordStore(cfg RedisStoreConfig) (*RedisRecordStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis record store: no address configured")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "alk:record:"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis record store: failed to connect: %w", err)
	}

	return &RedisRecordStore{client: client, keyPrefix: prefix, logger: logger}, nil
}

func (s *RedisRecordStore) key(token string) string {
	return s.keyPrefix + token
}

// redisRecord is the JSON-on-the-wire shape; TokenRecord's map fields
// become slices so they survive JSON round-tripping predictably.
type redisRecord struct {
	Token               string   `json:"token"`
	ClientID            uint32   `json:"client_id"`
	IsActive            bool     `json:"is_active"`
	RecordExpiresAt     *uint32  `json:"record_expires_at,omitempty"`
	UsageCount          uint32   `json:"usage_count"`
	LastUsed            *uint32  `json:"last_used,omitempty"`
	HardwareFingerprint *string  `json:"hardware_fingerprint,omitempty"`
	IPAllowlist         []string `json:"ip_allowlist,omitempty"`
	HostAllowlist       []string `json:"host_allowlist,omitempty"`
}

func toRedisRecord(r TokenRecord) redisRecord {
	out := redisRecord{
		Token:               r.Token,
		ClientID:            r.ClientID,
		IsActive:            r.IsActive,
		RecordExpiresAt:     r.RecordExpiresAt,
		UsageCount:          r.UsageCount,
		LastUsed:            r.LastUsed,
		HardwareFingerprint: r.HardwareFingerprint,
	}
	for ip := range r.IPAllowlist {
		out.IPAllowlist = append(out.IPAllowlist, ip)
	}
	for h := range r.HostAllowlist {
		out.HostAllowlist = append(out.HostAllowlist, h)
	}
	return out
}

func fromRedisRecord(rr redisRecord) TokenRecord {
	rec := TokenRecord{
		Token:               rr.Token,
		ClientID:            rr.ClientID,
		IsActive:            rr.IsActive,
		RecordExpiresAt:     rr.RecordExpiresAt,
		UsageCount:          rr.UsageCount,
		LastUsed:            rr.LastUsed,
		HardwareFingerprint: rr.HardwareFingerprint,
	}
	if len(rr.IPAllowlist) > 0 {
		rec.IPAllowlist = make(map[string]struct{}, len(rr.IPAllowlist))
		for _, ip := range rr.IPAllowlist {
			rec.IPAllowlist[ip] = struct{}{}
		}
	}
	if len(rr.HostAllowlist) > 0 {
		rec.HostAllowlist = make(map[string]struct{}, len(rr.HostAllowlist))
		for _, h := range rr.HostAllowlist {
			rec.HostAllowlist[h] = struct{}{}
		}
	}
	return rec
}

func (s *RedisRecordStore) Find(ctx context.Context, token string) (TokenRecord, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err == redis.Nil {
		return TokenRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return TokenRecord{}, fmt.Errorf("redis record store: get: %w", err)
	}

	var rr redisRecord
	if err := json.Unmarshal(data, &rr); err != nil {
		return TokenRecord{}, fmt.Errorf("redis record store: unmarshal: %w", err)
	}
	return fromRedisRecord(rr), nil
}

func (s *RedisRecordStore) Save(ctx context.Context, record TokenRecord) error {
	data, err := json.Marshal(toRedisRecord(record))
	if err != nil {
		return fmt.Errorf("redis record store: marshal: %w", err)
	}
	if err := s.client.Set(ctx, s.key(record.Token), data, 0).Err(); err != nil {
		s.logger.WithError(err).WithField("token_prefix", tokenPrefixOf(record.Token)).Warn("license record save failed")
		return fmt.Errorf("redis record store: set: %w", err)
	}
	return nil
}

func (s *RedisRecordStore) Insert(ctx context.Context, record TokenRecord) error {
	data, err := json.Marshal(toRedisRecord(record))
	if err != nil {
		return fmt.Errorf("redis record store: marshal: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(record.Token), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis record store: setnx: %w", err)
	}
	if !ok {
		return ErrDuplicateToken
	}
	return nil
}

func (s *RedisRecordStore) mutate(ctx context.Context, token string, fn func(*TokenRecord)) error {
	rec, err := s.Find(ctx, token)
	if err != nil {
		return err
	}
	fn(&rec)
	return s.Save(ctx, rec)
}

func (s *RedisRecordStore) UpdateActive(ctx context.Context, token string, active bool) error {
	return s.mutate(ctx, token, func(r *TokenRecord) { r.IsActive = active })
}

func (s *RedisRecordStore) ResetUsage(ctx context.Context, token string) error {
	return s.mutate(ctx, token, func(r *TokenRecord) { r.UsageCount = 0 })
}

func (s *RedisRecordStore) AddIP(ctx context.Context, token string, ip string) error {
	return s.mutate(ctx, token, func(r *TokenRecord) {
		if r.IPAllowlist == nil {
			r.IPAllowlist = make(map[string]struct{})
		}
		r.IPAllowlist[ip] = struct{}{}
	})
}

func (s *RedisRecordStore) AddHost(ctx context.Context, token string, host string) error {
	return s.mutate(ctx, token, func(r *TokenRecord) {
		if r.HostAllowlist == nil {
			r.HostAllowlist = make(map[string]struct{})
		}
		r.HostAllowlist[host] = struct{}{}
	})
}

func (s *RedisRecordStore) Delete(ctx context.Context, token string) error {
	n, err := s.client.Del(ctx, s.key(token)).Result()
	if err != nil {
		return fmt.Errorf("redis record store: del: %w", err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (s *RedisRecordStore) Close() error {
	return s.client.Close()
}

// tokenPrefixOf returns a short, non-sensitive prefix of a token string
// for log correlation without ever logging the full token body.
func tokenPrefixOf(token string) string {
	const n = 12
	if len(token) <= n {
		return token
	}
	return strings.TrimSuffix(token[:n], "-") + "…"
}
