package refdata

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	redisclient "credentia/internal/platform/redis"
	id "credentia/pkg/domain"
)

// CachedStore fronts a Store with a Redis cache. Reference data changes
// rarely; a short TTL keeps provisioning changes visible without hammering
// the database on every process creation. Cache failures fall through to the
// inner store.
type CachedStore struct {
	inner  Store
	client *redisclient.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps the inner store with a Redis cache.
func NewCachedStore(inner Store, client *redisclient.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func typesKey(orgID id.OrgID) string {
	return "refdata:doctypes:" + orgID.String()
}

func settingsKey(orgID id.OrgID) string {
	return "refdata:settings:" + orgID.String()
}

func (s *CachedStore) ActiveDocumentTypes(ctx context.Context, orgID id.OrgID) ([]DocumentType, error) {
	key := typesKey(orgID)
	if cached, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var types []DocumentType
		if err := json.Unmarshal(cached, &types); err == nil {
			return types, nil
		}
	} else if err != goredis.Nil {
		s.logger.WarnContext(ctx, "refdata cache read failed", "key", key, "error", err)
	}

	types, err := s.inner.ActiveDocumentTypes(ctx, orgID)
	if err != nil {
		return nil, err
	}
	s.put(ctx, key, types)
	return types, nil
}

func (s *CachedStore) Settings(ctx context.Context, orgID id.OrgID) (*OrgSettings, error) {
	key := settingsKey(orgID)
	if cached, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var settings OrgSettings
		if err := json.Unmarshal(cached, &settings); err == nil {
			return &settings, nil
		}
	} else if err != goredis.Nil {
		s.logger.WarnContext(ctx, "refdata cache read failed", "key", key, "error", err)
	}

	settings, err := s.inner.Settings(ctx, orgID)
	if err != nil {
		return nil, err
	}
	s.put(ctx, key, settings)
	return settings, nil
}

// Invalidate drops the org's cached entries after a provisioning change.
func (s *CachedStore) Invalidate(ctx context.Context, orgID id.OrgID) {
	if err := s.client.Del(ctx, typesKey(orgID), settingsKey(orgID)).Err(); err != nil {
		s.logger.WarnContext(ctx, "refdata cache invalidation failed", "org_id", orgID.String(), "error", err)
	}
}

func (s *CachedStore) put(ctx context.Context, key string, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "refdata cache write failed", "key", key, "error", err)
	}
}
