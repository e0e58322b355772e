package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/openbiome/coral/pkg/observability"
	"github.com/openbiome/coral/pkg/permission"
)

// CachedStore wraps a Store with a two-tier read cache: an in-process LRU
// in front of Redis. Project and group reads are the hot path of every
// access decision, so they are cached; grant mutations invalidate the
// affected entries. The underlying store stays the source of truth.
type CachedStore struct {
	store   Store
	redis   *redis.Client
	l1      *lru.Cache[string, []byte]
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedStore creates a cache layer over store. l1Size is the number
// of in-process entries.
func NewCachedStore(store Store, redisAddr, redisPassword string, l1Size int, ttl time.Duration) (*CachedStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       0,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	l1, err := lru.New[string, []byte](l1Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create l1 cache: %w", err)
	}

	return &CachedStore{
		store: store,
		redis: client,
		l1:    l1,
		ttl:   ttl,
	}, nil
}

// SetMetrics attaches cache hit/miss counters.
func (c *CachedStore) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// observe counts one cache lookup.
func (c *CachedStore) observe(record string, hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHitsTotal.WithLabelValues(record).Inc()
		return
	}
	c.metrics.CacheMissesTotal.WithLabelValues(record).Inc()
}

// observeMutation counts one grant mutation.
func (c *CachedStore) observeMutation(resource, operation string) {
	if c.metrics == nil {
		return
	}
	c.metrics.GrantMutationsTotal.WithLabelValues(resource, operation).Inc()
}

// Close closes the Redis connection.
func (c *CachedStore) Close() error {
	return c.redis.Close()
}

func projectKey(id int64) string { return fmt.Sprintf("catalog:project:%d", id) }
func groupKey(id int64) string   { return fmt.Sprintf("catalog:group:%d", id) }
func sampleKey(id int64) string  { return fmt.Sprintf("catalog:sample:%d", id) }

// get looks up a key in L1, then Redis, unmarshalling into dest. Returns
// false on a miss at both tiers.
func (c *CachedStore) get(ctx context.Context, key string, dest interface{}) bool {
	if data, ok := c.l1.Get(key); ok {
		if json.Unmarshal(data, dest) == nil {
			return true
		}
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if json.Unmarshal(data, dest) != nil {
		return false
	}
	c.l1.Add(key, data)
	return true
}

// set stores a value in both tiers. Cache write failures are ignored; the
// next read falls through to the store.
func (c *CachedStore) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.l1.Add(key, data)
	c.redis.Set(ctx, key, data, c.ttl)
}

// invalidate drops keys from both tiers.
func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		c.l1.Remove(key)
	}
	if len(keys) > 0 {
		c.redis.Del(ctx, keys...)
	}
}

// GetProject returns a cached project or falls through to the store.
func (c *CachedStore) GetProject(ctx context.Context, id int64) (*Project, error) {
	var cached Project
	if c.get(ctx, projectKey(id), &cached) {
		c.observe("project", true)
		return &cached, nil
	}
	c.observe("project", false)

	p, err := c.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, projectKey(id), p)
	return p, nil
}

// GetProjectGroup returns a cached group or falls through to the store.
func (c *CachedStore) GetProjectGroup(ctx context.Context, id int64) (*ProjectGroup, error) {
	var cached ProjectGroup
	if c.get(ctx, groupKey(id), &cached) {
		c.observe("project_group", true)
		return &cached, nil
	}
	c.observe("project_group", false)

	pg, err := c.store.GetProjectGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, groupKey(id), pg)
	return pg, nil
}

// GetSample returns a cached sample or falls through to the store.
func (c *CachedStore) GetSample(ctx context.Context, id int64) (*Sample, error) {
	var cached Sample
	if c.get(ctx, sampleKey(id), &cached) {
		c.observe("sample", true)
		return &cached, nil
	}
	c.observe("sample", false)

	sample, err := c.store.GetSample(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, sampleKey(id), sample)
	return sample, nil
}

// GetUser delegates to the store.
func (c *CachedStore) GetUser(ctx context.Context, id int64) (*User, error) {
	return c.store.GetUser(ctx, id)
}

// CreateProject delegates to the store.
func (c *CachedStore) CreateProject(ctx context.Context, p *Project, creatorID int64) error {
	return c.store.CreateProject(ctx, p, creatorID)
}

// DeleteProject deletes the project and invalidates its cache entry.
func (c *CachedStore) DeleteProject(ctx context.Context, id int64) error {
	if err := c.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, projectKey(id))
	return nil
}

// ReplaceProjectGrant replaces the grant and invalidates the project.
func (c *CachedStore) ReplaceProjectGrant(ctx context.Context, projectID, userID int64, level permission.Level) error {
	if err := c.store.ReplaceProjectGrant(ctx, projectID, userID, level); err != nil {
		return err
	}
	c.observeMutation("project", "replace")
	c.invalidate(ctx, projectKey(projectID))
	return nil
}

// RemoveProjectGrant removes the grant and invalidates the project.
func (c *CachedStore) RemoveProjectGrant(ctx context.Context, projectID, userID int64) error {
	if err := c.store.RemoveProjectGrant(ctx, projectID, userID); err != nil {
		return err
	}
	c.observeMutation("project", "revoke")
	c.invalidate(ctx, projectKey(projectID))
	return nil
}

// ReplaceGroupGrant replaces the grant and invalidates the group plus
// every project that inherits access through it.
func (c *CachedStore) ReplaceGroupGrant(ctx context.Context, groupID, userID int64, level permission.Level) error {
	if err := c.store.ReplaceGroupGrant(ctx, groupID, userID, level); err != nil {
		return err
	}
	c.observeMutation("project_group", "replace")
	c.invalidateGroup(ctx, groupID)
	return nil
}

// RemoveGroupGrant removes the grant and invalidates the group plus every
// project that inherits access through it.
func (c *CachedStore) RemoveGroupGrant(ctx context.Context, groupID, userID int64) error {
	if err := c.store.RemoveGroupGrant(ctx, groupID, userID); err != nil {
		return err
	}
	c.observeMutation("project_group", "revoke")
	c.invalidateGroup(ctx, groupID)
	return nil
}

// invalidateGroup drops the group entry and the entry of every member
// project, since project reads embed the group's grants.
func (c *CachedStore) invalidateGroup(ctx context.Context, groupID int64) {
	keys := []string{groupKey(groupID)}
	if projects, err := c.store.ListGroupProjects(ctx, groupID); err == nil {
		for _, p := range projects {
			keys = append(keys, projectKey(p.ID))
		}
	}
	c.invalidate(ctx, keys...)
}

// ListGroupProjects delegates to the store.
func (c *CachedStore) ListGroupProjects(ctx context.Context, groupID int64) ([]*Project, error) {
	return c.store.ListGroupProjects(ctx, groupID)
}

// ListProjectFiles delegates to the store.
func (c *CachedStore) ListProjectFiles(ctx context.Context, projectID int64) ([]File, error) {
	return c.store.ListProjectFiles(ctx, projectID)
}

// ListProjectGrants delegates to the store.
func (c *CachedStore) ListProjectGrants(ctx context.Context) ([]GrantRef, error) {
	return c.store.ListProjectGrants(ctx)
}
