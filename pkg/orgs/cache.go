package orgs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/platinummonkey/warden/pkg/observability"
)

// CachedMembershipStore layers an in-process LRU (L1) and Redis (L2) over a
// MembershipStore. Membership facts change rarely relative to how often they
// are read, so a short TTL keeps staleness bounded while absorbing the
// per-request lookups.
//
// Cache errors are never fatal: a failed read falls through to the
// underlying store, a failed write is dropped.
type CachedMembershipStore struct {
	store   MembershipStore
	l1      *lru.Cache[string, []byte]
	redis   *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedMembershipStore creates the two-tier cache. redisClient may be nil
// to run with L1 only. metrics may be nil.
func NewCachedMembershipStore(store MembershipStore, redisClient *redis.Client, l1Size int, ttl time.Duration, metrics *observability.Metrics) (*CachedMembershipStore, error) {
	if l1Size <= 0 {
		l1Size = 4096
	}
	l1, err := lru.New[string, []byte](l1Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership L1 cache: %w", err)
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedMembershipStore{
		store:   store,
		l1:      l1,
		redis:   redisClient,
		ttl:     ttl,
		metrics: metrics,
	}, nil
}

// FindMember returns the cached membership row, loading through on miss.
// "Not found" is not cached; callers on hot not-found paths fall back to
// organizationless access anyway.
func (c *CachedMembershipStore) FindMember(ctx context.Context, orgID, userID int64) (*Member, error) {
	key := fmt.Sprintf("warden:member:%d:%d", orgID, userID)

	var member Member
	if ok := c.get(ctx, key, &member); ok {
		return &member, nil
	}

	loaded, err := c.store.FindMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, loaded)
	return loaded, nil
}

// TeamMemberships returns the cached team links for a member.
func (c *CachedMembershipStore) TeamMemberships(ctx context.Context, memberID int64) ([]TeamMembership, error) {
	key := fmt.Sprintf("warden:member_teams:%d", memberID)

	var memberships []TeamMembership
	if ok := c.get(ctx, key, &memberships); ok {
		return memberships, nil
	}

	loaded, err := c.store.TeamMemberships(ctx, memberID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, loaded)
	return loaded, nil
}

// ProjectIDsForTeams returns the cached project reachability for a team set.
func (c *CachedMembershipStore) ProjectIDsForTeams(ctx context.Context, teamIDs []int64) ([]int64, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	key := "warden:team_projects:" + joinIDs(teamIDs)

	var ids []int64
	if ok := c.get(ctx, key, &ids); ok {
		return ids, nil
	}

	loaded, err := c.store.ProjectIDsForTeams(ctx, teamIDs)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, loaded)
	return loaded, nil
}

// HasRoleInOrganization is an existence check; always reads through.
func (c *CachedMembershipStore) HasRoleInOrganization(ctx context.Context, orgID, userID int64, role string) (bool, error) {
	return c.store.HasRoleInOrganization(ctx, orgID, userID, role)
}

// AccessibleTeamIDs returns the cached active team ids for an org.
func (c *CachedMembershipStore) AccessibleTeamIDs(ctx context.Context, orgID int64) ([]int64, error) {
	key := fmt.Sprintf("warden:org_teams:%d", orgID)

	var ids []int64
	if ok := c.get(ctx, key, &ids); ok {
		return ids, nil
	}

	loaded, err := c.store.AccessibleTeamIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, loaded)
	return loaded, nil
}

// AccessibleProjectIDs returns the cached active project ids for an org.
func (c *CachedMembershipStore) AccessibleProjectIDs(ctx context.Context, orgID int64) ([]int64, error) {
	key := fmt.Sprintf("warden:org_projects:%d", orgID)

	var ids []int64
	if ok := c.get(ctx, key, &ids); ok {
		return ids, nil
	}

	loaded, err := c.store.AccessibleProjectIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, loaded)
	return loaded, nil
}

// Invalidate drops the cached membership for (org, user) from both tiers.
// Call after membership mutations.
func (c *CachedMembershipStore) Invalidate(ctx context.Context, orgID, userID int64) {
	key := fmt.Sprintf("warden:member:%d:%d", orgID, userID)
	c.l1.Remove(key)
	if c.redis != nil {
		c.redis.Del(ctx, key)
	}
}

func (c *CachedMembershipStore) get(ctx context.Context, key string, out interface{}) bool {
	if data, ok := c.l1.Get(key); ok {
		if err := json.Unmarshal(data, out); err == nil {
			c.hit("l1")
			return true
		}
		c.l1.Remove(key)
	}

	if c.redis != nil {
		data, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			if err := json.Unmarshal(data, out); err == nil {
				c.hit("l2")
				c.l1.Add(key, data)
				return true
			}
		}
	}

	c.miss()
	return false
}

func (c *CachedMembershipStore) put(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.l1.Add(key, data)
	if c.redis != nil {
		c.redis.Set(ctx, key, data, c.ttl)
	}
}

func (c *CachedMembershipStore) hit(tier string) {
	if c.metrics != nil {
		c.metrics.SnapshotCacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

func (c *CachedMembershipStore) miss() {
	if c.metrics != nil {
		c.metrics.SnapshotCacheMissesTotal.WithLabelValues("all").Inc()
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
