package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence entries expire on their own; a driver app that stops
// heartbeating simply drops out of the online set.
const PresenceTTL = 90 * time.Second

// DriverPresence is the volatile, device-reported side of a driver:
// reachability and position. The authoritative assignment state lives
// in PostgreSQL; a missing presence entry means "unreachable", never
// an error.
type DriverPresence struct {
	DriverID  string    `json:"driver_id"`
	PushToken string    `json:"push_token"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	LastSeen  time.Time `json:"last_seen"`
}

// PresenceStore tracks driver reachability in Redis.
type PresenceStore struct {
	client *redis.Client
}

// NewPresenceStore creates a new PresenceStore.
func NewPresenceStore(client *redis.Client) *PresenceStore {
	return &PresenceStore{client: client}
}

func presenceKey(tenantID, driverID string) string {
	return fmt.Sprintf("tenant:%s:driver:%s:presence", tenantID, driverID)
}

func onlineSetKey(tenantID string) string {
	return fmt.Sprintf("tenant:%s:drivers:online", tenantID)
}

func geoKey(tenantID string) string {
	return fmt.Sprintf("tenant:%s:drivers:geo", tenantID)
}

// SetPresence records a heartbeat: entry JSON, online-set membership
// and geo position, all in one pipeline.
func (s *PresenceStore) SetPresence(ctx context.Context, tenantID string, p *DriverPresence) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, presenceKey(tenantID, p.DriverID), data, PresenceTTL)
	pipe.SAdd(ctx, onlineSetKey(tenantID), p.DriverID)
	pipe.GeoAdd(ctx, geoKey(tenantID), &redis.GeoLocation{
		Name:      p.DriverID,
		Longitude: p.Lng,
		Latitude:  p.Lat,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// SetOffline removes the driver from the online set and geo index.
func (s *PresenceStore) SetOffline(ctx context.Context, tenantID, driverID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, presenceKey(tenantID, driverID))
	pipe.SRem(ctx, onlineSetKey(tenantID), driverID)
	pipe.ZRem(ctx, geoKey(tenantID), driverID)
	_, err := pipe.Exec(ctx)
	return err
}

// GetPresence retrieves a driver's presence entry. Returns nil on a
// miss: an unreachable driver is a normal dispatch outcome.
func (s *PresenceStore) GetPresence(ctx context.Context, tenantID, driverID string) (*DriverPresence, error) {
	data, err := s.client.Get(ctx, presenceKey(tenantID, driverID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var p DriverPresence
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOnlineDrivers returns the presence entries of every currently
// reachable driver in the tenant. Set members whose entries have
// expired are pruned as a side effect.
func (s *PresenceStore) GetOnlineDrivers(ctx context.Context, tenantID string) ([]*DriverPresence, error) {
	ids, err := s.client.SMembers(ctx, onlineSetKey(tenantID)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(ids))
	for _, id := range ids {
		cmds[id] = pipe.Get(ctx, presenceKey(tenantID, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	var online []*DriverPresence
	var stale []any
	for _, id := range ids {
		data, err := cmds[id].Bytes()
		if err != nil {
			stale = append(stale, id)
			continue
		}
		var p DriverPresence
		if err := json.Unmarshal(data, &p); err != nil {
			stale = append(stale, id)
			continue
		}
		online = append(online, &p)
	}

	if len(stale) > 0 {
		s.client.SRem(ctx, onlineSetKey(tenantID), stale...)
	}
	return online, nil
}

// FindNearbyDrivers returns driver IDs within radiusKm of a point,
// nearest first.
func (s *PresenceStore) FindNearbyDrivers(ctx context.Context, tenantID string, lat, lng, radiusKm float64) ([]string, error) {
	results, err := s.client.GeoRadius(ctx, geoKey(tenantID), lng, lat, &redis.GeoRadiusQuery{
		Radius: radiusKm,
		Unit:   "km",
		Sort:   "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Name)
	}
	return ids, nil
}
