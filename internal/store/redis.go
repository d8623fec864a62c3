package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/therealtin05/SmartParking/internal/domain"
)

const (
	sessionTTL     = 24 * time.Hour
	detectionsKey  = "sp:detections"
	detectionsKeep = 500
)

func sessionKey(id string) string { return "sp:sess:" + id }

func ownerKey(owner string) string { return "sp:owner:" + owner }

func roomIndexKey(room domain.RoomID) string { return "sp:room:" + string(room) }

// RedisStore keeps session records as hashes with a TTL, an owner-scoped id
// set for listing, and a room index so the relay can notify by room id alone.
// Detections live in a capped list of JSON documents.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) CreateSession(ctx context.Context, owner string, room domain.RoomID) (*domain.SessionRecord, error) {
	now := time.Now()
	rec := &domain.SessionRecord{
		ID:        uuid.NewString(),
		Owner:     owner,
		Room:      room,
		Status:    domain.SessionCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}

	key := sessionKey(rec.ID)
	data := map[string]any{
		"owner":   rec.Owner,
		"room":    string(rec.Room),
		"status":  string(rec.Status),
		"created": strconv.FormatInt(now.Unix(), 10),
		"updated": strconv.FormatInt(now.Unix(), 10),
	}
	if err := s.rdb.HSet(ctx, key, data).Err(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.rdb.Expire(ctx, key, sessionTTL).Err(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.rdb.SAdd(ctx, ownerKey(owner), rec.ID).Err(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.rdb.Set(ctx, roomIndexKey(room), rec.ID, sessionTTL).Err(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) UpdateSessionStatus(ctx context.Context, room domain.RoomID, status domain.SessionStatus) error {
	id, err := s.rdb.Get(ctx, roomIndexKey(room)).Result()
	if errors.Is(err, redis.Nil) {
		// No session registered for this room; the relay does not care.
		return nil
	}
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	data := map[string]any{
		"status":  string(status),
		"updated": strconv.FormatInt(time.Now().Unix(), 10),
	}
	if err := s.rdb.HSet(ctx, sessionKey(id), data).Err(); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

func (s *RedisStore) ListSessionsByOwner(ctx context.Context, owner string) ([]domain.SessionRecord, error) {
	ids, err := s.rdb.SMembers(ctx, ownerKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]domain.SessionRecord, 0, len(ids))
	for _, id := range ids {
		fields, err := s.rdb.HGetAll(ctx, sessionKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		if len(fields) == 0 {
			// Hash expired; drop the stale id from the owner set.
			if err := s.rdb.SRem(ctx, ownerKey(owner), id).Err(); err != nil {
				log.Warn().Err(err).Str("module", "store.redis").Str("id", id).Msg("failed to prune stale session id")
			}
			continue
		}
		out = append(out, sessionFromHash(id, fields))
	}
	return out, nil
}

func sessionFromHash(id string, fields map[string]string) domain.SessionRecord {
	created, _ := strconv.ParseInt(fields["created"], 10, 64)
	updated, _ := strconv.ParseInt(fields["updated"], 10, 64)
	return domain.SessionRecord{
		ID:        id,
		Owner:     fields["owner"],
		Room:      domain.RoomID(fields["room"]),
		Status:    domain.SessionStatus(fields["status"]),
		CreatedAt: time.Unix(created, 0),
		UpdatedAt: time.Unix(updated, 0),
	}
}

func (s *RedisStore) SaveDetection(ctx context.Context, rec *domain.DetectionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.DetectedAt.IsZero() {
		rec.DetectedAt = time.Now()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("save detection: %w", err)
	}
	if err := s.rdb.LPush(ctx, detectionsKey, b).Err(); err != nil {
		return fmt.Errorf("save detection: %w", err)
	}
	if err := s.rdb.LTrim(ctx, detectionsKey, 0, detectionsKeep-1).Err(); err != nil {
		return fmt.Errorf("save detection: %w", err)
	}
	return nil
}

func (s *RedisStore) ListDetections(ctx context.Context, limit int64) ([]domain.DetectionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := s.rdb.LRange(ctx, detectionsKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	out := make([]domain.DetectionRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.DetectionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			log.Warn().Err(err).Str("module", "store.redis").Msg("skipping corrupt detection record")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
