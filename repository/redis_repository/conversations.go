package redis_repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doganyilmaz/profile-assistant/models"
)

const (
	conversationKeyPrefix = "conv:"

	// Sessions idle for longer than this are expired by redis.
	conversationTTL = 24 * time.Hour

	// Hard cap per session so a chatty client cannot grow a key unbounded.
	maxTurnsPerSession = 200
)

// redisConversationRepository implements ConversationRepository on a
// redis list per (profile, session) pair.
type redisConversationRepository struct {
	client *redis.Client
}

func NewRedisConversationRepository(client *redis.Client) *redisConversationRepository {
	return &redisConversationRepository{client: client}
}

func conversationKey(profileID int64, sessionID string) string {
	return fmt.Sprintf("%s%d:%s", conversationKeyPrefix, profileID, sessionID)
}

func (r *redisConversationRepository) AppendTurn(ctx context.Context, profileID int64, sessionID string, turn models.ConversationTurn) error {
	if sessionID == "" {
		return fmt.Errorf("session id is empty")
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}

	key := conversationKey(profileID, sessionID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxTurnsPerSession, -1)
	pipe.Expire(ctx, key, conversationTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisConversationRepository) History(ctx context.Context, profileID int64, sessionID string, limit int) ([]models.ConversationTurn, error) {
	key := conversationKey(profileID, sessionID)
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	vals, err := r.client.LRange(ctx, key, start, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	turns := make([]models.ConversationTurn, 0, len(vals))
	for _, val := range vals {
		var turn models.ConversationTurn
		if err := json.Unmarshal([]byte(val), &turn); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (r *redisConversationRepository) Clear(ctx context.Context, profileID int64, sessionID string) error {
	return r.client.Del(ctx, conversationKey(profileID, sessionID)).Err()
}
