package repository

import (
	"context"
	"fmt"

	"github.com/doganyilmaz/profile-assistant/config"
	"github.com/doganyilmaz/profile-assistant/models"
	"github.com/doganyilmaz/profile-assistant/repository/redis_repository"
)

// ConversationRepository stores per-session chat history so follow-up
// questions can be answered with prior turns as context.
type ConversationRepository interface {
	AppendTurn(ctx context.Context, profileID int64, sessionID string, turn models.ConversationTurn) error
	History(ctx context.Context, profileID int64, sessionID string, limit int) ([]models.ConversationTurn, error)
	Clear(ctx context.Context, profileID int64, sessionID string) error
}

type RepoType string

const (
	RepoTypeRedis RepoType = "redis"
)

func NewConversationRepository(ctx context.Context, t RepoType, cfg config.RedisConfig) (ConversationRepository, error) {
	switch t {
	case RepoTypeRedis:
		c, err := redis_repository.Conn(ctx, cfg.Host, cfg.Port, cfg.Password, cfg.DB, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return redis_repository.NewRedisConversationRepository(c), nil
	}
	return nil, fmt.Errorf("invalid repository type: %s", t)
}
