package middlewares

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"gorm.io/gorm"
)

const RefreshCookieName = "refresh_token"

// SessionStore keeps refresh tokens. Lookup fails with an Auth error for unknown or expired tokens.
type SessionStore interface {
	Create(ctx context.Context, userId int, ttl time.Duration) (token string, expiresAt time.Time, err error)
	Lookup(ctx context.Context, token string) (userId int, err error)
	Revoke(ctx context.Context, token string) error
}

// NewSessionStore prefers redis and falls back to the database.
func NewSessionStore(db *gorm.DB, r *config.Redis) SessionStore {
	if r != nil && r.Client != nil {
		return &RedisSessionStore{redis: r}
	}
	return &DBSessionStore{db: db}
}

/* redis */

type RedisSessionStore struct {
	redis *config.Redis
}

func NewRedisSessionStore(r *config.Redis) *RedisSessionStore {
	return &RedisSessionStore{redis: r}
}

func sessionKey(token string) string {
	return "Session:" + token
}

type redisSession struct {
	UserId    int       `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *RedisSessionStore) Create(ctx context.Context, userId int, ttl time.Duration) (string, time.Time, error) {
	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(ttl)
	if err := s.redis.SetObject(ctx, sessionKey(token), redisSession{UserId: userId, ExpiresAt: expiresAt}, ttl); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (s *RedisSessionStore) Lookup(ctx context.Context, token string) (int, error) {
	if token == "" {
		return 0, utils.AuthError("missing refresh token")
	}
	var session redisSession
	found, err := s.redis.GetObject(ctx, sessionKey(token), &session)
	if err != nil {
		return 0, err
	}
	if !found || session.UserId <= 0 || time.Now().UTC().After(session.ExpiresAt) {
		return 0, utils.AuthError("invalid refresh token")
	}
	return session.UserId, nil
}

func (s *RedisSessionStore) Revoke(ctx context.Context, token string) error {
	return s.redis.RemoveKey(ctx, sessionKey(token))
}

/* database */

type DBSessionStore struct {
	db *gorm.DB
}

func NewDBSessionStore(db *gorm.DB) *DBSessionStore {
	return &DBSessionStore{db: db}
}

func (s *DBSessionStore) Create(ctx context.Context, userId int, ttl time.Duration) (string, time.Time, error) {
	session := models.Session{
		Token:     uuid.NewString(),
		UserId:    userId,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return "", time.Time{}, err
	}
	return session.Token, session.ExpiresAt, nil
}

func (s *DBSessionStore) Lookup(ctx context.Context, token string) (int, error) {
	if token == "" {
		return 0, utils.AuthError("missing refresh token")
	}
	var session models.Session
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.AuthError("invalid refresh token")
		}
		return 0, err
	}
	if !time.Now().UTC().Before(session.ExpiresAt) {
		_ = s.Revoke(ctx, token)
		return 0, utils.AuthError("refresh token expired")
	}
	return session.UserId, nil
}

func (s *DBSessionStore) Revoke(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
}
