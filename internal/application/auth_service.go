package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/eventhub/internal/domain/entity"
	repo "github.com/oksasatya/eventhub/internal/domain/repository"
	"github.com/oksasatya/eventhub/pkg/helpers"
	"github.com/oksasatya/eventhub/pkg/mailer"
	mailtpl "github.com/oksasatya/eventhub/pkg/mailer/templates"
)

const sessionTTL = 24 * time.Hour

// AuthService handles signup, login and the Redis-backed session.
type AuthService struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	Logger *logrus.Logger

	// Optional collaborators; nil disables the feature.
	Avatars     ObjectStore
	Jobs        JobPublisher
	Brand       mailtpl.Brand
	MailEnabled bool
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func NewAuthService(repo repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger) *AuthService {
	return &AuthService{Repo: repo, JWT: jwt, Redis: rdb, Logger: logger}
}

func (s *AuthService) log() *logrus.Logger {
	if s.Logger == nil {
		s.Logger = helpers.NewDiscardLogger()
	}
	return s.Logger
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup creates a user with a bcrypt-hashed password.
func (s *AuthService) Signup(ctx context.Context, in SignupInput, meta RequestMeta) (*entity.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || len(in.Password) < helpers.MinPasswordLength || len(in.Password) > helpers.MaxPasswordBytes {
		return nil, ErrInvalidSignup
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{Username: username, Email: email, Password: hash}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.MailEnabled && s.Jobs != nil {
		job := mailer.EmailJob{
			To:       u.Email,
			Template: mailtpl.Welcome,
			Data:     mailtpl.NewWelcomeData(s.Brand, u.Username, u.Email, mailtpl.WithIP(meta.IP), mailtpl.WithTime(time.Now())),
		}
		c, cancel := context.WithTimeout(ctx, publishTimeout)
		if err := s.Jobs.PublishJSON(c, job); err != nil {
			s.log().WithError(err).WithField("user_id", u.ID).Warn("enqueue welcome email failed")
		}
		cancel()
	}
	return u, nil
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repo.ErrNotFound) || (err == nil && u == nil) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *AuthService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.signPair(u.ID, sid)
	if err != nil {
		s.log().WithError(err).WithField("user_id", u.ID).Error("generate tokens failed")
		return TokenPair{}, err
	}

	if s.Redis != nil {
		fields := map[string]any{
			"user_id":    u.ID,
			"username":   u.Username,
			"email":      u.Email,
			"avatar_url": u.AvatarURL,
			"sid":        sid,
			"created_at": nowRFC3339(),
		}
		key := helpers.SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, sessionTTL)
		if _, rErr := pipe.Exec(ctx); rErr != nil {
			s.log().WithError(rErr).WithField("key", key).Error("store session failed")
			return TokenPair{}, fmt.Errorf("store session: %w", rErr)
		}
	}
	return pair, nil
}

func (s *AuthService) signPair(userID, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh validates the refresh token against the live session and rotates
// both the session id and the token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil || u == nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	if s.Redis != nil {
		data, rErr := s.Redis.HGetAll(ctx, helpers.SessionKey(u.ID)).Result()
		if rErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, "", ErrInvalidCredentials
		}
	}

	sid := uuid.NewString()
	pair, err := s.signPair(u.ID, sid)
	if err != nil {
		return TokenPair{}, "", err
	}
	if s.Redis != nil {
		key := helpers.SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"sid":        sid,
			"updated_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, sessionTTL)
		if _, rErr := pipe.Exec(ctx); rErr != nil {
			s.log().WithError(rErr).WithField("key", key).Error("rotate session failed")
			return TokenPair{}, "", fmt.Errorf("rotate session: %w", rErr)
		}
	}
	return pair, u.ID, nil
}

// Logout drops the caller's session; tokens issued for it stop working.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if s.Redis == nil {
		return nil
	}
	return helpers.RedisDel(ctx, s.Redis, helpers.SessionKey(userID))
}

// ResolveCaller turns verified token claims into a Caller. With Redis the
// session hash must exist and carry the same sid; without it the user is
// loaded from the store.
func (s *AuthService) ResolveCaller(ctx context.Context, userID, sessionID string) (Caller, error) {
	if s.Redis != nil {
		data, err := s.Redis.HGetAll(ctx, helpers.SessionKey(userID)).Result()
		if err != nil || len(data) == 0 || data["sid"] != sessionID {
			return Caller{}, ErrInvalidCredentials
		}
		return Caller{ID: data["user_id"], Username: data["username"], Email: data["email"]}, nil
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return Caller{}, ErrInvalidCredentials
	}
	return Caller{ID: u.ID, Username: u.Username, Email: u.Email}, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UploadAvatar stores the image under avatars/<user>/ and saves its URL on the profile.
func (s *AuthService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	if s.Avatars == nil {
		return "", ErrStorageUnavailable
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return "", ErrUserNotFound
	}
	url, err := s.Avatars.Upload(ctx, helpers.AvatarObjectPath(userID, filename), contentType, r)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	u.AvatarURL = url
	if err := s.Repo.Update(ctx, u); err != nil {
		return "", fmt.Errorf("update user: %w", err)
	}
	if s.Redis != nil {
		key := helpers.SessionKey(u.ID)
		if err := s.Redis.HSet(ctx, key, map[string]any{
			"avatar_url": u.AvatarURL,
			"updated_at": nowRFC3339(),
		}).Err(); err != nil {
			s.log().WithError(err).WithField("key", key).Warn("redis session update failed")
		}
	}
	return url, nil
}
