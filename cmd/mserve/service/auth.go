package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/medium-stack/mstack/common/cache"
	"github.com/medium-stack/mstack/common/config"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
	"github.com/medium-stack/mstack/common/redis"
)

const userCacheTTL = 5 * time.Minute

// TokenBlacklist is the slice of redis the auth service uses to revoke
// tokens before they expire.
type TokenBlacklist interface {
	Set(ctx context.Context, key, value string, expiry time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

var _ TokenBlacklist = (*redis.Client)(nil)

// AuthService handles registration, login, and token verification.
type AuthService struct {
	store     SessionStore
	blacklist TokenBlacklist
	cache     cache.Cache
	cfg       config.AuthConfig
	log       *logger.Logger
}

// NewAuthService creates the auth service
func NewAuthService(store SessionStore, blacklist TokenBlacklist, userCache cache.Cache, cfg config.AuthConfig, log *logger.Logger) *AuthService {
	return &AuthService{
		store:     store,
		blacklist: blacklist,
		cache:     userCache,
		cfg:       cfg,
		log:       log,
	}
}

// Register creates a user and their password hash in one transaction.
func (s *AuthService) Register(ctx context.Context, creator models.UserCreator) (*models.User, error) {
	user, err := models.NewUser(creator)
	if err != nil {
		return nil, err
	}

	hash, err := argon2id.CreateHash(creator.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, errs.Wrap(errs.ErrStore, "hash password: %v", err)
	}

	err = s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, user); err != nil {
			return err
		}
		return s.store.Create(txCtx, &models.UserPasswordHash{
			UserCid: user.Cid,
			Hash:    hash,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithCid(user.Cid.String()).Info("user registered")
	return user, nil
}

// Login verifies credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var users []models.User
	err := s.store.Find(ctx, &models.User{}, &users, bson.M{"email": email}, 0, 1)
	if err != nil {
		return "", nil, err
	}
	if len(users) == 0 {
		return "", nil, errs.Wrap(errs.ErrAuthFailed, "unknown email")
	}
	user := &users[0]

	var hashes []models.UserPasswordHash
	err = s.store.Find(ctx, &models.UserPasswordHash{}, &hashes,
		bson.M{"user_cid": user.Cid.String()}, 0, 1)
	if err != nil {
		return "", nil, err
	}
	if len(hashes) == 0 {
		return "", nil, errs.Wrap(errs.ErrAuthFailed, "no credentials on record")
	}

	match, err := argon2id.ComparePasswordAndHash(password, hashes[0].Hash)
	if err != nil {
		return "", nil, errs.Wrap(errs.ErrStore, "verify password: %v", err)
	}
	if !match {
		return "", nil, errs.Wrap(errs.ErrAuthFailed, "wrong password")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}

	s.log.WithCid(user.Cid.String()).Info("user logged in")
	return token, user, nil
}

// Logout revokes the token by blacklisting its id for its remaining life.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return err
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}

	return s.blacklist.Set(ctx, blacklistKey(claims.ID), "revoked", remaining)
}

// Authenticate resolves a bearer token to its user, consulting the cache
// before the store.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.Exists(ctx, blacklistKey(claims.ID))
	if err != nil {
		// Treat a blacklist outage as revocation unknown: reject rather
		// than honor a possibly revoked token.
		return nil, errs.Wrap(errs.ErrAuthFailed, "token verification unavailable")
	}
	if revoked {
		return nil, errs.Wrap(errs.ErrAuthFailed, "token revoked")
	}

	return s.loadUser(ctx, claims.Subject)
}

// DeleteAccount removes the user record and their credentials in one
// transaction, then drops the user from the lookup cache. The user's media
// and sessions are left for their own delete flows.
func (s *AuthService) DeleteAccount(ctx context.Context, user *models.User) error {
	var hashes []models.UserPasswordHash
	err := s.store.Find(ctx, &models.UserPasswordHash{}, &hashes,
		bson.M{"user_cid": user.Cid.String()}, 0, 1)
	if err != nil {
		return err
	}

	err = s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		if err := s.store.Delete(txCtx, user, user.ID.Hex(), ""); err != nil {
			return err
		}
		for i := range hashes {
			if err := s.store.Delete(txCtx, &hashes[i], hashes[i].ID.Hex(), ""); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.InvalidateUser(ctx, user.Cid.String())
	s.log.WithCid(user.Cid.String()).Info("account deleted")
	return nil
}

// InvalidateUser drops a user from the lookup cache after a mutation.
func (s *AuthService) InvalidateUser(ctx context.Context, userCid string) {
	if err := s.cache.Delete(ctx, userCacheKey(userCid)); err != nil {
		s.log.Warn("user cache invalidation failed", "error", err)
	}
}

func (s *AuthService) loadUser(ctx context.Context, userCid string) (*models.User, error) {
	if raw, ok, _ := s.cache.Get(ctx, userCacheKey(userCid)); ok {
		user := &models.User{}
		if err := json.Unmarshal(raw, user); err == nil {
			return user, nil
		}
	}

	user := &models.User{}
	if err := s.store.Read(ctx, user, "", userCid); err != nil {
		return nil, errs.Wrap(errs.ErrAuthFailed, "token subject unknown")
	}

	if raw, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, userCacheKey(userCid), raw, userCacheTTL)
	}
	return user, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.Cid.String(),
		Issuer:    s.cfg.Issuer,
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) parseToken(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errs.Wrap(errs.ErrAuthFailed, "invalid token")
	}
	return claims, nil
}

func blacklistKey(tokenID string) string {
	return "auth:blacklist:" + tokenID
}

func userCacheKey(userCid string) string {
	return "auth:user:" + userCid
}
