package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gravitas-games/hexmove/internal/config"
	"github.com/gravitas-games/hexmove/pkg/models"
)

var (
	ErrTokenBlacklisted = errors.New("token is blacklisted")
	ErrNotActivated     = errors.New("user not activated")
	ErrBanned           = errors.New("user is banned")
	ErrInvalidIssuer    = errors.New("invalid issuer")
)

// JWTValidator handles JWT token validation
type JWTValidator struct {
	config    *config.Config
	publicKey *ecdsa.PublicKey
	keyMu     sync.RWMutex
	redis     *redis.Client // nil disables the blacklist
	ctx       context.Context
	logger    *slog.Logger
}

// Claims represents JWT token claims from the login server
type Claims struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	AuthMethod  string `json:"auth_method"`
	Permissions int64  `json:"permissions"`
	Activated   int64  `json:"activated"`
	jwt.RegisteredClaims
}

// NewJWTValidator fetches the signing key and refreshes it until ctx ends.
func NewJWTValidator(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) (*JWTValidator, error) {
	v := newValidator(ctx, cfg, redisClient, logger)

	if err := v.RefreshPublicKey(); err != nil {
		return nil, fmt.Errorf("failed to fetch public key: %w", err)
	}

	go v.periodicKeyRefresh()

	v.logger.Info("JWT validator initialized")
	return v, nil
}

// NewStaticJWTValidator validates against a fixed key and never refreshes.
func NewStaticJWTValidator(ctx context.Context, cfg *config.Config, key *ecdsa.PublicKey, redisClient *redis.Client, logger *slog.Logger) *JWTValidator {
	v := newValidator(ctx, cfg, redisClient, logger)
	v.publicKey = key
	return v
}

func newValidator(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) *JWTValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &JWTValidator{
		config: cfg,
		redis:  redisClient,
		ctx:    ctx,
		logger: logger.With("component", "auth"),
	}
}

// RefreshPublicKey fetches the PEM-encoded ECDSA key from the login server
func (v *JWTValidator) RefreshPublicKey() error {
	v.logger.Debug("fetching public key", "url", v.config.JWT.PublicKeyURL)

	req, err := http.NewRequestWithContext(v.ctx, http.MethodGet, v.config.JWT.PublicKeyURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("public key endpoint returned status %d", resp.StatusCode)
	}

	keyData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}

	key, err := ParsePublicKey(keyData)
	if err != nil {
		return err
	}

	v.keyMu.Lock()
	v.publicKey = key
	v.keyMu.Unlock()

	v.logger.Info("public key refreshed")
	return nil
}

// ParsePublicKey decodes a PEM PKIX ECDSA public key.
func ParsePublicKey(pemData []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	ecdsaKey, ok := pubKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecdsaKey, nil
}

func (v *JWTValidator) periodicKeyRefresh() {
	refreshInterval := time.Duration(v.config.JWT.PublicKeyRefreshHrs) * time.Hour

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := v.RefreshPublicKey(); err != nil {
				v.logger.Error("failed to refresh public key", "err", err)
			}
		case <-v.ctx.Done():
			return
		}
	}
}

// ValidateToken validates a JWT token and returns player information
func (v *JWTValidator) ValidateToken(tokenString string) (*models.Player, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		v.keyMu.RLock()
		defer v.keyMu.RUnlock()
		return v.publicKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.Issuer != v.config.JWT.Issuer {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidIssuer, v.config.JWT.Issuer, claims.Issuer)
	}

	switch {
	case claims.Activated == 0:
		return nil, ErrNotActivated
	case claims.Activated == -1:
		return nil, ErrBanned
	}

	userIDStr := strconv.FormatInt(claims.UserID, 10)
	if v.redis != nil {
		blacklistKey := v.config.Redis.BlacklistPrefix + userIDStr
		n, err := v.redis.Exists(v.ctx, blacklistKey).Result()
		if err != nil {
			// don't fail authentication if redis is down
			v.logger.Warn("failed to check blacklist", "err", err)
		} else if n > 0 {
			return nil, ErrTokenBlacklisted
		}
	}

	return &models.Player{
		ID:          userIDStr,
		Username:    claims.Username,
		Email:       claims.Email,
		Permissions: claims.Permissions,
		Activated:   claims.Activated,
		AuthMethod:  claims.AuthMethod,
	}, nil
}

// extractTokenFromHeader extracts the JWT from the WebSocket subprotocol
// header, the Authorization header, or the token query parameter, in that
// order.
func extractTokenFromHeader(r *http.Request) string {
	// Format: "access_token, <token>"
	if protocols := r.Header.Get("Sec-WebSocket-Protocol"); protocols != "" {
		parts := splitAndTrim(protocols, ",")
		if len(parts) == 2 && parts[0] == "access_token" {
			return parts[1]
		}
	}

	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return token
	}

	return r.URL.Query().Get("token")
}

func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
