package middleware

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionIssuer = "medbot"

var (
	// ErrInvalidSessionToken is returned for tokens that fail verification
	ErrInvalidSessionToken = errors.New("invalid session token")
)

// SessionConfig holds configuration for SessionManager
type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool // Set the Secure cookie flag (TLS deployments)
}

// SessionClaims is the payload of the session cookie
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionManager issues and verifies chat session cookies. The cookie holds
// an HS256 JWT whose subject is the session UUID.
type SessionManager struct {
	secret []byte
	config SessionConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewSessionManager creates a session manager. Without a secret a random
// per-process key is generated, so sessions do not survive a restart.
func NewSessionManager(config SessionConfig, logger *zap.Logger) (*SessionManager, error) {
	if config.CookieName == "" {
		config.CookieName = "medbot_session"
	}
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}

	secret := []byte(config.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		logger.Warn("SESSION_SECRET not set, using a random per-process secret")
	}

	return &SessionManager{
		secret: secret,
		config: config,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Issue signs a token for sessionID
func (m *SessionManager) Issue(sessionID string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.config.TTL)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// Verify returns the claims of a valid token
func (m *SessionManager) Verify(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSessionToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: subject is not a session ID", ErrInvalidSessionToken)
	}
	return claims, nil
}

// Middleware resolves the chat session of every request, issuing a new
// cookie when it is missing, invalid or past half its lifetime.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		var sessionID string
		reissue := true

		if cookie, err := r.Cookie(m.config.CookieName); err == nil && cookie.Value != "" {
			claims, err := m.Verify(cookie.Value)
			if err != nil {
				m.logger.Debug("session cookie rejected",
					zap.String("request_id", requestID),
					zap.Error(err))
			} else {
				sessionID = claims.Subject
				reissue = claims.ExpiresAt.Time.Sub(m.now()) < m.config.TTL/2
			}
		}

		if sessionID == "" {
			sessionID = uuid.NewString()
			m.logger.Debug("new chat session",
				zap.String("request_id", requestID),
				zap.String("session_id", sessionID))
		}

		if reissue {
			if err := m.setCookie(w, sessionID); err != nil {
				m.logger.Error("failed to issue session cookie",
					zap.String("request_id", requestID),
					zap.Error(err))
			}
		}

		next.ServeHTTP(w, r.WithContext(WithSessionID(ctx, sessionID)))
	})
}

func (m *SessionManager) setCookie(w http.ResponseWriter, sessionID string) error {
	token, expires, err := m.Issue(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.config.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
