package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/models"
	"gameroom-backend/pkg/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

const tokenTTL = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// ErrProvisionFailed means the token was valid but its owner row could not be created
var ErrProvisionFailed = errors.New("owner provisioning failed")

// UserClaims identifies the signed-in operator. UserID doubles as the owner id
// every collection is scoped under.
type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// TokenVerifier turns a bearer token into claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (UserClaims, error)
}

// JWTVerifier issues and verifies HS256 tokens signed with the app secret
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), now: time.Now}
}

// IssueToken signs a token for a signed-in owner
func (v *JWTVerifier) IssueToken(userID, email, role string) (string, error) {
	now := v.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"role":    role,
		"iat":     now.Unix(),
		"exp":     now.Add(tokenTTL).Unix(),
	})
	return token.SignedString(v.secret)
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (UserClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil || !token.Valid {
		return UserClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return UserClaims{}, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if userID == "" {
		return UserClaims{}, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return UserClaims{UserID: userID, Email: email, Role: role}, nil
}

// FirebaseVerifier accepts Firebase ID tokens. The Firebase uid is the owner id.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, tokenString string) (UserClaims, error) {
	token, err := v.client.VerifyIDToken(ctx, tokenString)
	if err != nil {
		return UserClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := token.Claims["email"].(string)
	role, _ := token.Claims["role"].(string)
	if role == "" {
		role = models.RoleOwner
	}
	return UserClaims{UserID: token.UID, Email: email, Role: role}, nil
}

// OwnerProvisioner creates the owner row for an identity on first sight
type OwnerProvisioner interface {
	EnsureOwner(ctx context.Context, id, email string) error
}

// ProvisioningVerifier wraps a verifier for an external identity provider.
// Every uid it accepts has an owner row before the request reaches a handler.
type ProvisioningVerifier struct {
	verifier TokenVerifier
	owners   OwnerProvisioner
	known    sync.Map
}

func NewProvisioningVerifier(verifier TokenVerifier, owners OwnerProvisioner) *ProvisioningVerifier {
	return &ProvisioningVerifier{verifier: verifier, owners: owners}
}

func (p *ProvisioningVerifier) Verify(ctx context.Context, tokenString string) (UserClaims, error) {
	claims, err := p.verifier.Verify(ctx, tokenString)
	if err != nil {
		return UserClaims{}, err
	}
	if _, ok := p.known.Load(claims.UserID); ok {
		return claims, nil
	}
	if err := p.owners.EnsureOwner(ctx, claims.UserID, claims.Email); err != nil {
		return UserClaims{}, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}
	p.known.Store(claims.UserID, struct{}{})
	return claims, nil
}

// ChainVerifier tries each verifier in order and accepts the first success.
// A failure other than ErrInvalidToken stops the chain.
type ChainVerifier []TokenVerifier

func (c ChainVerifier) Verify(ctx context.Context, tokenString string) (UserClaims, error) {
	err := ErrInvalidToken
	for _, v := range c {
		claims, verr := v.Verify(ctx, tokenString)
		if verr == nil {
			return claims, nil
		}
		if !errors.Is(verr, ErrInvalidToken) {
			return UserClaims{}, verr
		}
		err = verr
	}
	return UserClaims{}, err
}

// BearerToken extracts the token from "Authorization: Bearer <token>"
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Auth validates the bearer token and adds user claims to context
func Auth(verifier TokenVerifier, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := BearerToken(r)
			if !ok {
				log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Warn("❌ Missing or malformed authorization header")
				utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := verifier.Verify(r.Context(), tokenString)
			if errors.Is(err, ErrProvisionFailed) {
				log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).WithError(err).Error("❌ Could not provision owner")
				utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if err != nil {
				log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).WithError(err).Warn("❌ Invalid token")
				utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			log.WithFields(logrus.Fields{"user_id": claims.UserID, "role": claims.Role}).Debug("✅ Authenticated")
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
		})
	}
}

// RequireRole middleware checks if user has required role (must be used after Auth)
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := GetUserFromContext(r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if userClaims.Role != role {
				utils.RespondError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser stores claims on ctx
func WithUser(ctx context.Context, claims UserClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) (UserClaims, bool) {
	userClaims, ok := r.Context().Value(UserContextKey).(UserClaims)
	return userClaims, ok
}
