// Package auth issues and verifies the signed bearer credential that gates
// administrative access. Tokens are stateless HS256 JWTs carrying the admin
// subject, role and permission set; there is no server-side session store
// and no revocation list.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName is the cookie carrying the admin token.
	CookieName = "admin-token"

	// DefaultTTL is the validity window for tokens issued over the API.
	DefaultTTL = 24 * time.Hour
	// CookieTTL is the validity window for tokens issued into the login
	// cookie.
	CookieTTL = 7 * 24 * time.Hour

	roleAdmin = "admin"
)

// adminPermissions is the fixed permission set granted to the admin subject.
var adminPermissions = []string{"read", "write", "delete", "manage_ads", "manage_users"}

// Credential is the verified identity extracted from a valid token.
type Credential struct {
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type claims struct {
	Role  string   `json:"role"`
	Perms []string `json:"perms"`
	jwt.RegisteredClaims
}

// Authenticator verifies admin credentials and signed tokens. Configuration
// is injected once at construction; the clock is replaceable for tests.
type Authenticator struct {
	secret        []byte
	adminUsername string
	adminPassword string
	now           func() time.Time
}

func New(secret, adminUsername, adminPassword string) *Authenticator {
	return &Authenticator{
		secret:        []byte(secret),
		adminUsername: adminUsername,
		adminPassword: adminPassword,
		now:           time.Now,
	}
}

// CheckCredentials reports whether the supplied login matches the configured
// admin username and password.
func (a *Authenticator) CheckCredentials(username, password string) bool {
	return username == a.adminUsername && password == a.adminPassword
}

// IssueToken signs a token for the subject, valid for ttl from now.
func (a *Authenticator) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role:  roleAdmin,
		Perms: adminPermissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(a.secret)
}

// VerifyToken validates structure, signature, expiry and subject, and
// returns the embedded credential. Any failure yields (nil, false); the
// reasons are deliberately not surfaced.
func (a *Authenticator) VerifyToken(tokenString string) (*Credential, bool) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c,
		func(t *jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return nil, false
	}
	// Exactly one principal exists; any other subject is rejected even
	// with a valid signature.
	if c.Subject != a.adminUsername {
		return nil, false
	}
	return &Credential{
		Username:    c.Subject,
		Role:        c.Role,
		Permissions: c.Perms,
	}, true
}

// AuthenticateRequest extracts a candidate token from the Authorization
// bearer header, falling back to the admin-token cookie, and verifies it.
// A missing or invalid token returns nil.
func (a *Authenticator) AuthenticateRequest(r *http.Request) *Credential {
	var token string

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimSpace(header[len("Bearer "):])
	}
	if token == "" {
		if cookie, err := r.Cookie(CookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil
	}

	cred, ok := a.VerifyToken(token)
	if !ok {
		return nil
	}
	return cred
}

type credentialKey struct{}

// RequireAuth rejects requests without a valid admin credential with a
// uniform 401 and injects the credential into the request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cred := a.AuthenticateRequest(r)
		if cred == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		ctx := context.WithValue(r.Context(), credentialKey{}, cred)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the credential stored by RequireAuth, if any.
func FromContext(ctx context.Context) *Credential {
	cred, _ := ctx.Value(credentialKey{}).(*Credential)
	return cred
}
