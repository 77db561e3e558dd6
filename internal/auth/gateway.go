package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/log"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Store is the minimal persistence surface the gateway needs. Credential
// verification is pure, so no by-id lookup belongs here.
type Store interface {
	CreateUser(ctx context.Context, u core.User) error
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
}

// Credential is a signed, self-contained proof of identity. Verifying it
// needs only the signing secret, no store lookup.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Gateway handles registration, login and credential verification.
type Gateway struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewGateway(store Store, secret []byte, ttl time.Duration) *Gateway {
	return &Gateway{
		store:  store,
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Register creates a new account with a bcrypt-hashed password, issues the
// first credential and returns it with the public projection of the stored
// user.
func (g *Gateway) Register(ctx context.Context, name, email, password string) (*core.User, *Credential, error) {
	if name == "" || email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: name, email and password are required", core.ErrInvalidInput)
	}

	if _, err := g.store.GetUserByEmail(ctx, email); err == nil {
		return nil, nil, fmt.Errorf("register: %w", core.ErrDuplicateIdentity)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, nil, fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	u := core.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    g.now(),
	}
	if err := g.store.CreateUser(ctx, u); err != nil {
		return nil, nil, fmt.Errorf("register: %w", err)
	}

	cred, err := g.issueCredential(u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("register: %w", err)
	}

	slog.InfoContext(ctx, "User registered",
		log.FieldOperation, log.OpRegister,
		log.FieldUserID, u.ID,
		log.FieldEmail, u.Email)

	pub := u.Public()
	return &pub, cred, nil
}

// Authenticate checks the password against the stored hash and issues a
// fresh credential. An unknown email reports core.ErrNotFound; a wrong
// password reports core.ErrInvalidCredential.
func (g *Gateway) Authenticate(ctx context.Context, email, password string) (*core.User, *Credential, error) {
	u, err := g.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("authenticate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, fmt.Errorf("authenticate: %w", core.ErrInvalidCredential)
	}

	cred, err := g.issueCredential(u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("authenticate: %w", err)
	}

	slog.InfoContext(ctx, "User authenticated",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, u.ID)

	pub := u.Public()
	return &pub, cred, nil
}

func (g *Gateway) issueCredential(userID string) (*Credential, error) {
	now := g.now()
	expiresAt := now.Add(g.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(g.secret)
	if err != nil {
		return nil, fmt.Errorf("sign credential: %w", err)
	}

	return &Credential{Token: signed, ExpiresAt: expiresAt}, nil
}

// VerifyCredential validates a token's signature and expiry and returns the
// user id it was issued for. It never touches the store, so verification
// stays cheap on every request. All failures report core.ErrUnauthenticated
// without detail; the caller has no business knowing why a bad token is bad.
func (g *Gateway) VerifyCredential(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil {
		return "", fmt.Errorf("verify credential: %w", core.ErrUnauthenticated)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("verify credential: %w", core.ErrUnauthenticated)
	}

	return claims.Subject, nil
}
