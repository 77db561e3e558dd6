package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"spendlog/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	byEmail map[string]core.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byEmail: make(map[string]core.User),
	}
}

func (m *memoryStore) CreateUser(_ context.Context, u core.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return core.ErrDuplicateIdentity
	}
	m.byEmail[u.Email] = u
	return nil
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

const testSecret = "test-secret-0123456789abcdef"

func newTestGateway() (*Gateway, *memoryStore) {
	store := newMemoryStore()
	return NewGateway(store, []byte(testSecret), 7*24*time.Hour), store
}

func TestRegisterAndAuthenticateRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw, store := newTestGateway()

	registered, signupCred, err := gw.Register(ctx, "Ada", "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, registered.ID)
	assert.Empty(t, registered.PasswordHash, "public projection must not carry the hash")

	// Registration issues a usable credential straight away.
	require.NotNil(t, signupCred)
	userID, err := gw.VerifyCredential(signupCred.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, userID)

	// The stored record carries a bcrypt hash, never the plaintext.
	stored := store.byEmail["ada@example.com"]
	assert.NotEqual(t, "correct horse", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))

	user, cred, err := gw.Authenticate(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Empty(t, user.PasswordHash)
	require.NotNil(t, cred)

	userID, err = gw.VerifyCredential(cred.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, userID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway()

	_, _, err := gw.Register(ctx, "Ada", "ada@example.com", "pw-one")
	require.NoError(t, err)

	_, _, err = gw.Register(ctx, "Imposter", "ada@example.com", "pw-two")
	assert.ErrorIs(t, err, core.ErrDuplicateIdentity)
}

func TestRegisterRejectsEmptyFields(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway()

	for _, tc := range []struct {
		name, email, password string
	}{
		{"", "ada@example.com", "pw"},
		{"Ada", "", "pw"},
		{"Ada", "ada@example.com", ""},
	} {
		_, _, err := gw.Register(ctx, tc.name, tc.email, tc.password)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	}
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	gw, _ := newTestGateway()

	_, _, err := gw.Authenticate(context.Background(), "nobody@example.com", "pw")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway()

	_, _, err := gw.Register(ctx, "Ada", "ada@example.com", "right")
	require.NoError(t, err)

	_, _, err = gw.Authenticate(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredential)
}

func TestVerifyCredentialExpired(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway()

	_, _, err := gw.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	_, cred, err := gw.Authenticate(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	// Move the clock past the credential's lifetime.
	gw.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	_, err = gw.VerifyCredential(cred.Token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestVerifyCredentialTampered(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway()

	_, _, err := gw.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	_, cred, err := gw.Authenticate(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	tampered := cred.Token[:len(cred.Token)-2] + "xx"
	_, err = gw.VerifyCredential(tampered)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestVerifyCredentialWrongSecret(t *testing.T) {
	ctx := context.Background()
	gw, store := newTestGateway()

	_, _, err := gw.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	_, cred, err := gw.Authenticate(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	other := NewGateway(store, []byte("another-secret-0123456789"), 7*24*time.Hour)
	_, err = other.VerifyCredential(cred.Token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestVerifyCredentialGarbage(t *testing.T) {
	gw, _ := newTestGateway()

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := gw.VerifyCredential(token)
		assert.ErrorIs(t, err, core.ErrUnauthenticated)
	}
}
