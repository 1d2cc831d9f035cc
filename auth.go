package mqtt311

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// Authentication errors.
var (
	ErrBadCredentials = errors.New("mqtt311: bad user name or password")
	ErrUnknownUser    = errors.New("mqtt311: unknown user")
)

// Authenticator validates the user name and password pair carried in a
// CONNECT packet. A nil error accepts the credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, clientID, username string, password []byte) error
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, clientID, username string, password []byte) error

// Authenticate calls the function.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, clientID, username string, password []byte) error {
	return f(ctx, clientID, username, password)
}

const (
	pbkdf2Iterations = 4096
	pbkdf2KeySize    = 32
	pbkdf2SaltSize   = 16
)

type storedCredential struct {
	salt []byte
	key  []byte
}

// CredentialStore is an in-memory Authenticator holding PBKDF2-SHA256
// derived keys. Plaintext passwords are only seen when set; comparisons are
// constant time.
type CredentialStore struct {
	mu         sync.RWMutex
	users      map[string]storedCredential
	iterations int
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		users:      make(map[string]storedCredential),
		iterations: pbkdf2Iterations,
	}
}

// SetPassword derives and stores the key for a user, replacing any previous
// credential. A fresh random salt is used per call.
func (s *CredentialStore) SetPassword(username, password string) error {
	salt := make([]byte, pbkdf2SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return err
	}

	key := pbkdf2.Key([]byte(password), salt, s.iterations, pbkdf2KeySize, sha256.New)

	s.mu.Lock()
	s.users[username] = storedCredential{salt: salt, key: key}
	s.mu.Unlock()

	return nil
}

// Remove deletes a user's credential.
func (s *CredentialStore) Remove(username string) {
	s.mu.Lock()
	delete(s.users, username)
	s.mu.Unlock()
}

// Authenticate checks the password against the stored derived key.
func (s *CredentialStore) Authenticate(_ context.Context, _ string, username string, password []byte) error {
	s.mu.RLock()
	cred, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		return ErrUnknownUser
	}

	key := pbkdf2.Key(password, cred.salt, s.iterations, pbkdf2KeySize, sha256.New)
	if subtle.ConstantTimeCompare(key, cred.key) != 1 {
		return ErrBadCredentials
	}

	return nil
}
