// Package memory provides in-memory implementations of the
// UserRepository and HSMStore ports, satisfying the same contracts a
// real database or hardware security module would.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	auth "github.com/apo9666/authcore"
)

// UserRepository is a mutex-guarded, username-keyed map of users.
// FindID is a linear scan over the map's values, mirroring the
// reference implementation this port is grounded on; the map's primary
// key is the username, per the "Username -> User is a bijection"
// invariant.
type UserRepository struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

// NewUserRepository returns an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]*auth.User),
	}
}

// Save upserts a user, keyed by username. Overwriting an existing
// username is permitted, not rejected.
func (r *UserRepository) Save(ctx context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.Username] = user.Clone()
	return nil
}

// FindUsername returns a deep-cloned copy of the user with the given
// username, or nil if none exists.
func (r *UserRepository) FindUsername(ctx context.Context, username string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	return user.Clone(), nil
}

// FindID returns a deep-cloned copy of the user with the given id, or
// nil if none exists.
func (r *UserRepository) FindID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.ID == id {
			return user.Clone(), nil
		}
	}
	return nil, nil
}
