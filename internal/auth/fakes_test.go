// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package auth_test

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/stackdesk/stackdesk/internal/auth"
)

// fakeUserRepo is an in-memory auth.UserRepository. Setting err makes
// every method fail with it.
type fakeUserRepo struct {
	users  map[int64]*auth.User
	nextID int64
	err    error
}

func newFakeUserRepo(users ...*auth.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int64]*auth.User)}
	for _, u := range users {
		if u.ID == 0 {
			r.nextID++
			u.ID = r.nextID
		} else if u.ID > r.nextID {
			r.nextID = u.ID
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *auth.User) error {
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return auth.ErrConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*auth.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	user, ok := r.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, user := range r.users {
		if strings.EqualFold(user.Username, username) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	if r.err != nil {
		return r.err
	}
	user, ok := r.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int64) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// fakeSessionRepo is an in-memory auth.SessionRepository. Setting err
// makes every method fail; conflicts forces that many Creates to report
// a token hash collision first.
type fakeSessionRepo struct {
	sessions  map[string]*auth.Session
	err       error
	conflicts int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*auth.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *auth.Session) error {
	if r.err != nil {
		return r.err
	}
	if r.conflicts > 0 {
		r.conflicts--
		return auth.ErrConflict
	}
	if _, ok := r.sessions[session.TokenHash]; ok {
		return auth.ErrConflict
	}
	copied := *session
	r.sessions[session.TokenHash] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	if r.err != nil {
		return nil, r.err
	}
	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) Extend(_ context.Context, tokenHash string, expiresAt, lastAccessed time.Time) error {
	if r.err != nil {
		return r.err
	}
	session, ok := r.sessions[tokenHash]
	if !ok {
		return auth.ErrNotFound
	}
	session.ExpiresAt = expiresAt
	session.LastAccessed = lastAccessed
	return nil
}

func (r *fakeSessionRepo) Touch(_ context.Context, tokenHash string, lastAccessed time.Time) error {
	if r.err != nil {
		return r.err
	}
	session, ok := r.sessions[tokenHash]
	if !ok {
		return auth.ErrNotFound
	}
	session.LastAccessed = lastAccessed
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, tokenHash string) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.sessions[tokenHash]; !ok {
		return auth.ErrNotFound
	}
	delete(r.sessions, tokenHash)
	return nil
}

func (r *fakeSessionRepo) DeleteByUser(_ context.Context, userID int64) error {
	if r.err != nil {
		return r.err
	}
	for hash, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, hash)
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	var count int64
	for hash, session := range r.sessions {
		if session.IsExpiredAt(now) {
			delete(r.sessions, hash)
			count++
		}
	}
	return count, nil
}

// fakeResetRepo is an in-memory auth.PasswordResetRepository. users may
// be nil when the test never consumes a token.
type fakeResetRepo struct {
	resets map[ulid.ULID]*auth.PasswordReset
	users  *fakeUserRepo
	err    error
}

func newFakeResetRepo(users *fakeUserRepo) *fakeResetRepo {
	return &fakeResetRepo{resets: make(map[ulid.ULID]*auth.PasswordReset), users: users}
}

func (r *fakeResetRepo) Create(_ context.Context, reset *auth.PasswordReset) error {
	if r.err != nil {
		return r.err
	}
	copied := *reset
	r.resets[reset.ID] = &copied
	return nil
}

func (r *fakeResetRepo) GetByTokenHash(_ context.Context, tokenHash string) (*auth.PasswordReset, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, reset := range r.resets {
		if reset.TokenHash == tokenHash {
			copied := *reset
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *fakeResetRepo) InvalidateByUser(_ context.Context, userID int64) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	var count int64
	for _, reset := range r.resets {
		if reset.UserID == userID && !reset.Used {
			reset.Used = true
			count++
		}
	}
	return count, nil
}

func (r *fakeResetRepo) Consume(ctx context.Context, id ulid.ULID, userID int64, passwordHash string) error {
	if r.err != nil {
		return r.err
	}
	reset, ok := r.resets[id]
	if !ok {
		return auth.ErrNotFound
	}
	if reset.Used {
		return auth.ErrResetTokenUsed
	}
	reset.Used = true
	return r.users.UpdatePassword(ctx, userID, passwordHash)
}

func (r *fakeResetRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	var count int64
	for id, reset := range r.resets {
		if reset.IsExpiredAt(now) {
			delete(r.resets, id)
			count++
		}
	}
	return count, nil
}
