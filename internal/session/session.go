// Package session holds the state of one unlocked account: who is logged in,
// the master key derived at login, and the currently selected vault.
//
// The master key lives only here. Lock wipes it, and a session that has been
// idle longer than its timeout locks itself on the next access.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/models"
)

// Session is safe for concurrent use.
type Session struct {
	mu         sync.Mutex
	account    models.Account
	key        []byte
	vaultID    string
	idle       time.Duration
	lastActive time.Time
	now        func() time.Time
}

// New starts an unlocked session. The session takes ownership of key and
// wipes it on Lock. idle <= 0 disables auto-lock.
func New(account models.Account, key []byte, idle time.Duration) *Session {
	s := &Session{account: account, key: key, idle: idle, now: time.Now}
	s.lastActive = s.now()
	return s
}

// lockIfIdleLocked must be called with mu held.
func (s *Session) lockIfIdleLocked() {
	if s.key == nil || s.idle <= 0 {
		return
	}
	if s.now().Sub(s.lastActive) >= s.idle {
		s.wipeLocked()
	}
}

func (s *Session) wipeLocked() {
	common.WipeByteArray(s.key)
	s.key = nil
	s.vaultID = ""
}

func (s *Session) activeLocked() error {
	s.lockIfIdleLocked()
	if s.key == nil {
		return common.ErrLocked
	}
	s.lastActive = s.now()
	return nil
}

// Account returns the logged-in account.
func (s *Session) Account() (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return models.Account{}, err
	}
	return s.account, nil
}

// Key returns a copy of the master key. Callers should wipe the copy when
// done with common.WipeByteArray.
func (s *Session) Key() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return nil, err
	}
	out := make([]byte, len(s.key))
	copy(out, s.key)
	return out, nil
}

// ReplaceKey swaps the master key after a password change.
func (s *Session) ReplaceKey(account models.Account, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	common.WipeByteArray(s.key)
	s.key = key
	s.account = account
	return nil
}

// UseVault selects the vault subsequent entry commands act on.
func (s *Session) UseVault(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	s.vaultID = id
	return nil
}

// VaultID returns the selected vault or "" when none is selected.
func (s *Session) VaultID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return "", err
	}
	return s.vaultID, nil
}

// Lock wipes the master key. It is idempotent.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeLocked()
}

// Locked reports whether the session is locked, applying the idle timeout
// without counting as activity.
func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockIfIdleLocked()
	return s.key == nil
}

// Watch polls the idle timeout every interval and calls onLock once when the
// session transitions to locked. It returns when ctx is done or after onLock.
func (s *Session) Watch(ctx context.Context, interval time.Duration, onLock func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.Locked() {
				if onLock != nil {
					onLock()
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
