package app

import (
	"errors"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fedhost/pkg/events"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

// User 已登录用户
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SessionState 会话快照
type SessionState struct {
	User            User `json:"user"`
	IsAuthenticated bool `json:"isAuthenticated"`
	Count           int  `json:"count"`
}

// Session 用户会话
type Session struct {
	bus   pkgif.EventBus
	clock clock.Clock

	mu    sync.RWMutex
	state SessionState
}

// NewSession 创建未登录的会话
func NewSession(bus pkgif.EventBus, opts ...Option) *Session {
	o := applyOptions(opts)
	return &Session{bus: bus, clock: o.clock}
}

// SetUser 登录并发出 user:login
func (s *Session) SetUser(u User) error {
	if u.ID == "" {
		return errors.New("set user: id is required")
	}

	s.mu.Lock()
	s.state.User = u
	s.state.IsAuthenticated = true
	s.mu.Unlock()

	events.Emit(s.bus, events.UserLogin, types.UserLoginEvent{
		UserID:    u.ID,
		Email:     u.Email,
		Timestamp: types.Millis(s.clock.Now()),
	})
	return nil
}

// Logout 登出并发出 user:logout；未登录时返回 false
func (s *Session) Logout() bool {
	s.mu.Lock()
	if !s.state.IsAuthenticated {
		s.mu.Unlock()
		return false
	}
	id := s.state.User.ID
	s.state.User = User{}
	s.state.IsAuthenticated = false
	s.mu.Unlock()

	events.Emit(s.bus, events.UserLogout, types.UserLogoutEvent{
		UserID:    id,
		Timestamp: types.Millis(s.clock.Now()),
	})
	return true
}

// UpdateProfile 修改资料并发出 user:profile-updated
func (s *Session) UpdateProfile(name, email string) error {
	s.mu.Lock()
	if !s.state.IsAuthenticated {
		s.mu.Unlock()
		return errors.New("update profile: not logged in")
	}
	changes := map[string]any{}
	if name != "" && name != s.state.User.Name {
		s.state.User.Name = name
		changes["name"] = name
	}
	if email != "" && email != s.state.User.Email {
		s.state.User.Email = email
		changes["email"] = email
	}
	id := s.state.User.ID
	s.mu.Unlock()

	if len(changes) == 0 {
		return nil
	}
	events.Emit(s.bus, events.UserProfileUpdated, types.UserProfileUpdatedEvent{
		UserID:    id,
		Changes:   changes,
		Timestamp: types.Millis(s.clock.Now()),
	})
	return nil
}

// IncrementCount 计数加一，返回新值
func (s *Session) IncrementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Count++
	return s.state.Count
}

// State 返回会话快照
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
