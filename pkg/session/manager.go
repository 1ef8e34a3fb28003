package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lintang-b-s/bikestats/pkg/util"
	"go.uber.org/zap"
)

// Manager. running sessions by id
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ctx context.Context
	cfg Config
	log *zap.Logger
}

// NewManager. sessions run until ctx is done or they are removed
func NewManager(ctx context.Context, cfg Config, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cfg:      cfg,
		log:      log,
	}
}

func (m *Manager) Config() Config {
	return m.cfg
}

// Create starts a session with a random id.
func (m *Manager) Create(mode Mode) *Session {
	s, _ := m.CreateWithID(uuid.NewString(), mode)
	return s
}

// CreateWithID starts a session with a fixed id, used for the default session of the server.
func (m *Manager) CreateWithID(id string, mode Mode) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		return nil, util.WrapErrorf(nil, util.ErrConflict, "session %s already exists", id)
	}

	s := New(id, mode, m.cfg, m.log)
	m.sessions[id] = s
	go s.Run(m.ctx)

	m.log.Info("session created", zap.String("session", id), zap.String("mode", string(mode)))
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "session %s not found", id)
	}
	return s, nil
}

func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return util.WrapErrorf(nil, util.ErrNotFound, "session %s not found", id)
	}
	s.Close()
	<-s.Done()
	m.log.Info("session removed", zap.String("session", id))
	return nil
}

// IDs. sorted ids of the running sessions
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (m *Manager) RemoveAll() {
	for _, id := range m.IDs() {
		_ = m.Remove(id)
	}
}
