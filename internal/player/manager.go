package player

import (
	"sync"

	"github.com/nvallance/quaver/internal/repository"
)

// Manager holds one Player per guild. Players are created lazily and removed
// when their session is destroyed.
type Manager struct {
	mu       sync.Mutex
	players  map[string]*Player
	backend  AudioBackend
	repo     *repository.Repo
	registry *MessageRegistry
}

func NewManager(backend AudioBackend, repo *repository.Repo, registry *MessageRegistry) *Manager {
	return &Manager{
		players:  make(map[string]*Player),
		backend:  backend,
		repo:     repo,
		registry: registry,
	}
}

// Get returns the guild's player, creating one if needed. created reports
// whether this call made a fresh player, so callers can seed persisted state
// exactly once per session.
func (m *Manager) Get(guildID string) (p *Player, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[guildID]; ok && !p.Destroyed() {
		return p, false
	}
	p = NewPlayer(guildID, m.backend, m.repo, m.registry)
	m.players[guildID] = p
	return p, true
}

// Peek returns the guild's player without creating one.
func (m *Manager) Peek(guildID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[guildID]
}

// Remove forgets the guild's player. The caller is responsible for having
// destroyed it first.
func (m *Manager) Remove(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, guildID)
}

// Registry exposes the shared now-playing message registry.
func (m *Manager) Registry() *MessageRegistry { return m.registry }
