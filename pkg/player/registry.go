package player

import (
	"sync"

	"go.uber.org/zap"

	"github.com/latoulicious/Kagura/pkg/cache"
)

// Registry maps guild IDs to their players with create-if-absent and
// teardown-removes semantics. It replaces ambient global state; the command
// layer owns one instance and injects it where needed.
type Registry struct {
	resolver *Resolver
	cache    *cache.Manager
	cfg      Config
	log      *zap.Logger

	mu      sync.Mutex
	players map[string]*Player
}

func NewRegistry(resolver *Resolver, c *cache.Manager, cfg Config, log *zap.Logger) *Registry {
	return &Registry{
		resolver: resolver,
		cache:    c,
		cfg:      cfg,
		log:      log,
		players:  make(map[string]*Player),
	}
}

// Get returns the guild's player if one is active.
func (r *Registry) Get(guildID string) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[guildID]
	return p, ok
}

// Acquire returns the guild's player, creating one bound to the given
// transport if absent. A freshly created player's Run loop is started on
// its own goroutine; teardown removes it from the registry.
func (r *Registry) Acquire(guildID string, transport Transport, notifier Notifier) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[guildID]; ok {
		return p
	}

	p := NewPlayer(guildID, r.resolver, r.cache, transport, notifier, r.cfg, r.log, func() {
		r.mu.Lock()
		delete(r.players, guildID)
		r.mu.Unlock()
	})
	r.players[guildID] = p
	go p.Run()
	return p
}

// StopAll tears down every active player, used on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	r.mu.Unlock()

	for _, p := range players {
		p.Stop()
	}
}

// Count returns the number of active players.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}
