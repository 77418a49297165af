package autoreply

import (
	"sync"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/lease"
)

// Manager hands out one Pipeline per user.
type Manager struct {
	gen    Generator
	record *Record
	leaser lease.Leaser
	opts   Options

	mu        sync.Mutex
	pipelines map[string]*Pipeline
}

func NewManager(gen Generator, record *Record, leaser lease.Leaser, opts Options) *Manager {
	return &Manager{
		gen:       gen,
		record:    record,
		leaser:    leaser,
		opts:      opts,
		pipelines: make(map[string]*Pipeline),
	}
}

// For returns the pipeline of userID, creating it on first use.
func (m *Manager) For(userID string) *Pipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pipelines[userID]
	if !ok {
		p = NewPipeline(userID, m.gen, m.record, m.leaser, m.opts)
		m.pipelines[userID] = p
	}
	return p
}

// Record exposes the shared replied-comment record.
func (m *Manager) Record() *Record {
	return m.record
}

// Shutdown cancels all tasks and waits for them to finish.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ps := make([]*Pipeline, 0, len(m.pipelines))
	for _, p := range m.pipelines {
		ps = append(ps, p)
	}
	m.mu.Unlock()

	for _, p := range ps {
		p.CancelAll()
	}
	for _, p := range ps {
		p.Wait()
	}
}
