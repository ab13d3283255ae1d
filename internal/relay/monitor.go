package relay

import (
	"context"
	"log"
	"sync"
	"time"
)

// Monitor drives the heartbeat protocol: every interval it sweeps all
// tracked connections, terminating those that did not acknowledge the
// previous probe and probing the rest. The sweep runs through the same
// serialized mutation path as every other handler, so it can never act
// on a connection concurrently being removed by normal close handling.
type Monitor struct {
	service  *Service
	interval time.Duration

	mu       sync.Mutex
	running  bool
	shutdown chan struct{}
}

// NewMonitor creates a heartbeat monitor for the given relay service.
func NewMonitor(service *Service, interval time.Duration) *Monitor {
	return &Monitor{
		service:  service,
		interval: interval,
		shutdown: make(chan struct{}),
	}
}

// Start begins periodic sweeps in a background goroutine.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrMonitorRunning
	}
	m.running = true

	log.Printf("Starting heartbeat monitor: interval=%s", m.interval)
	go m.run(ctx)
	return nil
}

// Stop halts the sweep loop. Safe to call once after Start.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return ErrMonitorNotRunning
	}
	m.running = false

	close(m.shutdown)
	return nil
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.service.sweep()
		case <-m.shutdown:
			log.Println("Heartbeat monitor stopped")
			return
		case <-ctx.Done():
			log.Println("Heartbeat monitor context cancelled")
			return
		}
	}
}
