package proxy

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultUserAgents are realistic desktop browser identities used when none
// are configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
}

// Manager hands out proxies and user agents to new browsing contexts.
type Manager struct {
	proxies    []string
	userAgents []string
	mu         sync.Mutex
	proxyIndex int
	rng        *rand.Rand
}

// NewManager builds a manager. An empty userAgents falls back to
// DefaultUserAgents; an empty proxies list means direct connections.
func NewManager(proxies, userAgents []string) *Manager {
	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents
	}
	return &Manager{
		proxies:    append([]string(nil), proxies...),
		userAgents: append([]string(nil), userAgents...),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetProxy returns a proxy URL from the list, rotating sequentially.
func (m *Manager) GetProxy() string {
	if len(m.proxies) == 0 {
		return "" // No proxy
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	proxy := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return proxy
}

// HasProxies reports whether any proxy is configured.
func (m *Manager) HasProxies() bool {
	return len(m.proxies) > 0
}

// GetUserAgent returns a random user agent string.
func (m *Manager) GetUserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userAgents[m.rng.Intn(len(m.userAgents))]
}
