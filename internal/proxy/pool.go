package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// failureCooldown is how long a failed proxy is skipped
const failureCooldown = 5 * time.Minute

// ProxyPool rotates through proxies, skipping ones that failed recently
type ProxyPool struct {
	proxies []string
	index   int
	mu      sync.Mutex
	failed  map[string]time.Time
}

// NewProxyPool creates a new ProxyPool
func NewProxyPool(proxies []string) *ProxyPool {
	return &ProxyPool{
		proxies: proxies,
		failed:  make(map[string]time.Time),
	}
}

// ParseList splits a comma-separated proxy list and validates each entry
func ParseList(list string) ([]string, error) {
	var proxies []string
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		u, err := url.Parse(p)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q", p)
		}
		proxies = append(proxies, p)
	}
	return proxies, nil
}

// Len returns the number of proxies in the pool
func (p *ProxyPool) Len() int {
	return len(p.proxies)
}

// GetNext returns the next healthy proxy. When every proxy failed recently
// it returns the next one in line anyway.
func (p *ProxyPool) GetNext() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if failTime, ok := p.failed[proxy]; ok {
			if time.Since(failTime) < failureCooldown {
				if p.index == start {
					return proxy
				}
				continue
			}
			delete(p.failed, proxy)
		}

		return proxy
	}
}

// MarkFailed marks a proxy as failed so it will be skipped for a while
func (p *ProxyPool) MarkFailed(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = time.Now()
}

// MarkHealthy clears the failure status of a proxy
func (p *ProxyPool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}

// RoundTripper sends each request through the pool's next proxy. Transport
// errors mark the proxy failed; any response marks it healthy.
type RoundTripper struct {
	pool       *ProxyPool
	base       *http.Transport
	mu         sync.Mutex
	transports map[string]*http.Transport
}

// NewRoundTripper clones base once per proxy
func NewRoundTripper(pool *ProxyPool, base *http.Transport) *RoundTripper {
	if base == nil {
		base = http.DefaultTransport.(*http.Transport)
	}
	return &RoundTripper{
		pool:       pool,
		base:       base,
		transports: make(map[string]*http.Transport),
	}
}

// RoundTrip implements http.RoundTripper
func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	proxy := rt.pool.GetNext()
	t, err := rt.transportFor(proxy)
	if err != nil {
		return nil, err
	}

	resp, err := t.RoundTrip(req)
	if err != nil {
		rt.pool.MarkFailed(proxy)
		return nil, fmt.Errorf("via proxy %s: %w", proxy, err)
	}
	rt.pool.MarkHealthy(proxy)
	return resp, nil
}

// CloseIdleConnections closes idle connections of every proxy transport
func (rt *RoundTripper) CloseIdleConnections() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, t := range rt.transports {
		t.CloseIdleConnections()
	}
}

func (rt *RoundTripper) transportFor(proxy string) (*http.Transport, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if t, ok := rt.transports[proxy]; ok {
		return t, nil
	}

	t := rt.base.Clone()
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		t.Proxy = http.ProxyURL(u)
	}
	rt.transports[proxy] = t
	return t, nil
}
