package blockchain

import (
	"math/rand"
	"sync"
	"time"
)

// Endpoint RPC节点句柄，带健康状态
type Endpoint struct {
	URL       string
	downUntil time.Time
}

// SelectionPolicy 节点选择策略，入参保证非空
type SelectionPolicy interface {
	Pick(endpoints []*Endpoint) *Endpoint
}

// RandomPolicy 均匀随机选择，避免单节点过载
type RandomPolicy struct {
	mu   sync.Mutex
	rand *rand.Rand
}

func NewRandomPolicy() *RandomPolicy {
	return &RandomPolicy{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *RandomPolicy) Pick(endpoints []*Endpoint) *Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return endpoints[p.rand.Intn(len(endpoints))]
}

// NodePool 显式的节点池
// 出错的节点进入冷却期，冷却期内不参与选择；全部不可用时退回全量选择
type NodePool struct {
	mu        sync.RWMutex
	endpoints []*Endpoint
	policy    SelectionPolicy
	cooldown  time.Duration
	clock     Clock
}

func NewNodePool(urls []string, policy SelectionPolicy, cooldown time.Duration, clock Clock) *NodePool {
	if policy == nil {
		policy = NewRandomPolicy()
	}
	if clock == nil {
		clock = SystemClock
	}

	endpoints := make([]*Endpoint, 0, len(urls))
	for _, url := range urls {
		endpoints = append(endpoints, &Endpoint{URL: url})
	}

	return &NodePool{
		endpoints: endpoints,
		policy:    policy,
		cooldown:  cooldown,
		clock:     clock,
	}
}

// Pick 从健康节点中按策略选择一个
func (p *NodePool) Pick() *Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.endpoints) == 0 {
		return nil
	}

	healthy := p.healthyLocked()
	if len(healthy) == 0 {
		healthy = p.endpoints
	}
	return p.policy.Pick(healthy)
}

// MarkDown 将节点置入冷却期
func (p *NodePool) MarkDown(endpoint *Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	endpoint.downUntil = p.clock.Now().Add(p.cooldown)
}

// Healthy 当前不在冷却期的节点
func (p *NodePool) Healthy() []*Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthyLocked()
}

func (p *NodePool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.endpoints)
}

func (p *NodePool) healthyLocked() []*Endpoint {
	now := p.clock.Now()
	healthy := make([]*Endpoint, 0, len(p.endpoints))
	for _, endpoint := range p.endpoints {
		if !endpoint.downUntil.After(now) {
			healthy = append(healthy, endpoint)
		}
	}
	return healthy
}
