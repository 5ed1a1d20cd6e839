package blockchain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firstPolicy 固定选第一个，便于断言
type firstPolicy struct{}

func (firstPolicy) Pick(endpoints []*Endpoint) *Endpoint {
	return endpoints[0]
}

func TestNodePool_PickSkipsDownEndpoints(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	pool := NewNodePool([]string{"node-a", "node-b"}, firstPolicy{}, time.Minute, clock)

	first := pool.Pick()
	require.NotNil(t, first)
	assert.Equal(t, "node-a", first.URL)

	pool.MarkDown(first)

	next := pool.Pick()
	require.NotNil(t, next)
	assert.Equal(t, "node-b", next.URL)
	assert.Len(t, pool.Healthy(), 1)
}

func TestNodePool_CooldownRecovers(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	pool := NewNodePool([]string{"node-a", "node-b"}, firstPolicy{}, time.Minute, clock)

	pool.MarkDown(pool.Pick())
	assert.Len(t, pool.Healthy(), 1)

	clock.Advance(61 * time.Second)
	assert.Len(t, pool.Healthy(), 2)
	assert.Equal(t, "node-a", pool.Pick().URL)
}

func TestNodePool_AllDownFallsBack(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	pool := NewNodePool([]string{"node-a"}, firstPolicy{}, time.Minute, clock)

	pool.MarkDown(pool.Pick())
	assert.Empty(t, pool.Healthy())

	// 全部冷却时退回全量选择，不能返回nil
	endpoint := pool.Pick()
	require.NotNil(t, endpoint)
	assert.Equal(t, "node-a", endpoint.URL)
}

func TestNodePool_EmptyPool(t *testing.T) {
	pool := NewNodePool(nil, NewRandomPolicy(), time.Minute, SystemClock)
	assert.Nil(t, pool.Pick())
	assert.Equal(t, 0, pool.Size())
}

func TestRandomPolicy_PicksFromGiven(t *testing.T) {
	policy := NewRandomPolicy()
	endpoints := []*Endpoint{{URL: "a"}, {URL: "b"}, {URL: "c"}}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		picked := policy.Pick(endpoints)
		require.NotNil(t, picked)
		seen[picked.URL] = true
	}
	// 均匀随机下100次应当覆盖全部节点
	assert.Len(t, seen, 3)
}
