package renderer

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
)

// DefaultDescriptorPoolSize is the number of sets and descriptors each pool holds.
const DefaultDescriptorPoolSize uint32 = 40

type PoolID uint32

type descriptorPool struct {
	id PoolID

	// guards everything below, including calls on handle
	mu                   sync.Mutex
	handle               DescriptorPool
	capacity             uint32
	remainingSets        uint32
	remainingDescriptors uint32
	refs                 int32
	dead                 bool
}

// reserve takes n sets from the pool when it is alive and has room.
func (p *descriptorPool) reserve(n uint32) (ok bool, dead bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead {
		return false, true
	}
	if p.remainingSets < n || p.remainingDescriptors < n {
		return false, false
	}
	p.remainingSets -= n
	p.remainingDescriptors -= n
	p.refs++
	return true, false
}

func (p *descriptorPool) isDead() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dead
}

// DescriptorPoolAllocator hands out descriptor sets from a growing list of fixed size
// pools. Capacity inside a pool is never reused; a pool is destroyed as soon as the
// last allocation drawn from it is released.
type DescriptorPoolAllocator struct {
	device   Device
	poolSize uint32

	mu     sync.Mutex
	pools  []*descriptorPool
	nextID PoolID
}

func NewDescriptorPoolAllocator(device Device, poolSize uint32) *DescriptorPoolAllocator {
	if poolSize == 0 {
		poolSize = DefaultDescriptorPoolSize
	}
	return &DescriptorPoolAllocator{
		device:   device,
		poolSize: poolSize,
	}
}

// DescriptorPoolAlloc owns a reference on the pool its sets were drawn from.
type DescriptorPoolAlloc struct {
	allocator *DescriptorPoolAllocator
	pool      *descriptorPool
	sets      []DescriptorSet
	once      sync.Once
}

func (h *DescriptorPoolAlloc) Sets() []DescriptorSet {
	return h.sets
}

func (h *DescriptorPoolAlloc) Set(i int) DescriptorSet {
	return h.sets[i]
}

func (h *DescriptorPoolAlloc) Pool() PoolID {
	return h.pool.id
}

// Release drops the reference on the pool. Safe to call more than once.
func (h *DescriptorPoolAlloc) Release() {
	h.once.Do(func() {
		h.allocator.release(h.pool)
		h.sets = nil
	})
}

// Alloc allocates one set per layout.
func (a *DescriptorPoolAllocator) Alloc(layouts []DescriptorSetLayout) (*DescriptorPoolAlloc, error) {
	n := uint32(len(layouts))
	if n == 0 {
		return nil, errors.New("descriptor allocation needs at least one layout")
	}

	a.mu.Lock()
	pool := a.findPool(n)
	if pool == nil {
		a.prune()
		var err error
		if pool, err = a.newPool(n); err != nil {
			a.mu.Unlock()
			return nil, err
		}
	}
	a.mu.Unlock()

	pool.mu.Lock()
	sets, err := pool.handle.Allocate(layouts)
	pool.mu.Unlock()
	if err != nil {
		a.release(pool)
		err = errors.Wrapf(err, "failed to allocate %d descriptor sets from pool %d", n, pool.id)
		core.LogError(err.Error())
		return nil, err
	}

	return &DescriptorPoolAlloc{
		allocator: a,
		pool:      pool,
		sets:      sets,
	}, nil
}

// findPool returns the first live pool with room for n sets, already reserved.
// Must be called with a.mu held.
func (a *DescriptorPoolAllocator) findPool(n uint32) *descriptorPool {
	sawDead := false
	var found *descriptorPool
	for _, p := range a.pools {
		ok, dead := p.reserve(n)
		if dead {
			sawDead = true
			continue
		}
		if ok {
			found = p
			break
		}
	}
	if sawDead {
		a.prune()
	}
	return found
}

// prune drops dead entries. Must be called with a.mu held.
func (a *DescriptorPoolAllocator) prune() {
	live := a.pools[:0]
	for _, p := range a.pools {
		if !p.isDead() {
			live = append(live, p)
		}
	}
	for i := len(live); i < len(a.pools); i++ {
		a.pools[i] = nil
	}
	a.pools = live
}

// newPool creates and registers a pool with n sets already reserved.
// Must be called with a.mu held.
func (a *DescriptorPoolAllocator) newPool(n uint32) (*descriptorPool, error) {
	capacity := a.poolSize
	if n > capacity {
		capacity = n
	}
	handle, err := a.device.CreateDescriptorPool(capacity, capacity)
	if err != nil {
		err = errors.Wrap(err, "failed to create descriptor pool")
		core.LogError(err.Error())
		return nil, err
	}
	p := &descriptorPool{
		id:                   a.nextID,
		handle:               handle,
		capacity:             capacity,
		remainingSets:        capacity - n,
		remainingDescriptors: capacity - n,
		refs:                 1,
	}
	a.nextID++
	a.pools = append(a.pools, p)
	core.LogDebug("Descriptor pool %d created with capacity %d.", p.id, capacity)
	return p, nil
}

// UpdateUniform points binding 0 of each set in alloc at the buffer with the same index.
func (a *DescriptorPoolAllocator) UpdateUniform(alloc *DescriptorPoolAlloc, buffers []Buffer) error {
	if len(buffers) != len(alloc.sets) {
		return errors.Errorf("got %d uniform buffers for %d descriptor sets", len(buffers), len(alloc.sets))
	}
	for i, set := range alloc.sets {
		a.device.WriteUniformDescriptor(set, 0, buffers[i])
	}
	return nil
}

func (a *DescriptorPoolAllocator) release(p *descriptorPool) {
	p.mu.Lock()
	p.refs--
	if p.refs > 0 {
		p.mu.Unlock()
		return
	}
	p.dead = true
	handle := p.handle
	p.handle = nil
	p.mu.Unlock()

	if handle != nil {
		handle.Destroy()
	}
	core.LogDebug("Descriptor pool %d destroyed.", p.id)
}

type DescriptorPoolStats struct {
	ID                   PoolID
	Capacity             uint32
	RemainingSets        uint32
	RemainingDescriptors uint32
	Refs                 int32
	Dead                 bool
}

// Stats reports every registered pool, dead ones included until the next sweep.
func (a *DescriptorPoolAllocator) Stats() []DescriptorPoolStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	stats := make([]DescriptorPoolStats, 0, len(a.pools))
	for _, p := range a.pools {
		p.mu.Lock()
		stats = append(stats, DescriptorPoolStats{
			ID:                   p.id,
			Capacity:             p.capacity,
			RemainingSets:        p.remainingSets,
			RemainingDescriptors: p.remainingDescriptors,
			Refs:                 p.refs,
			Dead:                 p.dead,
		})
		p.mu.Unlock()
	}
	return stats
}

// LivePools counts pools that still hold a Vulkan pool.
func (a *DescriptorPoolAllocator) LivePools() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, p := range a.pools {
		if !p.isDead() {
			n++
		}
	}
	return n
}

// Destroy tears down every pool regardless of outstanding allocations.
func (a *DescriptorPoolAllocator) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.pools {
		p.mu.Lock()
		if !p.dead {
			if p.refs > 0 {
				core.LogWarn("Descriptor pool %d destroyed with %d live allocation(s).", p.id, p.refs)
			}
			if p.handle != nil {
				p.handle.Destroy()
				p.handle = nil
			}
			p.dead = true
		}
		p.mu.Unlock()
	}
	a.pools = nil
}
