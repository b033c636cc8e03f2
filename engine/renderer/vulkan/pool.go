package vulkan

import "sync"

type LockGroup string

const (
	CommandPoolManagement LockGroup = "command_pool_management"
	PipelineManagement    LockGroup = "pipeline_management"
	DescriptorManagement  LockGroup = "descriptor_management"
	MemoryManagement      LockGroup = "memory_management"
)

// VulkanLockPool hands out one mutex per object group and one per queue family.
// Vulkan requires external synchronization for command pools, descriptor pools
// and queues.
type VulkanLockPool struct {
	mu     sync.Mutex
	locks  map[LockGroup]*sync.Mutex
	queues map[uint32]*sync.Mutex
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:  make(map[LockGroup]*sync.Mutex),
		queues: make(map[uint32]*sync.Mutex),
	}
}

func (p *VulkanLockPool) group(g LockGroup) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[g]
	if !ok {
		l = &sync.Mutex{}
		p.locks[g] = l
	}
	return l
}

func (p *VulkanLockPool) queue(family uint32) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.queues[family]
	if !ok {
		l = &sync.Mutex{}
		p.queues[family] = l
	}
	return l
}

// SafeCall runs fn holding the lock of group.
func (p *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	var err error
	p.Locked(group, func() { err = fn() })
	return err
}

// Locked is SafeCall for calls that cannot fail, such as destroys and
// descriptor updates.
func (p *VulkanLockPool) Locked(group LockGroup, fn func()) {
	l := p.group(group)
	l.Lock()
	defer l.Unlock()
	fn()
}

// SafeQueueCall runs fn holding the lock of the queue family. Families that
// share a queue must share the index.
func (p *VulkanLockPool) SafeQueueCall(family uint32, fn func() error) error {
	var err error
	p.LockedQueue(family, func() { err = fn() })
	return err
}

func (p *VulkanLockPool) LockedQueue(family uint32, fn func()) {
	l := p.queue(family)
	l.Lock()
	defer l.Unlock()
	fn()
}
