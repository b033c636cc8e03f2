package vulkan

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestLockPoolSerializesGroup(t *testing.T) {
	p := NewVulkanLockPool()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Locked(DescriptorManagement, func() {
				counter++
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestLockPoolGroupsAreIndependent(t *testing.T) {
	p := NewVulkanLockPool()
	// a nested call on another group or queue must not deadlock
	err := p.SafeCall(CommandPoolManagement, func() error {
		return p.SafeCall(MemoryManagement, func() error {
			return p.SafeQueueCall(0, func() error { return nil })
		})
	})
	assert.NoError(t, err)
}

func TestLockPoolReturnsError(t *testing.T) {
	p := NewVulkanLockPool()
	want := errors.New("boom")
	assert.Equal(t, want, p.SafeQueueCall(1, func() error { return want }))
	assert.Equal(t, want, p.SafeCall(PipelineManagement, func() error { return want }))
}

func TestLockPoolQueueSerializesFamily(t *testing.T) {
	p := NewVulkanLockPool()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.SafeQueueCall(2, func() error {
				counter++
				return nil
			}))
			p.LockedQueue(2, func() { counter++ })
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}
