package vulkan

import (
	"sync"
	"sync/atomic"
)

type LockGroup string

const (
	SamplerManagement    LockGroup = "sampler_management"
	BufferManagement     LockGroup = "buffer_management"
	ImageManagement      LockGroup = "image_management"
	PipelineManagement   LockGroup = "pipeline_management"
	MemoryManagement     LockGroup = "memory_management"
	DescriptorManagement LockGroup = "descriptor_management"
)

// Mutex pool
type VulkanLockPool struct {
	locks map[LockGroup]*sync.Mutex
	mu    sync.Mutex // Protects access to the locks map

	queueMutexes map[uint32]*sync.Mutex // Queue family index as key
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

// Get or create the mutex of a group.
func (vs *VulkanLockPool) lock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	l, exists := vs.locks[group]
	if !exists {
		l = &sync.Mutex{}
		vs.locks[group] = l
	}
	return l
}

func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.lock(group)
	l.Lock()
	defer l.Unlock()

	return fn()
}

func (vs *VulkanLockPool) SetQueueFamily(index uint32) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, exists := vs.queueMutexes[index]; !exists {
		vs.queueMutexes[index] = &sync.Mutex{}
	}
}

// SafeQueueCall serializes access to a queue. vkQueueSubmit and
// vkQueuePresentKHR require external synchronization of the queue.
func (vs *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	vs.mu.Lock()
	l, ok := vs.queueMutexes[queueFamilyIndex]
	if !ok {
		l = &sync.Mutex{}
		vs.queueMutexes[queueFamilyIndex] = l
	}
	vs.mu.Unlock()

	l.Lock()
	defer l.Unlock()

	return fn()
}

// handleTable maps the opaque handles given out by the backend to the
// Vulkan objects behind them. Every table shares one id counter so a
// handle never names two objects.
type handleTable[T any] struct {
	group LockGroup
	locks *VulkanLockPool
	ids   *atomic.Uint64
	items map[uint64]T
}

func newHandleTable[T any](group LockGroup, locks *VulkanLockPool, ids *atomic.Uint64) *handleTable[T] {
	return &handleTable[T]{
		group: group,
		locks: locks,
		ids:   ids,
		items: make(map[uint64]T),
	}
}

func (t *handleTable[T]) put(v T) uint64 {
	id := t.ids.Add(1)
	t.locks.SafeCall(t.group, func() error {
		t.items[id] = v
		return nil
	})
	return id
}

func (t *handleTable[T]) get(id uint64) (T, bool) {
	var v T
	var ok bool
	t.locks.SafeCall(t.group, func() error {
		v, ok = t.items[id]
		return nil
	})
	return v, ok
}

func (t *handleTable[T]) take(id uint64) (T, bool) {
	var v T
	var ok bool
	t.locks.SafeCall(t.group, func() error {
		v, ok = t.items[id]
		delete(t.items, id)
		return nil
	})
	return v, ok
}

func (t *handleTable[T]) len() int {
	var n int
	t.locks.SafeCall(t.group, func() error {
		n = len(t.items)
		return nil
	})
	return n
}

// deleteWhere drops every entry matching fn and returns how many it dropped.
func (t *handleTable[T]) deleteWhere(fn func(T) bool) int {
	var n int
	t.locks.SafeCall(t.group, func() error {
		for id, v := range t.items {
			if fn(v) {
				delete(t.items, id)
				n++
			}
		}
		return nil
	})
	return n
}

// drain empties the table and returns what it held.
func (t *handleTable[T]) drain() []T {
	var out []T
	t.locks.SafeCall(t.group, func() error {
		out = make([]T, 0, len(t.items))
		for id, v := range t.items {
			out = append(out, v)
			delete(t.items, id)
		}
		return nil
	})
	return out
}
