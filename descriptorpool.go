package vkcb

import (
	vk "github.com/goki/vulkan"
)

// DescriptorPool is a wrapper around one native vulkan descriptor pool.
type DescriptorPool struct {
	Device               *Device
	VKDescriptorPool     vk.DescriptorPool
	VKDescriptorPoolSize []vk.DescriptorPoolSize
}

// AddPoolSize informs the descriptor pool how many descriptors of a certain
// type it will contain. Must be called before the pool is created.
func (d *DescriptorPool) AddPoolSize(dtype vk.DescriptorType, count int) {
	d.VKDescriptorPoolSize = append(d.VKDescriptorPoolSize, vk.DescriptorPoolSize{
		Type:            dtype,
		DescriptorCount: uint32(count),
	})
}

// CreateDescriptorPool creates the native descriptor pool with the sizes
// registered on pool.
func (d *Device) CreateDescriptorPool(pool *DescriptorPool, maxSets int) (*DescriptorPool, error) {
	var descriptorPoolCreateInfo = vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(maxSets),
		PoolSizeCount: uint32(len(pool.VKDescriptorPoolSize)),
		PPoolSizes:    pool.VKDescriptorPoolSize,
	}

	var descriptorPool vk.DescriptorPool
	err := vk.Error(vk.CreateDescriptorPool(d.VKDevice, &descriptorPoolCreateInfo, nil, &descriptorPool))
	if err != nil {
		return nil, err
	}

	pool.Device = d
	pool.VKDescriptorPool = descriptorPool
	return pool, nil
}

// Allocate allocates a descriptor set from the pool given a descriptor set
// layout.
func (d *DescriptorPool) Allocate(layouts ...*DescriptorSetLayout) (*DescriptorSet, error) {
	descriptorSetAllocateInfo := vk.DescriptorSetAllocateInfo{}
	descriptorSetAllocateInfo.SType = vk.StructureTypeDescriptorSetAllocateInfo
	descriptorSetAllocateInfo.DescriptorPool = d.VKDescriptorPool
	descriptorSetAllocateInfo.DescriptorSetCount = uint32(len(layouts))

	dsl := make([]vk.DescriptorSetLayout, len(layouts))
	for i, ds := range layouts {
		dsl[i] = ds.VKDescriptorSetLayout
	}
	descriptorSetAllocateInfo.PSetLayouts = dsl

	var descriptorSet vk.DescriptorSet
	err := vk.Error(vk.AllocateDescriptorSets(d.Device.VKDevice, &descriptorSetAllocateInfo, &descriptorSet))
	if err != nil {
		return nil, err
	}

	return &DescriptorSet{
		Device:          d.Device,
		DescriptorPool:  d,
		VKDescriptorSet: descriptorSet,
	}, nil
}

// Reset reclaims all sets allocated from this pool in one operation.
func (d *DescriptorPool) Reset() error {
	return vk.Error(vk.ResetDescriptorPool(d.Device.VKDevice, d.VKDescriptorPool, 0))
}

func (d *DescriptorPool) Destroy() {
	vk.DestroyDescriptorPool(d.Device.VKDevice, d.VKDescriptorPool, nil)
}

// DescriptorPoolSetContainer is a batch of descriptor allocations tied to one
// command buffer recording. The buffer acquires a container at Begin and the
// container's pool is recycled wholesale once the buffer's fence signals, so
// individual set lifetimes never need tracking.
type DescriptorPoolSetContainer struct {
	Pool *DescriptorPool

	inUse bool
}

// InUse reports whether the container is currently attached to a command
// buffer.
func (c *DescriptorPoolSetContainer) InUse() bool {
	return c.inUse
}

// PoolSetManager hands out descriptor pool set containers in lockstep with
// command buffer recycling.
type PoolSetManager interface {
	// AcquirePoolSetContainer returns a container free of live allocations,
	// recycling a released one when available.
	AcquirePoolSetContainer() (*DescriptorPoolSetContainer, error)
	// ReleasePoolSet returns a container once the owning buffer's fence
	// signaled, making its allocations reclaimable.
	ReleasePoolSet(c *DescriptorPoolSetContainer)
}

// DescriptorPoolsManager is the vulkan-backed PoolSetManager. Containers are
// recycled through a reset of their underlying descriptor pool; new
// containers are only created when every existing one is attached to an
// in-flight buffer.
type DescriptorPoolsManager struct {
	Device *Device

	// MaxSets and PoolSizes shape each created descriptor pool.
	MaxSets   int
	PoolSizes []vk.DescriptorPoolSize

	containers []*DescriptorPoolSetContainer
}

// NewDescriptorPoolsManager creates a pool set manager whose descriptor pools
// hold maxSets sets shaped by poolSizes.
func NewDescriptorPoolsManager(device *Device, maxSets int, poolSizes []vk.DescriptorPoolSize) *DescriptorPoolsManager {
	return &DescriptorPoolsManager{
		Device:    device,
		MaxSets:   maxSets,
		PoolSizes: poolSizes,
	}
}

func (m *DescriptorPoolsManager) AcquirePoolSetContainer() (*DescriptorPoolSetContainer, error) {
	for _, c := range m.containers {
		if !c.inUse {
			c.inUse = true
			return c, nil
		}
	}

	pool := &DescriptorPool{VKDescriptorPoolSize: m.PoolSizes}
	if _, err := m.Device.CreateDescriptorPool(pool, m.MaxSets); err != nil {
		return nil, err
	}

	c := &DescriptorPoolSetContainer{Pool: pool, inUse: true}
	m.containers = append(m.containers, c)
	logger().Debug("descriptor pool set container created", "containers", len(m.containers))
	return c, nil
}

func (m *DescriptorPoolsManager) ReleasePoolSet(c *DescriptorPoolSetContainer) {
	if err := c.Pool.Reset(); err != nil {
		logger().Warn("descriptor pool reset failed on release", "error", err)
	}
	c.inUse = false
}

// Destroy destroys every descriptor pool the manager created.
func (m *DescriptorPoolsManager) Destroy() {
	for _, c := range m.containers {
		c.Pool.Destroy()
	}
	m.containers = nil
}

var _ PoolSetManager = (*DescriptorPoolsManager)(nil)
