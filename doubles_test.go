package vkcb

import (
	"time"

	vk "github.com/goki/vulkan"
)

// fakeDevice records the native calls the pool and its buffers would issue,
// without touching Vulkan.
type fakeDevice struct {
	poolsCreated   int
	poolsDestroyed int
	poolFamily     uint32
	allocated      int
	freed          int

	begins int
	ends   int
	resets int

	renderPassBegins int
	renderPassDepth  int

	labelsSupported bool
	labelNames      []string
	labelsEnded     int
	openLabels      int

	beginErr error
	endErr   error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{labelsSupported: true}
}

func (d *fakeDevice) CreateCommandPool(queueFamilyIndex uint32) (vk.CommandPool, error) {
	d.poolsCreated++
	d.poolFamily = queueFamilyIndex
	return nil, nil
}

func (d *fakeDevice) DestroyCommandPool(pool vk.CommandPool) {
	d.poolsDestroyed++
}

func (d *fakeDevice) AllocateCommandBuffer(pool vk.CommandPool) (vk.CommandBuffer, error) {
	d.allocated++
	return nil, nil
}

func (d *fakeDevice) FreeCommandBuffer(pool vk.CommandPool, buffer vk.CommandBuffer) {
	d.freed++
}

func (d *fakeDevice) BeginCommandBuffer(buffer vk.CommandBuffer) error {
	if d.beginErr != nil {
		return d.beginErr
	}
	d.begins++
	return nil
}

func (d *fakeDevice) EndCommandBuffer(buffer vk.CommandBuffer) error {
	if d.endErr != nil {
		return d.endErr
	}
	d.ends++
	return nil
}

func (d *fakeDevice) ResetCommandBuffer(buffer vk.CommandBuffer) error {
	d.resets++
	return nil
}

func (d *fakeDevice) CmdBeginRenderPass(buffer vk.CommandBuffer, pass *RenderPass, framebuffer *Framebuffer, clearValues []vk.ClearValue) {
	d.renderPassBegins++
	d.renderPassDepth++
}

func (d *fakeDevice) CmdEndRenderPass(buffer vk.CommandBuffer) {
	d.renderPassDepth--
}

func (d *fakeDevice) CmdBeginDebugLabel(buffer vk.CommandBuffer, name string) bool {
	if !d.labelsSupported {
		return false
	}
	d.labelNames = append(d.labelNames, name)
	d.openLabels++
	return true
}

func (d *fakeDevice) CmdEndDebugLabel(buffer vk.CommandBuffer) {
	d.openLabels--
	d.labelsEnded++
}

// fakeFenceService hands out fences whose signal state tests flip directly.
type fakeFenceService struct {
	allocated int
	released  int

	waitResult      bool
	waits           []time.Duration
	waitAndReleases []time.Duration
}

func newFakeFenceService() *fakeFenceService {
	return &fakeFenceService{waitResult: true}
}

func (s *fakeFenceService) AllocateFence() (*Fence, error) {
	s.allocated++
	return &Fence{}, nil
}

func (s *fakeFenceService) IsFenceSignaled(f *Fence) bool {
	return f.signaled
}

func (s *fakeFenceService) ResetFence(f *Fence) error {
	f.signaled = false
	return nil
}

func (s *fakeFenceService) ReleaseFence(f *Fence) {
	s.released++
}

func (s *fakeFenceService) WaitForFence(f *Fence, timeout time.Duration) bool {
	s.waits = append(s.waits, timeout)
	if s.waitResult {
		f.signaled = true
	}
	return s.waitResult
}

func (s *fakeFenceService) WaitAndReleaseFence(f *Fence, timeout time.Duration) {
	s.waitAndReleases = append(s.waitAndReleases, timeout)
	s.released++
}

// fakeSubmitter records submissions instead of hitting a queue.
type fakeSubmitter struct {
	family    uint32
	submitted []*CommandBuffer
	signals   [][]*Semaphore
	err       error
}

func (q *fakeSubmitter) Submit(cmdBuffer *CommandBuffer, signalSemaphores ...*Semaphore) error {
	if q.err != nil {
		return q.err
	}
	q.submitted = append(q.submitted, cmdBuffer)
	q.signals = append(q.signals, signalSemaphores)
	return nil
}

func (q *fakeSubmitter) FamilyIndex() uint32 {
	return q.family
}

// fakePoolSets counts container handouts.
type fakePoolSets struct {
	acquired int
	released int
}

func (p *fakePoolSets) AcquirePoolSetContainer() (*DescriptorPoolSetContainer, error) {
	p.acquired++
	return &DescriptorPoolSetContainer{inUse: true}, nil
}

func (p *fakePoolSets) ReleasePoolSet(c *DescriptorPoolSetContainer) {
	p.released++
	c.inUse = false
}

// fakeQuery records the buffers it was interrupted and resumed on.
type fakeQuery struct {
	interrupts []*CommandBuffer
	resumes    []*CommandBuffer
}

func (q *fakeQuery) Interrupt(cmdBuffer *CommandBuffer) {
	q.interrupts = append(q.interrupts, cmdBuffer)
}

func (q *fakeQuery) Resume(cmdBuffer *CommandBuffer) {
	q.resumes = append(q.resumes, cmdBuffer)
}

type testEnv struct {
	device   *fakeDevice
	fences   *fakeFenceService
	queue    *fakeSubmitter
	poolSets *fakePoolSets
}

func newTestEnv() *testEnv {
	return &testEnv{
		device:   newFakeDevice(),
		fences:   newFakeFenceService(),
		queue:    &fakeSubmitter{},
		poolSets: &fakePoolSets{},
	}
}

func (e *testEnv) newPool() *CommandBufferPool {
	pool := NewCommandBufferPool(e.device, e.fences, e.poolSets)
	if err := pool.Init(0); err != nil {
		panic(err)
	}
	return pool
}

func (e *testEnv) newManager() *CommandBufferManager {
	m, err := NewCommandBufferManager(e.device, e.queue, e.fences, e.poolSets)
	if err != nil {
		panic(err)
	}
	return m
}

// signalFence marks a buffer's fence signaled, simulating GPU completion of
// its last submission.
func signalFence(cmdBuffer *CommandBuffer) {
	cmdBuffer.fence.signaled = true
}
