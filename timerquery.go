package vkcb

import (
	"fmt"
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// ErrQueryNotReady is returned by TimestampQuery.Result while the GPU has not
// yet produced all of the query's timestamps.
var ErrQueryNotReady = fmt.Errorf("timer query results not available yet")

// TimestampQuery measures GPU time between Begin and End using a timestamp
// query pool. Because the active command buffer can be submitted while the
// query is still open, the measured interval is recorded as a list of
// segments: Interrupt closes the current segment on the outgoing buffer and
// Resume opens the next one on the new buffer. Result sums the segments.
//
// Register the query with CommandBufferManager.OnQueryBegin so the manager
// drives Interrupt and Resume at buffer swap boundaries.
type TimestampQuery struct {
	Device *Device

	// Period is the duration of one timestamp tick in nanoseconds, from the
	// physical device limits.
	Period float64

	pool      vk.QueryPool
	capacity  uint32
	nextQuery uint32

	segments []timestampSegment
	active   bool
	paused   bool
}

// timestampSegment is a begin/end pair of query indices. end is only valid
// once closed is set.
type timestampSegment struct {
	begin  uint32
	end    uint32
	closed bool
}

// CreateTimestampQuery creates a timestamp query with room for capacity
// timestamps (two per segment). periodNanos is the device's nanoseconds per
// timestamp tick.
func (d *Device) CreateTimestampQuery(capacity int, periodNanos float64) (*TimestampQuery, error) {
	var createInfo = vk.QueryPoolCreateInfo{}
	createInfo.SType = vk.StructureTypeQueryPoolCreateInfo
	createInfo.QueryType = vk.QueryTypeTimestamp
	createInfo.QueryCount = uint32(capacity)

	var pool vk.QueryPool
	err := vk.Error(vk.CreateQueryPool(d.VKDevice, &createInfo, nil, &pool))
	if err != nil {
		return nil, err
	}

	return &TimestampQuery{
		Device:   d,
		Period:   periodNanos,
		pool:     pool,
		capacity: uint32(capacity),
	}, nil
}

// Begin starts the measured interval, recording the opening timestamp into
// cmdBuffer. Any previous measurement is discarded.
func (q *TimestampQuery) Begin(cmdBuffer *CommandBuffer) {
	vk.CmdResetQueryPool(cmdBuffer.VK(), q.pool, 0, q.capacity)
	q.nextQuery = 0
	q.segments = q.segments[:0]
	q.active = true
	q.paused = false
	q.openSegment(cmdBuffer)
}

// End closes the measured interval, recording the closing timestamp into
// cmdBuffer.
func (q *TimestampQuery) End(cmdBuffer *CommandBuffer) {
	if !q.active {
		return
	}
	if !q.paused {
		q.closeSegment(cmdBuffer)
	}
	q.active = false
}

// Interrupt closes the current segment on the buffer about to be submitted.
// Called by the manager; see TimerQuery.
func (q *TimestampQuery) Interrupt(cmdBuffer *CommandBuffer) {
	if !q.active || q.paused {
		return
	}
	q.closeSegment(cmdBuffer)
	q.paused = true
}

// Resume opens the next segment on the newly begun buffer. Called by the
// manager; see TimerQuery.
func (q *TimestampQuery) Resume(cmdBuffer *CommandBuffer) {
	if !q.active || !q.paused {
		return
	}
	q.openSegment(cmdBuffer)
	q.paused = false
}

func (q *TimestampQuery) openSegment(cmdBuffer *CommandBuffer) {
	if q.nextQuery+2 > q.capacity {
		// Out of query slots; the remaining interval goes unmeasured.
		return
	}
	vk.CmdWriteTimestamp(cmdBuffer.VK(), vk.PipelineStageBottomOfPipeBit, q.pool, q.nextQuery)
	q.segments = append(q.segments, timestampSegment{begin: q.nextQuery})
	q.nextQuery++
}

func (q *TimestampQuery) closeSegment(cmdBuffer *CommandBuffer) {
	if len(q.segments) == 0 {
		return
	}
	seg := &q.segments[len(q.segments)-1]
	if seg.closed {
		return
	}
	vk.CmdWriteTimestamp(cmdBuffer.VK(), vk.PipelineStageBottomOfPipeBit, q.pool, q.nextQuery)
	seg.end = q.nextQuery
	seg.closed = true
	q.nextQuery++
}

// Result returns the summed GPU time of all recorded segments. It returns
// ErrQueryNotReady while the submissions carrying the timestamps have not
// completed on the GPU.
func (q *TimestampQuery) Result() (time.Duration, error) {
	if q.active {
		return 0, fmt.Errorf("Result called on a query still in progress: %w", ErrQueryNotReady)
	}
	if q.nextQuery == 0 {
		return 0, nil
	}

	data := make([]uint64, q.nextQuery)
	ret := vk.GetQueryPoolResults(q.Device.VKDevice, q.pool, 0, q.nextQuery,
		uint64(len(data)*8), unsafe.Pointer(&data[0]), 8,
		vk.QueryResultFlags(vk.QueryResult64Bit))
	if ret == vk.NotReady {
		return 0, ErrQueryNotReady
	}
	if err := vk.Error(ret); err != nil {
		return 0, err
	}

	var ticks uint64
	for _, seg := range q.segments {
		if seg.closed {
			ticks += data[seg.end] - data[seg.begin]
		}
	}
	return time.Duration(float64(ticks) * q.Period), nil
}

// Destroy destroys the underlying query pool.
func (q *TimestampQuery) Destroy() {
	vk.DestroyQueryPool(q.Device.VKDevice, q.pool, nil)
	q.pool = nil
}

var _ TimerQuery = (*TimestampQuery)(nil)
