package mqtt

// inboundMsg stores a received message until the next Pump.
type inboundMsg struct {
	topic   string
	payload []byte
}

// ringBuffer is a fixed-capacity FIFO that holds inbound messages between
// pumps.
// Not safe for concurrent use; the caller synchronizes.
type ringBuffer struct {
	buf      []inboundMsg
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any message was dropped since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{
		buf:      make([]inboundMsg, capacity),
		capacity: capacity,
	}
}

// push appends msg, overwriting the oldest message when full.
// Returns true only for the first drop since the last drain.
func (r *ringBuffer) push(msg inboundMsg) bool {
	if r.count == r.capacity {
		first := !r.overflow
		r.overflow = true
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		return first
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
	return false
}

func (r *ringBuffer) drainAll() []inboundMsg {
	if r.count == 0 {
		return nil
	}

	result := make([]inboundMsg, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
		r.buf[(start+i)%r.capacity] = inboundMsg{}
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
