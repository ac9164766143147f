package mqtt

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that stores messages published
// while the broker is unreachable. Oldest messages are overwritten when
// full; the drop count is reported on drain so the replay can log what
// was lost. Not safe for concurrent use; the caller must synchronize.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	head     int // next write position
	count    int
	dropped  int // messages overwritten since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if r.count == r.capacity {
		// Overwrite oldest: head is already pointing at it.
		r.dropped++
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
}

// drain returns all buffered messages oldest-first plus the number of
// messages dropped to overwrites, and empties the buffer.
func (r *ringBuffer) drain() ([]bufferedMsg, int) {
	dropped := r.dropped
	r.dropped = 0

	if r.count == 0 {
		return nil, dropped
	}

	result := make([]bufferedMsg, r.count)
	// Oldest item is at (head - count) mod capacity.
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	return result, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
