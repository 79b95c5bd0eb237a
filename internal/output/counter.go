package output

// Counter numbers output and backup shards. A nil *Counter means sharding is
// disabled and everything lands in a single flat directory. Once allocated, a
// counter only moves forward.
type Counter struct {
	n int
}

// NewCounter allocates a counter starting at n.
func NewCounter(n int) *Counter {
	return &Counter{n: n}
}

// Value returns the current count; zero for a nil counter.
func (c *Counter) Value() int {
	if c == nil {
		return 0
	}
	return c.n
}

// Inc advances the counter by one document.
func (c *Counter) Inc() {
	if c != nil {
		c.n++
	}
}

// Advance moves the counter forward by a whole batch.
func (c *Counter) Advance(n int) {
	if c != nil && n > 0 {
		c.n += n
	}
}
