package pagination

import "sync"

// Controller tracks the current page of one listing view.
//
// Total pages are unknown until the first page of a query arrives. GoTo and
// Next issued before that are remembered and applied by SetTotal.
type Controller struct {
	mu       sync.Mutex
	current  int
	total    int
	queryKey string
	deferred int
}

func NewController() *Controller {
	return &Controller{current: 1}
}

// Current returns the current page, starting at 1.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Total returns the last known page count, 0 when unknown.
func (c *Controller) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Next advances one page. It is a no-op on the last page.
func (c *Controller) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.total == 0 {
		base := c.current
		if c.deferred > 0 {
			base = c.deferred
		}
		c.deferred = base + 1
		return false
	}
	if c.current >= c.total {
		return false
	}
	c.current++
	return true
}

// Prev goes back one page. It is a no-op on the first page.
func (c *Controller) Prev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deferred > 0 {
		c.deferred--
		if c.deferred <= c.current {
			c.deferred = 0
		}
		return false
	}
	if c.current <= 1 {
		return false
	}
	c.current--
	return true
}

// GoTo moves to page n clamped to [1, total]. With the total still unknown
// the move is deferred.
func (c *Controller) GoTo(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.total == 0 {
		c.deferred = max(n, 1)
		return false
	}
	return c.moveLocked(n)
}

// SetTotal records the page count reported with a loaded page, applies any
// deferred move and clamps the current page. It reports whether the current
// page changed.
func (c *Controller) SetTotal(total int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total = max(total, 1)
	target := c.current
	if c.deferred > 0 {
		target = c.deferred
		c.deferred = 0
	}
	return c.moveLocked(target)
}

// ResetForQuery returns to page 1 when key differs from the last query seen.
// Repeated calls with the same key do nothing, so a burst of edits that
// settles on one query resets once.
func (c *Controller) ResetForQuery(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key == c.queryKey {
		return false
	}
	c.queryKey = key
	c.total = 0
	c.deferred = 0
	changed := c.current != 1
	c.current = 1
	return changed
}

// Restore adopts a query and page taken from an address. The page is
// clamped once the total is known.
func (c *Controller) Restore(key string, page int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key != c.queryKey {
		c.total = 0
	}
	c.queryKey = key
	c.deferred = 0
	c.current = max(page, 1)
	if c.total > 0 {
		c.moveLocked(c.current)
	}
}

func (c *Controller) moveLocked(n int) bool {
	n = min(max(n, 1), max(c.total, 1))
	if n == c.current {
		return false
	}
	c.current = n
	return true
}
