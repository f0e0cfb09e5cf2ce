package pathmut

import (
	"context"
	"fmt"
)

// invalidateRelated drops every cached read related to key. Failures and
// panics are reported and swallowed: a completed write never turns into an
// error here.
func (c *Client) invalidateRelated(ctx context.Context, key PathKey) {
	if c.cache == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			c.invalidationFailed(key, 0, fmt.Errorf("panic: %v", p))
		}
	}()
	n, err := c.cache.InvalidateMatching(ctx, func(raw string) bool {
		k, ok := ParseKey(raw)
		return ok && k.Related(key)
	})
	if err != nil {
		c.invalidationFailed(key, n, err)
		return
	}
	c.log.Debug("invalidated related reads", Fields{"key": key.String(), "invalidated": n})
}

func (c *Client) invalidationFailed(key PathKey, n int, err error) {
	c.hooks.InvalidationFailed(key, &InvalidationError{Key: key, Err: err})
	c.log.Warn("invalidation failed", Fields{"key": key.String(), "invalidated": n, "err": err})
}
