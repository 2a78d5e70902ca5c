package logging

import (
	"context"
	"sort"
	"sync"
)

// CorrelationContext is the ambient per-request logging context: a mutable
// set of fields mirrored from trace baggage so log lines carry trace-related
// metadata. One instance belongs to one logical request's call chain; it is
// installed into the context when a trace scope is entered and discarded with
// that context. Mutation is guarded because a logical request may span
// cooperating goroutines that share the context.
type CorrelationContext struct {
	mu     sync.RWMutex
	fields map[string]string
}

// NewCorrelationContext returns an empty correlation context.
func NewCorrelationContext() *CorrelationContext {
	return &CorrelationContext{fields: make(map[string]string)}
}

// Set stores a field value. An empty value removes the field so stale
// entries never outlive the baggage value they mirror.
func (c *CorrelationContext) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value == "" {
		delete(c.fields, key)
		return
	}
	c.fields[key] = value
}

// Get returns a field value and whether it is present.
func (c *CorrelationContext) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.fields[key]
	return v, ok
}

// Keys returns the present field names in sorted order.
func (c *CorrelationContext) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.fields))
	for k := range c.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the current fields.
func (c *CorrelationContext) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.fields))
	for k, v := range c.fields {
		out[k] = v
	}
	return out
}

type correlationKey struct{}

// WithCorrelation returns a context carrying the given correlation context.
func WithCorrelation(ctx context.Context, cc *CorrelationContext) context.Context {
	return context.WithValue(ctx, correlationKey{}, cc)
}

// CorrelationFrom returns the correlation context carried by ctx, or nil if
// none is installed.
func CorrelationFrom(ctx context.Context) *CorrelationContext {
	cc, _ := ctx.Value(correlationKey{}).(*CorrelationContext)
	return cc
}
