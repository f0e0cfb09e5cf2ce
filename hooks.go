package pathmut

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// Mutations and the query cache call them on hot paths.
type Hooks interface {
	// A mutation invocation settled. err is nil on success.
	MutationSettled(op Op, key PathKey, err error, elapsed time.Duration)

	// A transaction update function aborted; the mutation still succeeded.
	TransactionAborted(key PathKey)

	// Invalidation after a successful write failed; the write stays successful.
	InvalidationFailed(key PathKey, err error)

	// A cached entry was dropped on read.
	// reason ∈ {"corrupt", "gen_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// GenStore bump failed during invalidation.
	GenBumpError(storageKey string, err error)

	// Both gen bump and delete failed during invalidation (likely backend outage).
	InvalidateOutage(key string, bumpErr, delErr error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) MutationSettled(Op, PathKey, error, time.Duration) {}
func (NopHooks) TransactionAborted(PathKey)                        {}
func (NopHooks) InvalidationFailed(PathKey, error)                 {}
func (NopHooks) SelfHeal(string, string)                           {}
func (NopHooks) ProviderSetRejected(string)                        {}
func (NopHooks) GenBumpError(string, error)                        {}
func (NopHooks) InvalidateOutage(string, error, error)             {}
