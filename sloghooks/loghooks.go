// Package sloghooks reports pathmut events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/pathmut"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	SettledEvery  uint64
	// Log successful mutations too, not only failures.
	LogSuccess bool
	// Optional key redactor. Defaults to SHA-256 prefix.
	// Applies to cache storage keys; tree paths are logged as is.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	settledCtr  atomic.Uint64
}

var _ pathmut.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) MutationSettled(op pathmut.Op, key pathmut.PathKey, err error, elapsed time.Duration) {
	if h.l == nil {
		return
	}
	if err != nil {
		h.l.Warn("pathmut.mutation_failed",
			"op", string(op),
			"key", key.String(),
			"elapsed", elapsed,
			"err", err)
		return
	}
	if !h.opts.LogSuccess || !sample(h.opts.SettledEvery, &h.settledCtr) {
		return
	}
	h.l.Debug("pathmut.mutation_succeeded",
		"op", string(op),
		"key", key.String(),
		"elapsed", elapsed)
}

func (h *Hooks) TransactionAborted(key pathmut.PathKey) {
	if h.l == nil {
		return
	}
	h.l.Debug("pathmut.transaction_aborted", "key", key.String())
}

func (h *Hooks) InvalidationFailed(key pathmut.PathKey, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("pathmut.invalidation_failed",
		"key", key.String(),
		"err", err)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("pathmut.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("pathmut.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) GenBumpError(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("pathmut.gen_bump_error",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) InvalidateOutage(key string, bumpErr, delErr error) {
	if h.l == nil {
		return
	}
	h.l.Error("pathmut.invalidate_outage",
		"key", h.redact(key),
		"bump_err", bumpErr,
		"del_err", delErr)
}
