// Package metricshooks counts pathmut events in a VictoriaMetrics set.
//
//	h := metricshooks.New()
//	client := pathmut.New(pathmut.Options{Hooks: h})
//	...
//	h.WritePrometheus(w)
package metricshooks

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/unkn0wn-root/pathmut"
)

type Hooks struct {
	set *metrics.Set

	aborted            *metrics.Counter
	invalidationFailed *metrics.Counter
	providerRejected   *metrics.Counter
	genBumpErrors      *metrics.Counter
	invalidateOutages  *metrics.Counter
}

var _ pathmut.Hooks = (*Hooks)(nil)

func New() *Hooks {
	s := metrics.NewSet()
	return &Hooks{
		set:                s,
		aborted:            s.NewCounter("pathmut_transactions_aborted_total"),
		invalidationFailed: s.NewCounter("pathmut_invalidations_failed_total"),
		providerRejected:   s.NewCounter("pathmut_cache_set_rejected_total"),
		genBumpErrors:      s.NewCounter("pathmut_cache_gen_bump_errors_total"),
		invalidateOutages:  s.NewCounter("pathmut_cache_invalidate_outages_total"),
	}
}

// Set exposes the underlying set, e.g. for metrics.RegisterSet.
func (h *Hooks) Set() *metrics.Set { return h.set }

func (h *Hooks) WritePrometheus(w io.Writer) { h.set.WritePrometheus(w) }

func (h *Hooks) MutationSettled(op pathmut.Op, _ pathmut.PathKey, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.set.GetOrCreateCounter(fmt.Sprintf(`pathmut_mutations_total{op=%q,status=%q}`, op, status)).Inc()
	h.set.GetOrCreateHistogram(fmt.Sprintf(`pathmut_mutation_duration_seconds{op=%q}`, op)).Update(elapsed.Seconds())
}

func (h *Hooks) TransactionAborted(pathmut.PathKey)        { h.aborted.Inc() }
func (h *Hooks) InvalidationFailed(pathmut.PathKey, error) { h.invalidationFailed.Inc() }

func (h *Hooks) SelfHeal(_, reason string) {
	h.set.GetOrCreateCounter(fmt.Sprintf(`pathmut_cache_self_heal_total{reason=%q}`, reason)).Inc()
}

func (h *Hooks) ProviderSetRejected(string)            { h.providerRejected.Inc() }
func (h *Hooks) GenBumpError(string, error)            { h.genBumpErrors.Inc() }
func (h *Hooks) InvalidateOutage(string, error, error) { h.invalidateOutages.Inc() }
