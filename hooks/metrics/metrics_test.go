package metricshooks

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/unkn0wn-root/pathmut"
)

func TestCountsMutationsByOpAndStatus(t *testing.T) {
	h := New()
	h.MutationSettled(pathmut.OpSet, "/a", nil, 5*time.Millisecond)
	h.MutationSettled(pathmut.OpSet, "/a", nil, 5*time.Millisecond)
	h.MutationSettled(pathmut.OpUpdate, "/a", errors.New("denied"), time.Millisecond)
	h.TransactionAborted("/a")
	h.SelfHeal("q:ns:/a", "gen_mismatch")

	var buf bytes.Buffer
	h.WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, `pathmut_mutations_total{op="set",status="ok"} 2`)
	assert.Contains(t, out, `pathmut_mutations_total{op="update",status="error"} 1`)
	assert.Contains(t, out, `pathmut_transactions_aborted_total 1`)
	assert.Contains(t, out, `pathmut_cache_self_heal_total{reason="gen_mismatch"} 1`)
	assert.Contains(t, out, `pathmut_mutation_duration_seconds_bucket{op="set"`)
}

func TestSetsAreIsolated(t *testing.T) {
	a, b := New(), New()
	a.InvalidationFailed("/a", errors.New("x"))

	var buf bytes.Buffer
	b.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), "pathmut_invalidations_failed_total 0")
}
