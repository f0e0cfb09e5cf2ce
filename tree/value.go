package tree

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Normalize converts an arbitrary Go value into the stored tree form.
// Null members and empty objects are pruned, arrays become index-keyed
// objects and priorities in export format are kept. A result of nil means
// the value deletes the node.
func Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("tree: encode value: %w", err)
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("tree: decode value: %w", err)
	}
	return normalize(raw)
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, float64, string:
		return x, nil
	case []any:
		m := make(map[string]any, len(x))
		for i, c := range x {
			m[strconv.Itoa(i)] = c
		}
		return normalize(m)
	case map[string]any:
		return normalizeMap(x)
	default:
		return nil, fmt.Errorf("tree: unsupported value type %T", v)
	}
}

func normalizeMap(m map[string]any) (any, error) {
	prio, hasPrio := m[PriorityKey]
	if hasPrio {
		if err := validatePriority(prio); err != nil {
			return nil, err
		}
	}
	if inner, ok := m[ValueKey]; ok {
		if len(m) > 2 || (len(m) == 2 && !hasPrio) {
			return nil, fmt.Errorf("%w: %q must not have siblings", ErrInvalidPath, ValueKey)
		}
		n, err := normalize(inner)
		if err != nil {
			return nil, err
		}
		return WithPriority(n, prio), nil
	}

	out := make(map[string]any, len(m))
	for k, c := range m {
		if k == PriorityKey {
			continue
		}
		if err := ValidateKey(k); err != nil {
			return nil, err
		}
		n, err := normalize(c)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out[k] = n
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	if hasPrio && prio != nil {
		out[PriorityKey] = prio
	}
	return out, nil
}

func validatePriority(p any) error {
	switch p.(type) {
	case nil, float64, string:
		return nil
	default:
		return fmt.Errorf("tree: priority must be a number or a string, got %T", p)
	}
}

// NormalizePriority converts numeric priorities to float64.
func NormalizePriority(p any) (any, error) {
	switch x := p.(type) {
	case nil, string, float64:
		return x, nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float32:
		return float64(x), nil
	default:
		return nil, fmt.Errorf("tree: priority must be a number or a string, got %T", p)
	}
}

// WithPriority attaches p to the stored node n. A nil p returns n unchanged.
func WithPriority(n, p any) any {
	if n == nil || p == nil {
		return n
	}
	if m, ok := n.(map[string]any); ok {
		out := make(map[string]any, len(m)+1)
		for k, c := range m {
			out[k] = c
		}
		out[PriorityKey] = p
		return out
	}
	return map[string]any{ValueKey: n, PriorityKey: p}
}

// PriorityOf returns the priority of a stored node, or nil.
func PriorityOf(n any) any {
	if m, ok := n.(map[string]any); ok {
		return m[PriorityKey]
	}
	return nil
}

// Lookup returns the stored node at segs below root, or nil.
func Lookup(root any, segs []string) any {
	n := root
	for _, s := range segs {
		m, ok := n.(map[string]any)
		if !ok {
			return nil
		}
		if _, leaf := m[ValueKey]; leaf {
			return nil
		}
		n = m[s]
		if n == nil {
			return nil
		}
	}
	return n
}

// Replace returns a copy of root with the node at segs replaced by v.
// v must already be normalized; nil removes the node. Ancestors left
// without children are pruned. Unchanged branches are shared with root.
func Replace(root any, segs []string, v any) any {
	if len(segs) == 0 {
		return v
	}
	m := childMap(root)
	child := Replace(m[segs[0]], segs[1:], v)
	if child == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}
	for k := range m {
		if k != PriorityKey {
			return m
		}
	}
	return nil
}

func childMap(n any) map[string]any {
	src, _ := n.(map[string]any)
	out := make(map[string]any, len(src)+1)
	if _, leaf := src[ValueKey]; leaf {
		if p, ok := src[PriorityKey]; ok {
			out[PriorityKey] = p
		}
		return out
	}
	for k, c := range src {
		out[k] = c
	}
	return out
}

// Strip returns a fresh copy of the stored node without priority metadata.
// Objects whose keys form a dense index range are returned as arrays.
func Strip(n any) any {
	m, ok := n.(map[string]any)
	if !ok {
		return n
	}
	if inner, leaf := m[ValueKey]; leaf {
		return Strip(inner)
	}
	out := make(map[string]any, len(m))
	for k, c := range m {
		if k == PriorityKey {
			continue
		}
		out[k] = Strip(c)
	}
	if arr, ok := asArray(out); ok {
		return arr
	}
	return out
}

func asArray(m map[string]any) ([]any, bool) {
	maxIdx := -1
	for k := range m {
		i, ok := arrayIndex(k)
		if !ok {
			return nil, false
		}
		if i > maxIdx {
			maxIdx = i
		}
	}
	if maxIdx < 0 || maxIdx >= 2*len(m) {
		return nil, false
	}
	arr := make([]any, maxIdx+1)
	for k, c := range m {
		i, _ := arrayIndex(k)
		arr[i] = c
	}
	return arr, true
}

func arrayIndex(k string) (int, bool) {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return 0, false
	}
	i, err := strconv.Atoi(k)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Clone deep-copies a stored node.
func Clone(n any) any {
	m, ok := n.(map[string]any)
	if !ok {
		return n
	}
	out := make(map[string]any, len(m))
	for k, c := range m {
		out[k] = Clone(c)
	}
	return out
}

// Equal compares two stored nodes, priorities included.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Children returns the child keys of a stored node in priority order:
// nodes without priority first, then numeric priorities ascending, then
// string priorities; ties are broken by key, integer keys first.
func Children(n any) []string {
	m, ok := n.(map[string]any)
	if !ok {
		return nil
	}
	if _, leaf := m[ValueKey]; leaf {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != PriorityKey {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := comparePriority(PriorityOf(m[keys[i]]), PriorityOf(m[keys[j]])); c != 0 {
			return c < 0
		}
		return compareKeys(keys[i], keys[j]) < 0
	})
	return keys
}

func priorityRank(p any) int {
	switch p.(type) {
	case nil:
		return 0
	case float64:
		return 1
	default:
		return 2
	}
}

func comparePriority(a, b any) int {
	ra, rb := priorityRank(a), priorityRank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func compareKeys(a, b string) int {
	ia, aInt := arrayIndex(a)
	ib, bInt := arrayIndex(b)
	switch {
	case aInt && bInt:
		return ia - ib
	case aInt:
		return -1
	case bInt:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
