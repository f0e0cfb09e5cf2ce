package codec

import (
	"errors"
	"reflect"
	"testing"
)

type score struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestConvertTreeValueToStruct(t *testing.T) {
	tree := map[string]any{"name": "ada", "value": float64(11)}
	got, err := Convert[any, score](tree, JSON[any]{}, JSON[score]{})
	if err != nil {
		t.Fatal(err)
	}
	if got != (score{Name: "ada", Value: 11}) {
		t.Fatalf("got %+v", got)
	}
}

func TestCBORDecodesMapsAsStringKeyed(t *testing.T) {
	c := MustCBOR[any](true)
	b, err := c.Encode(map[string]any{"a": map[string]any{"b": "x"}})
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", v)
	}
	if _, ok := m["a"].(map[string]any); !ok {
		t.Fatalf("nested map has type %T", m["a"])
	}
}

func TestMsgpackFollowsJSONTags(t *testing.T) {
	c := Msgpack[score]{}
	b, err := c.Encode(score{Name: "x", Value: 3})
	if err != nil {
		t.Fatal(err)
	}
	asMap, err := Msgpack[map[string]any]{}.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := asMap["name"]; !ok {
		t.Fatalf("expected json tag names, got %v", asMap)
	}
	back, err := c.Decode(b)
	if err != nil || back != (score{Name: "x", Value: 3}) {
		t.Fatalf("round trip: %+v err=%v", back, err)
	}
}

func TestTreeProtoKeepsTreeShape(t *testing.T) {
	in := map[string]any{"foo": float64(10), "bar": map[string]any{"baz": "123"}, "ok": true}
	b, err := TreeProto{}.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := TreeProto{}.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("got %#v want %#v", out, in)
	}
}

func TestLimitRejectsOversizedPayload(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 3}
	if _, err := c.Decode([]byte("abcd")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if v, err := c.Decode([]byte("abc")); err != nil || v != "abc" {
		t.Fatalf("within limit: %q err=%v", v, err)
	}
}
