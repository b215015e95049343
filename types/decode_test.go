package types

import "testing"

func TestDecodeEnvelope(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string // fmt-free spot check on what Go kind comes back
	}{
		{"object", `{"type":"led","id":"l1"}`, "map[string]interface {}"},
		{"array", `[1,2,3]`, "[]interface {}"},
		{"string", `"hello"`, "string"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, err := DecodeEnvelope([]byte(c.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := typeName(v)
			if got != c.want {
				t.Fatalf("got kind %q, want %q", got, c.want)
			}
		})
	}
}

func TestDecodeEnvelope_TrailingGarbage(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"a":1} garbage`))
	if err == nil {
		t.Fatal("expected error for trailing content after JSON value")
	}
}

func typeName(v any) string {
	switch v.(type) {
	case map[string]interface{}:
		return "map[string]interface {}"
	case []interface{}:
		return "[]interface {}"
	case string:
		return "string"
	default:
		return "other"
	}
}
