package errcode

import (
	"errors"
	"testing"
)

func TestOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare code", ShortCircuit, ShortCircuit},
		{"wrapped", &E{C: UnknownPart, Op: "wiring.AddPart"}, UnknownPart},
		{"opaque", errors.New("boom"), Error},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Of(c.err); got != c.want {
				t.Fatalf("Of(%v) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}

func TestE_Unwrap(t *testing.T) {
	cause := errors.New("net has no driver")
	e := &E{C: NoNet, Op: "wiring.resolveNet", Err: cause}
	if !errors.Is(e, cause) {
		t.Fatal("errors.Is should find wrapped cause")
	}
	if e.Code() != NoNet {
		t.Fatalf("Code() = %v, want %v", e.Code(), NoNet)
	}
}

func TestE_Error(t *testing.T) {
	e := &E{C: ShortCircuit, Msg: "net3 driven high and low"}
	if e.Error() != "short_circuit: net3 driven high and low" {
		t.Fatalf("unexpected message: %q", e.Error())
	}
	bare := &E{C: NotOutput}
	if bare.Error() != "not_output" {
		t.Fatalf("unexpected bare message: %q", bare.Error())
	}
}
