package runner

import (
	"reflect"
	"testing"
)

func TestBuildArgvSplitsQuotedArguments(t *testing.T) {
	argv, err := buildArgv(`program --name "hello world" --flag`)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"program", "--name", "hello world", "--flag"}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("got %q, want %q", argv, want)
	}
}

func TestBuildArgvEmpty(t *testing.T) {
	argv, err := buildArgv("")
	if err != nil {
		t.Fatal(err)
	}
	if argv != nil {
		t.Fatalf("expected nil argv for an empty line, got %q", argv)
	}
}

func TestArgvSizes(t *testing.T) {
	count, size := argvSizes([]string{"ab", "c"})
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if size != 3+2 { // "ab\0" + "c\0"
		t.Fatalf("size = %d, want 5", size)
	}
}

func TestEncodeArgvOffsets(t *testing.T) {
	buf, offsets := encodeArgv([]string{"ab", "c"})
	if string(buf) != "ab\x00c\x00" {
		t.Fatalf("buf = %q", buf)
	}
	if !reflect.DeepEqual(offsets, []uint32{0, 3}) {
		t.Fatalf("offsets = %v, want [0 3]", offsets)
	}
}
