package runner

import "github.com/google/shlex"

// buildArgv splits a board's configured command line the way a shell would
// tokenize it, for WASI's args_get — grounded on SPEC_FULL.md's domain-stack
// entry for shlex: the source program's argv comes from a single configured
// string, not a pre-split slice, so it needs real shell-style tokenization
// (quoting, escapes) rather than a hand-rolled strings.Fields split.
func buildArgv(argsLine string) ([]string, error) {
	if argsLine == "" {
		return nil, nil
	}
	return shlex.Split(argsLine)
}

// argvSizes returns the WASI args_sizes_get result: the argument count and
// the total byte size of the NUL-terminated argv_buf (every string's bytes
// plus one NUL terminator each).
func argvSizes(argv []string) (count, bufSize uint32) {
	count = uint32(len(argv))
	for _, a := range argv {
		bufSize += uint32(len(a)) + 1
	}
	return count, bufSize
}

// encodeArgv lays out argv_buf (each string, NUL-terminated, concatenated)
// and returns the offset of each string within it, for args_get to write
// alongside the pointer table.
func encodeArgv(argv []string) (buf []byte, offsets []uint32) {
	offsets = make([]uint32, len(argv))
	for i, a := range argv {
		offsets[i] = uint32(len(buf))
		buf = append(buf, a...)
		buf = append(buf, 0)
	}
	return buf, offsets
}
