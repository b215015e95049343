package runner

import (
	"encoding/binary"
	"testing"
)

func buildClockSubscription(userdata uint64, clockID uint32, timeoutNs uint64, absolute bool) []byte {
	buf := make([]byte, wasiSubscriptionSize)
	binary.LittleEndian.PutUint64(buf[0:8], userdata)
	buf[8] = wasiEventTypeClock
	binary.LittleEndian.PutUint32(buf[16:20], clockID)
	binary.LittleEndian.PutUint64(buf[24:32], timeoutNs)
	if absolute {
		binary.LittleEndian.PutUint16(buf[40:42], 1)
	}
	return buf
}

func TestDecodeClockSubscriptionRelative(t *testing.T) {
	buf := buildClockSubscription(42, 1, 5_000_000, false)
	sub, ok := decodeClockSubscription(buf)
	if !ok {
		t.Fatal("expected a decodable clock subscription")
	}
	if sub.userdata != 42 || sub.clockID != 1 || sub.timeout != 5_000_000 || sub.absolute {
		t.Fatalf("unexpected decode: %+v", sub)
	}
}

func TestDecodeClockSubscriptionTooShort(t *testing.T) {
	if _, ok := decodeClockSubscription(make([]byte, 10)); ok {
		t.Fatal("expected decode to fail on a truncated buffer")
	}
}

func TestDecodeClockSubscriptionWrongTag(t *testing.T) {
	buf := buildClockSubscription(1, 1, 1000, false)
	buf[8] = 1 // eventtype_fd_read, not clock
	if _, ok := decodeClockSubscription(buf); ok {
		t.Fatal("expected decode to reject a non-clock subscription")
	}
}

func TestEncodeClockEventEchoesUserdata(t *testing.T) {
	ev := encodeClockEvent(0xdeadbeef)
	if len(ev) != wasiEventSize {
		t.Fatalf("event size = %d, want %d", len(ev), wasiEventSize)
	}
	if got := binary.LittleEndian.Uint64(ev[0:8]); got != 0xdeadbeef {
		t.Fatalf("userdata = %x, want deadbeef", got)
	}
	if ev[10] != wasiEventTypeClock {
		t.Fatalf("event type = %d, want %d", ev[10], wasiEventTypeClock)
	}
}

func TestNsToMsRoundsUp(t *testing.T) {
	if got := nsToMs(1); got != 1 {
		t.Fatalf("nsToMs(1) = %d, want 1", got)
	}
	if got := nsToMs(1_000_000); got != 1 {
		t.Fatalf("nsToMs(1ms) = %d, want 1", got)
	}
	if got := nsToMs(1_000_001); got != 2 {
		t.Fatalf("nsToMs(1ms+1ns) = %d, want 2", got)
	}
}
