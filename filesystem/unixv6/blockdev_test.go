package unixv6

import (
	"bytes"
	"testing"

	"github.com/go-unixv6/unixv6fs/testhelper"
)

func TestBlockDeviceReadWriteAt(t *testing.T) {
	mem := testhelper.NewMemStorage(testFsize * BlockSize)
	dev := newBlockDevice(mem, testFsize)

	payload := []byte("hello, block 5")
	if err := dev.writeAt(5, 100, len(payload), payload); err != nil {
		t.Fatalf("writeAt: %v", err)
	}
	got := make([]byte, len(payload))
	if err := dev.readAt(5, 100, len(payload), got); err != nil {
		t.Fatalf("readAt: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("readAt = %q, want %q", got, payload)
	}

	// A neighboring block must be untouched.
	neighbor := make([]byte, BlockSize)
	if err := dev.readAt(6, 0, BlockSize, neighbor); err != nil {
		t.Fatalf("readAt(block 6): %v", err)
	}
	for i, b := range neighbor {
		if b != 0 {
			t.Fatalf("block 6 byte %d = %d, want 0 (writes must not cross block boundaries)", i, b)
		}
	}
}

func TestBlockDeviceBoundsChecking(t *testing.T) {
	mem := testhelper.NewMemStorage(testFsize * BlockSize)
	dev := newBlockDevice(mem, testFsize)

	if err := dev.readAt(testFsize, 0, 1, make([]byte, 1)); err == nil {
		t.Fatalf("readAt on an out-of-range block should fail")
	}
	if err := dev.writeAt(0, BlockSize-1, 2, make([]byte, 2)); err == nil {
		t.Fatalf("writeAt spanning past the end of a block should fail")
	}
}

func TestBlockDeviceZeroBlock(t *testing.T) {
	mem := testhelper.NewMemStorage(testFsize * BlockSize)
	dev := newBlockDevice(mem, testFsize)

	if err := dev.writeBlock(3, bytes.Repeat([]byte{0xff}, BlockSize)); err != nil {
		t.Fatalf("writeBlock: %v", err)
	}
	if err := dev.zeroBlock(3); err != nil {
		t.Fatalf("zeroBlock: %v", err)
	}
	got, err := dev.readBlock(3)
	if err != nil {
		t.Fatalf("readBlock: %v", err)
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d = %d after zeroBlock, want 0", i, b)
		}
	}
}
