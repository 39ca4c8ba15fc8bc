package norflash

import "testing"

func TestPutAddrBigEndian(t *testing.T) {
	buf := make([]byte, 3)
	putAddr(buf, 0x00112233, 3, true)
	want := []byte{0x11, 0x22, 0x33}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("putAddr big-endian: got %#v, want %#v", buf, want)
		}
	}
}

func TestPutAddrLittleEndian(t *testing.T) {
	buf := make([]byte, 3)
	putAddr(buf, 0x00112233, 3, false)
	want := []byte{0x33, 0x22, 0x11}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("putAddr little-endian: got %#v, want %#v", buf, want)
		}
	}
}

func TestPutAddrFourByteWidth(t *testing.T) {
	buf := make([]byte, 4)
	putAddr(buf, 0xAABBCCDD, 4, true)
	want := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("putAddr 4-byte: got %#v, want %#v", buf, want)
		}
	}
}
