package norflash

import (
	"context"
	"testing"
)

// fakeBusyHAL is a minimal scripted norflash.HAL used only to drive the
// busy-check subengine directly, white-box, without going through a
// full Device operation. It is intentionally not the testify-based
// hal/mock.HAL: that package imports this one, so using it here would
// create an import cycle.
type fakeBusyHAL struct {
	srSequence []byte // status register bytes returned by successive ReadSR calls
	srCalls    int
	waits      []uint32 // ms argument of each Wait call, in order
	csHistory  []bool
}

func (f *fakeBusyHAL) TxRx(ctx context.Context, tx, rx []byte) error {
	if len(rx) > 0 {
		rx[0] = f.srSequence[f.srCalls]
		f.srCalls++
	}
	return nil
}

func (f *fakeBusyHAL) CS(ctx context.Context, assert bool) error {
	f.csHistory = append(f.csHistory, assert)
	return nil
}

func (f *fakeBusyHAL) Wait(ctx context.Context, ms uint32) error {
	f.waits = append(f.waits, ms)
	return nil
}

func TestHalveWaitRoundsUpToOneMillisecond(t *testing.T) {
	cases := []struct{ in, want uint32 }{
		{16, 8},
		{8, 4},
		{4, 2},
		{2, 1},
		{1, 1},
		{0, 1},
	}
	for _, c := range cases {
		if got := halveWait(c.in); got != c.want {
			t.Fatalf("halveWait(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestBusyCheckConvergesWithAdaptiveBackoff(t *testing.T) {
	// Busy bit set on the first three polls, clear on the fourth: the
	// wait period should halve (16, 8, 4) before settling.
	hal := &fakeBusyHAL{srSequence: []byte{0x01, 0x01, 0x01, 0x00}}
	d := &Device{cmds: &CommandTable{ReadSR: 0x05, BusyBit: 0x01}, hal: hal}

	ctx := context.Background()
	if err := d.startBusyCheck(ctx, 16); err != nil {
		t.Fatalf("startBusyCheck: %v", err)
	}
	// busyComplete itself issues (via busyBegin) whatever HAL action comes
	// next, so repeatedly calling it alone drives the subengine to
	// completion — mirroring how Trigger drives it in device.go.
	settled := false
	for i := 0; i < 10 && !settled; i++ {
		var err error
		settled, err = d.busyComplete(ctx)
		if err != nil {
			t.Fatalf("busyComplete: %v", err)
		}
	}
	if !settled {
		t.Fatal("busy check never settled")
	}
	wantWaits := []uint32{16, 8, 4, 2}
	if len(hal.waits) != len(wantWaits) {
		t.Fatalf("waits = %v, want %v", hal.waits, wantWaits)
	}
	for i, w := range wantWaits {
		if hal.waits[i] != w {
			t.Fatalf("waits = %v, want %v", hal.waits, wantWaits)
		}
	}
}

func TestBusyCheckSettlesImmediatelyOnZeroWaitBusyPin(t *testing.T) {
	hal := &fakeBusyHAL{}
	d := &Device{cmds: &CommandTable{ReadSR: 0x05, BusyBit: 0x01}, hal: hal}

	ctx := context.Background()
	if err := d.startBusyCheck(ctx, 0); err != nil {
		t.Fatalf("startBusyCheck: %v", err)
	}
	settled, err := d.busyComplete(ctx)
	if err != nil {
		t.Fatalf("busyComplete: %v", err)
	}
	if !settled {
		t.Fatal("zero wait period (BUSY-pin mode) should settle after one Wait")
	}
	if hal.srCalls != 0 {
		t.Fatalf("BUSY-pin mode should never poll the status register, got %d polls", hal.srCalls)
	}
}
