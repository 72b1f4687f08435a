package session

import "testing"

func TestPayloadMax(t *testing.T) {
	cases := []struct {
		mtu  uint16
		want int
	}{
		{mtu: 576, want: 541}, // 576-28-7=541>512, so the floor clamp doesn't apply
		{mtu: 1500, want: 1465},
		{mtu: 9001, want: 8966},
		{mtu: 600, want: 565},
	}
	for _, c := range cases {
		if got := PayloadMax(c.mtu); got != c.want {
			t.Errorf("PayloadMax(%d) = %d, want %d", c.mtu, got, c.want)
		}
	}
}

func TestTotalSegsBoundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MTU = 1500
	p := uint64(PayloadMax(cfg.MTU))

	if got := cfg.TotalSegs(p); got != 1 {
		t.Errorf("file size == payload_max: total_segs = %d, want 1", got)
	}
	if got := cfg.TotalSegs(p*3 + 1); got != 4 {
		t.Errorf("file size == 3P+1: total_segs = %d, want 4", got)
	}
	if got := cfg.TotalSegs(1); got != 1 {
		t.Errorf("total_segs=1 case: got %d, want 1", got)
	}
}

func TestSegmentRangeLastSegmentShort(t *testing.T) {
	mtu := uint16(1500)
	p := uint64(PayloadMax(mtu))
	fileSize := p*2 + 1
	start, end := SegmentRange(3, fileSize, mtu)
	if start != p*2 || end != fileSize {
		t.Errorf("last segment range = [%d,%d), want [%d,%d)", start, end, p*2, fileSize)
	}
	if end-start != 1 {
		t.Errorf("last segment should carry 1 byte, carries %d", end-start)
	}
}

func TestValidateRejectsBadMTU(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MTU = 100
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for MTU below 576")
	}
}

func TestValidateRejectsBadWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Win = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for win=0")
	}
	cfg.Win = 257
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for win=257")
	}
}
