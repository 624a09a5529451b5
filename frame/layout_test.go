package frame

import "testing"

func TestValidate(t *testing.T) {
	if err := Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestSlotOffsets(t *testing.T) {
	tests := []struct {
		slot Slot
		want int64
	}{
		{ReturnAddr, -8},
		{SavedFP, -16},
		{Method, -40},
		{Locals, -72},
		{BCP, -80},
		{MonitorBlockTop, -88},
		{OopTemp, -104},
		{Padding, -112},
	}
	for _, tt := range tests {
		if got := tt.slot.Offset(); got != tt.want {
			t.Errorf("%s offset = %d, want %d", tt.slot, got, tt.want)
		}
	}
}

func TestSlotsAreContiguous(t *testing.T) {
	slots := Slots()
	if len(slots) != FixedWords {
		t.Fatalf("got %d slots, want %d", len(slots), FixedWords)
	}
	seen := make(map[int64]bool)
	for i, s := range slots {
		if s.Offset() != int64(-(i+1)*WordSize) {
			t.Errorf("slot %d (%s) at %d", i, s, s.Offset())
		}
		if seen[s.Offset()] {
			t.Errorf("offset %d used twice", s.Offset())
		}
		seen[s.Offset()] = true
	}
}

func TestMonitorPlacement(t *testing.T) {
	if FirstMonitor != -128 {
		t.Errorf("FirstMonitor = %d, want -128", FirstMonitor)
	}
	if FirstMonitor%StackAlignment != 0 {
		t.Error("first monitor is not aligned")
	}
	if MonitorObj != 8 || MonitorLock != 0 {
		t.Errorf("monitor layout lock=%d obj=%d", MonitorLock, MonitorObj)
	}
}

func TestAlignment(t *testing.T) {
	for _, tt := range []struct{ in, down, up int64 }{
		{0, 0, 0},
		{1, 0, 16},
		{16, 16, 16},
		{-8, -16, 0},
		{-17, -32, -16},
	} {
		if got := AlignDown(tt.in); got != tt.down {
			t.Errorf("AlignDown(%d) = %d, want %d", tt.in, got, tt.down)
		}
		if got := AlignUp(tt.in); got != tt.up {
			t.Errorf("AlignUp(%d) = %d, want %d", tt.in, got, tt.up)
		}
	}
	if Size(1, 3) != 160 {
		t.Errorf("Size(1, 3) = %d, want 160", Size(1, 3))
	}
}
