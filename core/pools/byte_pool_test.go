package pools

import "testing"

func TestBytePoolTiers(t *testing.T) {
	bp := NewBytePool()

	tests := []struct {
		request int
		wantCap int
	}{
		{100, 512},
		{512, 512},
		{513, 2048},
		{8192, 8192},
		{32768, 32768},
	}

	for _, tt := range tests {
		buf := bp.Get(tt.request)
		if len(buf) != tt.request {
			t.Errorf("Get(%d): expected len %d, got %d", tt.request, tt.request, len(buf))
		}
		if cap(buf) != tt.wantCap {
			t.Errorf("Get(%d): expected cap %d, got %d", tt.request, tt.wantCap, cap(buf))
		}
		bp.Put(buf)
	}
}

// TestBytePoolOversized verifies requests beyond the largest tier still work
func TestBytePoolOversized(t *testing.T) {
	bp := NewBytePool()

	buf := bp.Get(100000)
	if len(buf) != 100000 {
		t.Errorf("Expected len 100000, got %d", len(buf))
	}
	bp.Put(buf) // not pooled, must not panic
}

func BenchmarkBytePool(b *testing.B) {
	bp := NewBytePool()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := bp.Get(8192)
			bp.Put(buf)
		}
	})
}
