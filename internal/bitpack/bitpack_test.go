package bitpack

import "testing"

func TestVectorSetGetWidth1(t *testing.T) {
	v := NewVector(100, 1)
	v.SetBit(0, true)
	v.SetBit(63, true)
	v.SetBit(64, true)
	v.SetBit(99, true)
	for _, i := range []int{0, 63, 64, 99} {
		if !v.TestBit(i) {
			t.Fatalf("expected bit %d set", i)
		}
	}
	if v.TestBit(1) || v.TestBit(98) {
		t.Fatalf("expected bit 1 and 98 clear")
	}
	if got := v.PopCount(); got != 4 {
		t.Fatalf("expected popcount 4, got %d", got)
	}
}

func TestVectorWidth4Roundtrip(t *testing.T) {
	v := NewVector(20, 4)
	for i := 0; i < 20; i++ {
		v.Set(i, uint64(i%16))
	}
	for i := 0; i < 20; i++ {
		if got := v.Get(i); got != uint64(i%16) {
			t.Fatalf("element %d: want %d got %d", i, i%16, got)
		}
	}
}

func TestVectorResizePreservesContents(t *testing.T) {
	v := NewVector(10, 1)
	v.SetBit(3, true)
	v.SetBit(9, true)
	v.Resize(5)
	if !v.TestBit(3) {
		t.Fatalf("expected bit 3 preserved after shrink")
	}
	v.Resize(20)
	if !v.TestBit(3) {
		t.Fatalf("expected bit 3 preserved after grow")
	}
	if v.TestBit(9) {
		t.Fatalf("expected bit 9 to have been dropped by the shrink, not resurrected")
	}
}

func TestVectorSerializeDeserialize(t *testing.T) {
	v := NewVector(70, 2)
	for i := 0; i < 70; i++ {
		v.Set(i, uint64(i%4))
	}
	buf := v.Serialize(nil)
	v2 := Deserialize(buf, 70, 2)
	for i := 0; i < 70; i++ {
		if v.Get(i) != v2.Get(i) {
			t.Fatalf("roundtrip mismatch at %d: %d vs %d", i, v.Get(i), v2.Get(i))
		}
	}
}

func TestEmptyMatrixShortCircuits(t *testing.T) {
	m := NewMatrix(0, 0)
	if m.TestBit(0, 0) {
		t.Fatalf("expected empty matrix to report false")
	}
}

func TestMatrixStridedAccess(t *testing.T) {
	m := NewMatrix(3, 10)
	m.SetBit(0, 0, true)
	m.SetBit(1, 9, true)
	m.SetBit(2, 5, true)
	if !m.TestBit(0, 0) || !m.TestBit(1, 9) || !m.TestBit(2, 5) {
		t.Fatalf("expected set bits to read back true")
	}
	if m.TestBit(0, 9) || m.TestBit(2, 0) {
		t.Fatalf("expected unset bits to read back false")
	}
	if got := m.RowPopCount(1); got != 1 {
		t.Fatalf("expected row 1 popcount 1, got %d", got)
	}
}

func TestJaggedVariableExtents(t *testing.T) {
	j := NewJagged([]int{3, 0, 5})
	j.SetBit(0, 2, true)
	j.SetBit(2, 4, true)
	if !j.TestBit(0, 2) || !j.TestBit(2, 4) {
		t.Fatalf("expected set bits to read back true")
	}
	if j.TestBit(1, 0) {
		t.Fatalf("expected row with zero extent to report false for any column")
	}
	if j.RowExtent(0) != 3 || j.RowExtent(1) != 0 || j.RowExtent(2) != 5 {
		t.Fatalf("unexpected row extents")
	}
}
