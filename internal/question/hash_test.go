package question

import "testing"

func TestContentHash_NormalizesWhitespace(t *testing.T) {
	a := ContentHash("Find the  derivative of x^2.")
	b := ContentHash("  Find the derivative\tof x^2.\n")
	if a != b {
		t.Errorf("hashes differ: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if ContentHash("Find the derivative of x^3.") == a {
		t.Error("different text should hash differently")
	}
}

func TestVectorID(t *testing.T) {
	h := ContentHash("Find ∫ ln(x) dx.")
	id := VectorID(h)
	if id != "Q_"+h[:16] {
		t.Errorf("VectorID = %q, want %q", id, "Q_"+h[:16])
	}
}

func TestContentHash_KeepsCase(t *testing.T) {
	upper := ContentHash("Let A be a 3×3 matrix with det(A) = 2. Find det(2A).")
	lower := ContentHash("Let a be a 3×3 matrix with det(a) = 2. Find det(2a).")
	if upper == lower {
		t.Error("texts differing only in letter case should hash differently")
	}
}
