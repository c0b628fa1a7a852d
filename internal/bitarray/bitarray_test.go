package bitarray

import "testing"

func TestGetSetRoundTrip(t *testing.T) {
	bits := make([]bool, 200)
	for i := range bits {
		bits[i] = i%7 == 0
	}
	ba := FromBits(bits)
	if ba.Len() != uint64(len(bits)) {
		t.Fatalf("Len() = %d, want %d", ba.Len(), len(bits))
	}
	for i, want := range bits {
		if got := ba.Get(uint64(i)); got != want {
			t.Errorf("Get(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	bits := make([]bool, 513)
	for i := range bits {
		bits[i] = (i*7)%11 == 0
	}
	ba := FromBits(bits)
	encoded := Encode(ba)

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Len() != ba.Len() {
		t.Fatalf("decoded Len() = %d, want %d", decoded.Len(), ba.Len())
	}
	for i, want := range bits {
		if got := decoded.Get(uint64(i)); got != want {
			t.Errorf("decoded Get(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestDecodeRejectsBadLength(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for too-short input")
	}
	if _, err := Decode(make([]byte, 13)); err == nil {
		t.Fatal("expected error for length not a multiple of 8 plus footer")
	}
}
