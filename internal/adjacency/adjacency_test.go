package adjacency

import (
	"reflect"
	"testing"
)

func buildList(t *testing.T, pairs [][2]uint64) *List {
	t.Helper()
	b := NewBuilder()
	for _, p := range pairs {
		if err := b.Push(p[0], p[1]); err != nil {
			t.Fatalf("Push(%d,%d): %v", p[0], p[1], err)
		}
	}
	return b.Finalize()
}

func TestGetGroupsWithHoles(t *testing.T) {
	l := buildList(t, [][2]uint64{{1, 1}, {1, 3}, {2, 5}, {7, 4}})

	cases := []struct {
		u    uint64
		want []uint64
	}{
		{1, []uint64{1, 3}},
		{2, []uint64{5}},
		{3, nil},
		{4, nil},
		{5, nil},
		{6, nil},
		{7, []uint64{4}},
	}
	for _, c := range cases {
		got := l.Get(c.u)
		if len(got) != len(c.want) {
			t.Fatalf("Get(%d) = %v, want %v", c.u, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("Get(%d) = %v, want %v", c.u, got, c.want)
			}
		}
	}
}

func TestMultiValueGroups(t *testing.T) {
	l := buildList(t, [][2]uint64{
		{1, 10}, {1, 20}, {1, 30},
		{2, 5},
		{3, 1}, {3, 2}, {3, 3}, {3, 4},
	})

	want := map[uint64][]uint64{
		1: {10, 20, 30},
		2: {5},
		3: {1, 2, 3, 4},
	}
	for u, exp := range want {
		got := l.Get(u)
		if !reflect.DeepEqual(got, exp) {
			t.Fatalf("Get(%d) = %v, want %v", u, got, exp)
		}
	}
}

func TestLeadingEmptyGroupsBeforeFirstPush(t *testing.T) {
	l := buildList(t, [][2]uint64{{3, 9}})

	for _, u := range []uint64{1, 2} {
		if got := l.Get(u); len(got) != 0 {
			t.Fatalf("Get(%d) = %v, want empty (no entry was pushed for this left)", u, got)
		}
	}
	if got := l.Get(3); len(got) != 1 || got[0] != 9 {
		t.Fatalf("Get(3) = %v, want [9]", got)
	}
	if got := l.Domain(); got != 3 {
		t.Fatalf("Domain() = %d, want 3", got)
	}
}

func TestPushRejectsUnordered(t *testing.T) {
	b := NewBuilder()
	if err := b.Push(2, 5); err != nil {
		t.Fatalf("Push(2,5): %v", err)
	}
	if err := b.Push(2, 3); err == nil {
		t.Fatal("expected error for non-increasing right within same left")
	}
	if err := b.Push(1, 9); err == nil {
		t.Fatal("expected error for decreasing left")
	}
	if err := b.Push(2, 0); err == nil {
		t.Fatal("expected error for right id 0")
	}
}

func TestEncodeDecode(t *testing.T) {
	l := buildList(t, [][2]uint64{{1, 1}, {1, 3}, {2, 5}, {7, 4}, {7, 9}})
	files := Encode(l)
	decoded, err := Decode(files)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for u := uint64(1); u <= 7; u++ {
		if got, want := decoded.Get(u), l.Get(u); !reflect.DeepEqual(got, want) {
			t.Fatalf("decoded Get(%d) = %v, want %v", u, got, want)
		}
	}
}

func TestEmptyBuilder(t *testing.T) {
	l := NewBuilder().Finalize()
	if got := l.RightCount(); got != 0 {
		t.Fatalf("RightCount() = %d, want 0", got)
	}
}

func TestRightCount(t *testing.T) {
	l := buildList(t, [][2]uint64{{1, 1}, {1, 3}, {2, 5}, {7, 4}})
	if got := l.RightCount(); got != 4 {
		t.Fatalf("RightCount() = %d, want 4", got)
	}
}
