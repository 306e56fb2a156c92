package domain

import (
	"reflect"
	"testing"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginateConcatenationEqualsInput(t *testing.T) {
	for n := 1; n <= 23; n++ {
		for size := 1; size <= 7; size++ {
			items := seq(n)
			first := Paginate(items, 1, size)
			want := (n + size - 1) / size
			if first.TotalPages != want {
				t.Fatalf("n=%d size=%d: TotalPages = %d, want %d", n, size, first.TotalPages, want)
			}

			var got []int
			for p := 1; p <= first.TotalPages; p++ {
				got = append(got, Paginate(items, p, size).Items...)
			}
			if !reflect.DeepEqual(got, items) {
				t.Errorf("n=%d size=%d: concatenated pages = %v, want %v", n, size, got, items)
			}
		}
	}
}

func TestPaginateTwelveTracksPageSizeFive(t *testing.T) {
	items := seq(12)

	p1 := Paginate(items, 1, 5)
	if p1.TotalPages != 3 {
		t.Fatalf("TotalPages = %d, want 3", p1.TotalPages)
	}
	if !reflect.DeepEqual(p1.Items, []int{0, 1, 2, 3, 4}) {
		t.Errorf("page 1 items = %v", p1.Items)
	}
	if !p1.HasNext || p1.HasPrevious {
		t.Errorf("page 1 flags: hasNext=%v hasPrevious=%v", p1.HasNext, p1.HasPrevious)
	}

	p3 := Paginate(items, 3, 5)
	if !reflect.DeepEqual(p3.Items, []int{10, 11}) {
		t.Errorf("page 3 items = %v", p3.Items)
	}
	if p3.HasNext || !p3.HasPrevious {
		t.Errorf("page 3 flags: hasNext=%v hasPrevious=%v", p3.HasNext, p3.HasPrevious)
	}
	if p3.StartIndex != 10 || p3.EndIndex != 12 {
		t.Errorf("page 3 range = [%d,%d), want [10,12)", p3.StartIndex, p3.EndIndex)
	}
}

func TestPaginateEmpty(t *testing.T) {
	v := Paginate([]int(nil), 4, 5)
	if v.TotalPages != 1 || v.CurrentPage != 1 {
		t.Errorf("empty: TotalPages=%d CurrentPage=%d, want 1/1", v.TotalPages, v.CurrentPage)
	}
	if len(v.Items) != 0 || v.HasNext || v.HasPrevious {
		t.Errorf("empty: unexpected view %+v", v)
	}
}

func TestPaginateClampsPage(t *testing.T) {
	items := seq(15)
	tests := []struct {
		page int
		want int
	}{
		{-5, 1},
		{0, 1},
		{2, 2},
		{999, 3},
	}
	for _, tt := range tests {
		if got := Paginate(items, tt.page, 5).CurrentPage; got != tt.want {
			t.Errorf("Paginate(page=%d).CurrentPage = %d, want %d", tt.page, got, tt.want)
		}
	}
}

func TestPaginateItemsCannotGrowIntoNextPage(t *testing.T) {
	items := seq(10)
	v := Paginate(items, 1, 5)
	_ = append(v.Items, 99)
	if items[5] != 5 {
		t.Errorf("append on page items overwrote the source slice: items[5] = %d", items[5])
	}
}
