package models

import "testing"

func TestComicFields(t *testing.T) {
	t.Run("Normalize", func(t *testing.T) {
		f := ComicFields{Title: "  Watchmen ", Volume: "\t1", Writer: "Moore\n", Artist: " Gibbons"}.Normalize()
		want := ComicFields{Title: "Watchmen", Volume: "1", Writer: "Moore", Artist: "Gibbons"}
		if f != want {
			t.Errorf("Normalize() = %+v, want %+v", f, want)
		}
	})
	t.Run("MissingField", func(t *testing.T) {
		tests := []struct {
			in   ComicFields
			want string
		}{
			{ComicFields{Title: "A", Writer: "B", Artist: "C"}, ""},
			{ComicFields{Writer: "B", Artist: "C"}, "title"},
			{ComicFields{Title: "A", Artist: "C"}, "writer"},
			{ComicFields{Title: "A", Writer: "B"}, "artist"},
			{ComicFields{Volume: "1"}, "title"},
		}
		for _, tt := range tests {
			if got := tt.in.MissingField(); got != tt.want {
				t.Errorf("MissingField(%+v) = %q, want %q", tt.in, got, tt.want)
			}
		}
	})
}

func TestComicPatch(t *testing.T) {
	var p ComicPatch
	if !p.IsEmpty() {
		t.Error("zero patch should be empty")
	}
	full := PatchFrom(ComicFields{Title: "A", Volume: "", Writer: "B", Artist: "C"})
	if full.IsEmpty() {
		t.Error("full patch should not be empty")
	}
	if full.Volume == nil || *full.Volume != "" {
		t.Error("PatchFrom must set an explicit empty volume")
	}
	c := Comic{ID: 3, Title: "A", Volume: "2", Writer: "B", Artist: "C"}
	if got := c.Fields(); got != (ComicFields{Title: "A", Volume: "2", Writer: "B", Artist: "C"}) {
		t.Errorf("Fields() = %+v", got)
	}
}
