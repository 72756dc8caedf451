package storage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/comicdb/internal/models"
)

func TestParseSeed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []seedRow
		skipped int
	}{
		{
			name:  "positional ids",
			input: testSeed,
			want: []seedRow{
				{1, models.ComicFields{Title: "Batman", Volume: "1", Writer: "Bob Kane", Artist: "Bob Kane"}},
				{2, models.ComicFields{Title: "Superman", Volume: "2", Writer: "Jerry Siegel", Artist: "Joe Shuster"}},
				{3, models.ComicFields{Title: "Wonder Woman", Volume: "1", Writer: "William Moulton Marston", Artist: "Harry G. Peter"}},
			},
		},
		{
			name:  "explicit ids and reordered columns",
			input: "artist,ID,writer,title,volume\nGibbons,10,Moore,Watchmen,1\nBolland,7,Moore,The Killing Joke,\n",
			want: []seedRow{
				{10, models.ComicFields{Title: "Watchmen", Volume: "1", Writer: "Moore", Artist: "Gibbons"}},
				{7, models.ComicFields{Title: "The Killing Joke", Writer: "Moore", Artist: "Bolland"}},
			},
		},
		{
			name:  "missing volume column",
			input: "Title,Writer,Artist\nSaga,Vaughan,Staples\n",
			want:  []seedRow{{1, models.ComicFields{Title: "Saga", Writer: "Vaughan", Artist: "Staples"}}},
		},
		{
			name:  "malformed rows keep their position",
			input: "Title,Volume,Writer,Artist\nshort,row\n,1,No Title,Artist\nSaga,1,Vaughan,Staples\n",
			want:  []seedRow{{3, models.ComicFields{Title: "Saga", Volume: "1", Writer: "Vaughan", Artist: "Staples"}}},
			skipped: 2,
		},
		{
			name:    "invalid ids",
			input:   "id,title,writer,artist\nabc,A,B,C\n0,A,B,C\n-3,A,B,C\n4,D,E,F\n",
			want:    []seedRow{{4, models.ComicFields{Title: "D", Writer: "E", Artist: "F"}}},
			skipped: 3,
		},
		{
			name:  "duplicate titles are distinct",
			input: "title,volume,writer,artist\nSaga,1,Vaughan,Staples\nSaga,1,Vaughan,Staples\n",
			want: []seedRow{
				{1, models.ComicFields{Title: "Saga", Volume: "1", Writer: "Vaughan", Artist: "Staples"}},
				{2, models.ComicFields{Title: "Saga", Volume: "1", Writer: "Vaughan", Artist: "Staples"}},
			},
		},
		{
			name:  "byte order mark and padding",
			input: "\ufeffTitle , Volume,Writer,Artist\n  Hellboy , 1 , Mignola , Mignola \n",
			want:  []seedRow{{1, models.ComicFields{Title: "Hellboy", Volume: "1", Writer: "Mignola", Artist: "Mignola"}}},
		},
		{
			name:  "empty file",
			input: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, skipped, err := parseSeed(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("parseSeed() error = %v", err)
			}
			if skipped != tt.skipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.skipped)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rows, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("row %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseSeedMissingColumns(t *testing.T) {
	_, _, err := parseSeed(strings.NewReader("Title,Volume\nSaga,1\n"))
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	if !strings.Contains(err.Error(), "writer") || !strings.Contains(err.Error(), "artist") {
		t.Errorf("error should name the missing columns: %v", err)
	}
}

func TestReadSeedMissingFile(t *testing.T) {
	if _, _, err := readSeed(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("expected error")
	}
}
