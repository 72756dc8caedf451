package storage

import "github.com/maruel/comicdb/internal/models"

// deltaRow is one line of the delta file.
//
// A live row holds the authoritative state of an entry that is not pristine
// seed data. A tombstone (Deleted set) hides the seed entry with the same ID.
type deltaRow struct {
	ID      int    `json:"id" jsonschema:"description=Comic ID, unique across seed and delta"`
	Title   string `json:"title,omitempty"`
	Volume  string `json:"volume,omitempty"`
	Writer  string `json:"writer,omitempty"`
	Artist  string `json:"artist,omitempty"`
	Deleted bool   `json:"deleted,omitempty" jsonschema:"description=Tombstone for a deleted seed entry"`
}

// Clone returns a copy of the row.
func (r deltaRow) Clone() deltaRow {
	return r
}

func (r *deltaRow) comic() models.Comic {
	return models.Comic{ID: r.ID, Title: r.Title, Volume: r.Volume, Writer: r.Writer, Artist: r.Artist}
}

func rowFromComic(c *models.Comic) deltaRow {
	return deltaRow{ID: c.ID, Title: c.Title, Volume: c.Volume, Writer: c.Writer, Artist: c.Artist}
}

func tombstone(id int) deltaRow {
	return deltaRow{ID: id, Deleted: true}
}
