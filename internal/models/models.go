// Package models defines the core data structures used throughout the application.
package models

import "strings"

// Comic is one entry of the collection.
type Comic struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Volume string `json:"volume"`
	Writer string `json:"writer"`
	Artist string `json:"artist"`
}

// Fields returns the content of the comic without its ID.
func (c *Comic) Fields() ComicFields {
	return ComicFields{Title: c.Title, Volume: c.Volume, Writer: c.Writer, Artist: c.Artist}
}

// ComicFields is the user supplied content of a comic.
type ComicFields struct {
	Title  string `json:"title" yaml:"title"`
	Volume string `json:"volume,omitempty" yaml:"volume"`
	Writer string `json:"writer" yaml:"writer"`
	Artist string `json:"artist" yaml:"artist"`
}

// Normalize returns a copy with surrounding whitespace removed from every field.
func (f ComicFields) Normalize() ComicFields {
	return ComicFields{
		Title:  strings.TrimSpace(f.Title),
		Volume: strings.TrimSpace(f.Volume),
		Writer: strings.TrimSpace(f.Writer),
		Artist: strings.TrimSpace(f.Artist),
	}
}

// MissingField returns the JSON name of the first empty required field, or ""
// if all required fields are set. Call on normalized fields.
func (f *ComicFields) MissingField() string {
	switch {
	case f.Title == "":
		return "title"
	case f.Writer == "":
		return "writer"
	case f.Artist == "":
		return "artist"
	}
	return ""
}

// ComicPatch is a partial update. Nil fields keep their stored value.
type ComicPatch struct {
	Title  *string `json:"title,omitempty"`
	Volume *string `json:"volume,omitempty"`
	Writer *string `json:"writer,omitempty"`
	Artist *string `json:"artist,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *ComicPatch) IsEmpty() bool {
	return p.Title == nil && p.Volume == nil && p.Writer == nil && p.Artist == nil
}

// PatchFrom builds a patch replacing every field.
func PatchFrom(f ComicFields) ComicPatch {
	return ComicPatch{Title: &f.Title, Volume: &f.Volume, Writer: &f.Writer, Artist: &f.Artist}
}
