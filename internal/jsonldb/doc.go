// Package jsonldb provides a small generic JSONL-backed table with full
// in-memory caching.
//
// # File Format
//
// Line 1 is a schema header describing the columns of T, generated by
// reflection with github.com/invopop/jsonschema. Subsequent lines are JSON
// rows. Files without a header are accepted on load.
//
// # Durability
//
// [Table.Replace] rewrites the whole file through a temporary file in the same
// directory followed by a rename, so readers never observe a half written
// table. Rows that fail to decode on load are skipped and counted, see
// [Table.Skipped].
package jsonldb
