// Package annotations defines the annotation data model, the SQLite-backed
// catalog store, and the CSV interchange format.
package annotations
