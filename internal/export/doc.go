// Package export runs annotation batches through the coordinate mapper and
// the transcode engine, producing one clip artifact per annotation. Batches
// are strictly sequential and abort on the first failure while preserving
// everything already produced.
package export
