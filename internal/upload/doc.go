// Package upload delivers exported clip artifacts to their destination. The
// stage treats every item independently: a single failed save is recorded in
// the delivery report and the pass continues, so one bad artifact never
// blocks the rest of a batch.
package upload
