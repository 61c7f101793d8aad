// Package engine owns the single external transcoder instance behind the
// export pipeline. It enforces the load→write→execute→read→cleanup lifecycle
// per clip and serializes all access: the subsystem writes fixed input and
// output names in its private working storage, so overlapping invocations
// would corrupt each other.
package engine
