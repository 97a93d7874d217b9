// Package eventlog is the append-only, day-partitioned flight log.
//
// Layout: each UTC day owns one object, events/YYYY/MM/DD/flights.jsonl,
// holding one compact JSON flight per line.
//
// The Writer appends by read-modify-write of the whole partition object. Object
// stores offer no append, so concurrent writers to the same day race and the
// last Put wins; earlier concurrent appends may be lost. Put is always a single
// whole-object write, so a cancelled append never leaves a partial partition.
//
// The Reader narrows partitions by date range, downloads them concurrently,
// skips malformed lines (counting them), and evaluates row-level predicates in
// process. No query text is ever constructed.
package eventlog
