package datarecording

import "github.com/sarchlab/memtrace/tracking"

// Compile-time interface conformance checks.
var _ DataRecorder = (*ClickHouseRecorder)(nil)
var _ DataRecorder = (*sqliteWriter)(nil)
var _ tracking.UsageTracer = (*UsageRecorder)(nil)
