package datarecording

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/tebeka/atexit"
)

// ClickHouseRecorder is a high-performance DataRecorder over ClickHouse's
// native protocol. It avoids reflection by keeping one typed batch per
// profiling table.
type ClickHouseRecorder struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	taskBatch    []TaskEntry
	usageBatch   []UsageEntry
	statsBatch   []StatsEntry
	runInfoBatch []RunInfoEntry

	tables     map[string]tableType
	entryCount int
}

type tableType int

const (
	tableTypeTask tableType = iota
	tableTypeUsage
	tableTypeStats
	tableTypeRunInfo
)

// NewClickHouseRecorder creates a DataRecorder that writes into the given
// ClickHouse database.
func NewClickHouseRecorder(
	host string,
	port int,
	database string,
	username string,
	password string,
	batchSize int,
) DataRecorder {
	if batchSize == 0 {
		batchSize = 100000
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", host, port)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		BlockBufferSize:  10,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	if err := conn.Ping(context.Background()); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	recorder := &ClickHouseRecorder{
		conn:      conn,
		batchSize: batchSize,
		tables:    make(map[string]tableType),
	}

	atexit.Register(func() {
		recorder.Flush()
	})

	return recorder
}

// CreateTable creates a table with a ClickHouse-optimized schema. The
// sample entry must be one of the profiling entry types.
func (r *ClickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var createSQL string
	var tType tableType

	switch sampleEntry.(type) {
	case TaskEntry:
		tType = tableTypeTask
		createSQL = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				ID UInt64,
				Path String,
				IsAsync Bool
			) ENGINE = MergeTree()
			ORDER BY ID
		`, tableName)

	case UsageEntry:
		tType = tableTypeUsage
		createSQL = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				TaskID UInt64,
				Delta Int64,
				Total UInt64,
				Time Int64
			) ENGINE = MergeTree()
			ORDER BY (TaskID, Time)
		`, tableName)

	case StatsEntry:
		tType = tableTypeStats
		createSQL = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				Tag String,
				Allocs UInt64,
				Frees UInt64,
				BytesAllocated UInt64,
				BytesFreed UInt64,
				Time Int64
			) ENGINE = MergeTree()
			ORDER BY (Tag, Time)
		`, tableName)

	case RunInfoEntry:
		tType = tableTypeRunInfo
		createSQL = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				Property String,
				Value String
			) ENGINE = MergeTree()
			ORDER BY Property
		`, tableName)

	default:
		panic(fmt.Sprintf("unsupported entry type %T", sampleEntry))
	}

	err := r.conn.Exec(context.Background(), createSQL)
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = tType
}

// InsertData buffers one entry for its table's typed batch.
func (r *ClickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tType, exists := r.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	switch tType {
	case tableTypeTask:
		r.taskBatch = append(r.taskBatch, entry.(TaskEntry))
	case tableTypeUsage:
		r.usageBatch = append(r.usageBatch, entry.(UsageEntry))
	case tableTypeStats:
		r.statsBatch = append(r.statsBatch, entry.(StatsEntry))
	case tableTypeRunInfo:
		r.runInfoBatch = append(r.runInfoBatch, entry.(RunInfoEntry))
	}

	r.entryCount++
	if r.entryCount >= r.batchSize {
		r.flushLocked()
	}
}

// ListTables returns the names of all created tables.
func (r *ClickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]string, 0, len(r.tables))
	for table := range r.tables {
		tables = append(tables, table)
	}

	return tables
}

// Flush sends all buffered batches to ClickHouse.
func (r *ClickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flushLocked()
}

func (r *ClickHouseRecorder) flushLocked() {
	if r.entryCount == 0 {
		return
	}

	for tableName, tType := range r.tables {
		switch tType {
		case tableTypeTask:
			r.flushTasks(tableName)
		case tableTypeUsage:
			r.flushUsage(tableName)
		case tableTypeStats:
			r.flushStats(tableName)
		case tableTypeRunInfo:
			r.flushRunInfo(tableName)
		}
	}

	r.entryCount = 0
}

func (r *ClickHouseRecorder) flushTasks(tableName string) {
	if len(r.taskBatch) == 0 {
		return
	}

	batch, err := r.conn.PrepareBatch(context.Background(),
		"INSERT INTO "+tableName)
	if err != nil {
		panic(fmt.Errorf(
			"failed to prepare batch for %s: %w", tableName, err))
	}

	for _, e := range r.taskBatch {
		err = batch.Append(e.ID, e.Path, e.IsAsync)
		if err != nil {
			panic(fmt.Errorf("failed to append to batch: %w", err))
		}
	}

	err = batch.Send()
	if err != nil {
		panic(fmt.Errorf("failed to send batch: %w", err))
	}

	r.taskBatch = r.taskBatch[:0]
}

func (r *ClickHouseRecorder) flushUsage(tableName string) {
	if len(r.usageBatch) == 0 {
		return
	}

	batch, err := r.conn.PrepareBatch(context.Background(),
		"INSERT INTO "+tableName)
	if err != nil {
		panic(fmt.Errorf(
			"failed to prepare batch for %s: %w", tableName, err))
	}

	for _, e := range r.usageBatch {
		err = batch.Append(e.TaskID, e.Delta, e.Total, e.Time)
		if err != nil {
			panic(fmt.Errorf("failed to append to batch: %w", err))
		}
	}

	err = batch.Send()
	if err != nil {
		panic(fmt.Errorf("failed to send batch: %w", err))
	}

	r.usageBatch = r.usageBatch[:0]
}

func (r *ClickHouseRecorder) flushStats(tableName string) {
	if len(r.statsBatch) == 0 {
		return
	}

	batch, err := r.conn.PrepareBatch(context.Background(),
		"INSERT INTO "+tableName)
	if err != nil {
		panic(fmt.Errorf(
			"failed to prepare batch for %s: %w", tableName, err))
	}

	for _, e := range r.statsBatch {
		err = batch.Append(e.Tag, e.Allocs, e.Frees,
			e.BytesAllocated, e.BytesFreed, e.Time)
		if err != nil {
			panic(fmt.Errorf("failed to append to batch: %w", err))
		}
	}

	err = batch.Send()
	if err != nil {
		panic(fmt.Errorf("failed to send batch: %w", err))
	}

	r.statsBatch = r.statsBatch[:0]
}

func (r *ClickHouseRecorder) flushRunInfo(tableName string) {
	if len(r.runInfoBatch) == 0 {
		return
	}

	batch, err := r.conn.PrepareBatch(context.Background(),
		"INSERT INTO "+tableName)
	if err != nil {
		panic(fmt.Errorf(
			"failed to prepare batch for %s: %w", tableName, err))
	}

	for _, e := range r.runInfoBatch {
		err = batch.Append(e.Property, e.Value)
		if err != nil {
			panic(fmt.Errorf("failed to append to batch: %w", err))
		}
	}

	err = batch.Send()
	if err != nil {
		panic(fmt.Errorf("failed to send batch: %w", err))
	}

	r.runInfoBatch = r.runInfoBatch[:0]
}
