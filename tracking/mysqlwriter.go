package tracking

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	// Need to use MySQL connections.
	_ "github.com/go-sql-driver/mysql"
	"github.com/tebeka/atexit"
)

// MySQLUsageWriter is a usage tracer that can store the usage events into a
// MySQL database.
type MySQLUsageWriter struct {
	dbConnection

	lock            sync.Mutex
	eventsToWriteDB []UsageEvent
	batchSize       int
}

// NewMySQLUsageWriter returns a new MySQLUsageWriter.
// The Init function must be called before using the writer.
func NewMySQLUsageWriter() *MySQLUsageWriter {
	t := &MySQLUsageWriter{
		batchSize: 100000,
	}

	atexit.Register(func() { t.Flush() })

	return t
}

// Init establishes a connection to MySQL and creates a database.
func (t *MySQLUsageWriter) Init() {
	t.dbConnection.init("")
	t.createDatabase()
}

func (t *MySQLUsageWriter) createDatabase() {
	dbName := "memtrace_" + GetRunIDGenerator().Generate()
	t.dbName = dbName
	log.Printf("Usage events are collected in database: %s\n", dbName)

	t.mustExecute("CREATE DATABASE " + dbName)
	t.mustExecute("USE " + dbName)

	t.createTable()
}

func (t *MySQLUsageWriter) createTable() {
	t.mustExecute(`
		create table usage_events
		(
			task_id bigint unsigned not null,
			path    varchar(2000)   not null,
			delta   bigint          not null,
			total   bigint unsigned not null,
			time    bigint          not null
		);
	`)

	t.mustExecute(`
		create index usage_task_id_index
			on usage_events (task_id);
	`)

	t.mustExecute(`
		create index usage_time_index
			on usage_events (time) USING BTREE;
	`)
}

// RegisterTask does nothing; usage event rows carry the path.
func (t *MySQLUsageWriter) RegisterTask(_ Task) {
}

// RecordUsage buffers the event for writing into the database.
func (t *MySQLUsageWriter) RecordUsage(event UsageEvent) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.eventsToWriteDB = append(t.eventsToWriteDB, event)
	if len(t.eventsToWriteDB) > t.batchSize {
		t.flushLocked()
	}
}

// Flush writes all the events in the buffer into the database.
func (t *MySQLUsageWriter) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.flushLocked()
}

func (t *MySQLUsageWriter) flushLocked() {
	if len(t.eventsToWriteDB) == 0 {
		return
	}

	sqlStr := `INSERT INTO usage_events VALUES`
	vals := []interface{}{}

	for i := range t.eventsToWriteDB {
		sqlStr += "(?, ?, ?, ?, ?),"
		vals = append(vals,
			t.eventsToWriteDB[i].TaskID,
			t.eventsToWriteDB[i].Path,
			t.eventsToWriteDB[i].Delta,
			t.eventsToWriteDB[i].Total,
			t.eventsToWriteDB[i].Time,
		)
	}

	sqlStr = strings.TrimSuffix(sqlStr, ",")

	stmt, err := t.Prepare(sqlStr)
	if err != nil {
		panic(err)
	}

	_, err = stmt.Exec(vals...)
	if err != nil {
		panic(err)
	}

	err = stmt.Close()
	if err != nil {
		panic(err)
	}

	t.eventsToWriteDB = nil
}

type dbConnection struct {
	*sql.DB

	username  string
	password  string
	ipAddress string
	port      int
	dbName    string
}

func (c *dbConnection) init(dbName string) {
	c.dbName = dbName

	c.getCredentials()
	c.connect()
}

func (c *dbConnection) getCredentials() {
	c.username = os.Getenv("MEMTRACE_DB_USERNAME")
	if c.username == "" {
		panic(`database username is not set, ` +
			`use environment variable MEMTRACE_DB_USERNAME to set it.`)
	}

	c.password = os.Getenv("MEMTRACE_DB_PASSWORD")
	c.ipAddress = os.Getenv("MEMTRACE_DB_IP")
	if c.ipAddress == "" {
		c.ipAddress = "127.0.0.1"
	}

	portString := os.Getenv("MEMTRACE_DB_PORT")
	if portString == "" {
		portString = "3306"
	}
	port, err := strconv.Atoi(portString)
	if err != nil {
		panic(err)
	}
	c.port = port
}

func (c *dbConnection) connect() {
	connectStr := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		c.username, c.password, c.ipAddress, c.port, c.dbName)
	db, err := sql.Open("mysql", connectStr)
	if err != nil {
		panic(err)
	}

	c.DB = db
}

func (c *dbConnection) mustExecute(query string) sql.Result {
	res, err := c.Exec(query)
	if err != nil {
		panic(err)
	}

	return res
}
