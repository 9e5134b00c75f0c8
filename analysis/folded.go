// Package analysis processes folded-stack profiles: parsing, per-path
// statistics, and the inclusive-to-exclusive time conversion flamegraph
// tooling needs.
package analysis

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A Record is one stack line of a folded profile: a semicolon-joined
// root-to-leaf call path and an integer value, time in microseconds or a
// byte count depending on the profile kind.
type Record struct {
	Path  string
	Value int64
}

// A FoldedProfile is the parsed content of a folded-stack file. Header
// lines, those starting with # and blank lines, are preserved verbatim;
// stack records keep their input order.
type FoldedProfile struct {
	Headers []string
	Records []Record

	// LineCount is the total number of lines read, including headers and
	// skipped lines.
	LineCount int

	// Skipped is the number of malformed stack lines that were dropped.
	Skipped int
}

// ParseFolded reads a folded-stack stream. Malformed stack lines, a
// missing value or one that does not parse as an integer, are reported to
// diag with their line number and skipped; they never abort the parse.
func ParseFolded(r io.Reader, diag io.Writer) (*FoldedProfile, error) {
	p := &FoldedProfile{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		p.LineCount++

		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			p.Headers = append(p.Headers, line)
			continue
		}

		cut := strings.LastIndex(line, " ")
		if cut < 0 {
			fmt.Fprintf(diag,
				"Warning: invalid line format at line %d: %s\n",
				p.LineCount, line)
			p.Skipped++

			continue
		}

		path := strings.TrimSpace(line[:cut])
		value, err := strconv.ParseInt(strings.TrimSpace(line[cut+1:]),
			10, 64)
		if err != nil || path == "" {
			fmt.Fprintf(diag,
				"Warning: invalid value at line %d: %s\n",
				p.LineCount, line)
			p.Skipped++

			continue
		}

		p.Records = append(p.Records, Record{Path: path, Value: value})
	}

	err := scanner.Err()
	if err != nil {
		return nil, err
	}

	return p, nil
}

// parentPath returns all segments of path but the last, or false for a
// single-segment path.
func parentPath(path string) (string, bool) {
	cut := strings.LastIndex(path, ";")
	if cut < 0 {
		return "", false
	}

	return path[:cut], true
}
