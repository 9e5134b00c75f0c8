package analysis

import (
	"bufio"
	"io"
	"os"
	"strconv"
)

// conversionMarker is appended to the header block of converted output.
const conversionMarker = "# Converted to exclusive time by memtrace-selftime"

// ConvertToExclusive rewrites inclusive durations as exclusive (self)
// durations. Each record's original inclusive value is subtracted, exactly
// once, from the nearest preceding record whose path is its immediate
// parent, saturating at zero. Single-segment paths have no parent in the
// trace and pass through unchanged. Record order is preserved.
//
// On traces that list parents before their children, the exclusive values
// under each root sum back to the root's original inclusive value, so no
// time is double counted.
func ConvertToExclusive(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)

	for i, rec := range records {
		parent, ok := parentPath(rec.Path)
		if !ok {
			continue
		}

		for j := i - 1; j >= 0; j-- {
			if records[j].Path != parent {
				continue
			}

			out[j].Value -= rec.Value
			if out[j].Value < 0 {
				out[j].Value = 0
			}

			break
		}
	}

	return out
}

// Summary reports what one conversion run did. Stats aggregates the
// converted records per call path, hottest path first.
type Summary struct {
	LinesProcessed int
	StackCount     int
	SkippedLines   int
	TotalExclusive int64
	Stats          *ProfileStats
}

// An ExclusiveTimeConverter reads a folded-stack profile with inclusive
// durations and writes the same profile with exclusive durations. Headers
// are preserved, a conversion marker is appended to them, and malformed
// lines are skipped with a diagnostic.
type ExclusiveTimeConverter struct {
	input  io.Reader
	output io.Writer
	diag   io.Writer
}

// Run performs the conversion and returns a summary of the work done.
// Malformed input lines are not an error; only I/O failures are.
func (c *ExclusiveTimeConverter) Run() (Summary, error) {
	profile, err := ParseFolded(c.input, c.diag)
	if err != nil {
		return Summary{}, err
	}

	exclusive := ConvertToExclusive(profile.Records)

	stats := NewProfileStats()
	for _, rec := range exclusive {
		stats.Record(rec)
	}

	summary := Summary{
		LinesProcessed: profile.LineCount,
		StackCount:     len(exclusive),
		SkippedLines:   profile.Skipped,
		TotalExclusive: stats.TotalValue,
		Stats:          stats,
	}

	w := bufio.NewWriter(c.output)

	for _, header := range profile.Headers {
		_, err := io.WriteString(w, header+"\n")
		if err != nil {
			return summary, err
		}
	}

	_, err = io.WriteString(w, conversionMarker+"\n\n")
	if err != nil {
		return summary, err
	}

	for _, rec := range exclusive {
		_, err := io.WriteString(w,
			rec.Path+" "+strconv.FormatInt(rec.Value, 10)+"\n")
		if err != nil {
			return summary, err
		}
	}

	err = w.Flush()
	if err != nil {
		return summary, err
	}

	return summary, nil
}

// ExclusiveTimeConverterBuilder builds ExclusiveTimeConverters.
type ExclusiveTimeConverterBuilder struct {
	input  io.Reader
	output io.Writer
	diag   io.Writer
}

// MakeExclusiveTimeConverterBuilder creates a builder with diagnostics
// going to standard error.
func MakeExclusiveTimeConverterBuilder() ExclusiveTimeConverterBuilder {
	return ExclusiveTimeConverterBuilder{
		diag: os.Stderr,
	}
}

// WithInput sets the folded-stack stream to read.
func (b ExclusiveTimeConverterBuilder) WithInput(
	r io.Reader,
) ExclusiveTimeConverterBuilder {
	b.input = r
	return b
}

// WithOutput sets the stream the converted profile is written to.
func (b ExclusiveTimeConverterBuilder) WithOutput(
	w io.Writer,
) ExclusiveTimeConverterBuilder {
	b.output = w
	return b
}

// WithDiagnostics redirects malformed-line warnings.
func (b ExclusiveTimeConverterBuilder) WithDiagnostics(
	w io.Writer,
) ExclusiveTimeConverterBuilder {
	b.diag = w
	return b
}

// Build creates an ExclusiveTimeConverter.
func (b ExclusiveTimeConverterBuilder) Build() *ExclusiveTimeConverter {
	if b.input == nil || b.output == nil {
		panic("converter input and output must both be set")
	}

	return &ExclusiveTimeConverter{
		input:  b.input,
		output: b.output,
		diag:   b.diag,
	}
}
