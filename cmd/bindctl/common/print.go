package common

import (
	"fmt"
	"io"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
)

// PrintHeader prints a tab separated, upper case header line.
func PrintHeader(w io.Writer, columns ...string) {
	underline := make([]string, len(columns))
	for i := range columns {
		underline[i] = strings.Repeat("-", len(columns[i]))
	}
	fmt.Fprintf(w, "%s\n", strings.ToUpper(strings.Join(columns, "\t")))
	fmt.Fprintf(w, "%s\n", strings.Join(underline, "\t"))
}

// FprintfIfNotEmpty prints only if `s` is not empty.
func FprintfIfNotEmpty(w io.Writer, format string, v interface{}) {
	if v != nil && v != "" {
		fmt.Fprintf(w, format, v)
	}
}

// TimestampString formats a store timestamp relative to now.
func TimestampString(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// SegmentationID formats an optional segmentation ID.
func SegmentationID(id *uint32) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}
