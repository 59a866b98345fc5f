// Package hexdump renders byte buffers as plain hex plus ASCII lines.
// The inspect command uses it to show raw character-slot bytes while
// debugging the table layout; coloring is left to the caller.
package hexdump

import (
	"fmt"
	"io"
	"strings"
)

// Options customizes the dump format
type Options struct {
	// BytesPerLine is the number of bytes rendered per line
	BytesPerLine int

	// GroupSize groups hex values with an extra space every N bytes
	GroupSize int

	// ShowASCII appends the printable-character column
	ShowASCII bool

	// StartOffset is the address printed for the first byte
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int
}

// DefaultOptions renders 16 bytes per line with an 8-digit offset column
// and the ASCII column on
func DefaultOptions() Options {
	return Options{
		BytesPerLine: 16,
		GroupSize:    8,
		ShowASCII:    true,
		OffsetWidth:  8,
	}
}

// Dump renders data with the given options
func Dump(data []byte, options Options) string {
	var sb strings.Builder
	DumpToWriter(&sb, data, options)
	return sb.String()
}

// DumpWithOffset renders data with default options, addressing the first
// byte as startOffset
func DumpWithOffset(data []byte, startOffset uint64) string {
	options := DefaultOptions()
	options.StartOffset = startOffset
	return Dump(data, options)
}

// DumpToWriter writes the rendered dump to writer
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	for lineStart := 0; lineStart < len(data); lineStart += options.BytesPerLine {
		line := data[lineStart:]
		if len(line) > options.BytesPerLine {
			line = line[:options.BytesPerLine]
		}
		formatLine(writer, line, options.StartOffset+uint64(lineStart), options)
	}
}

// formatLine writes one output line: offset, hex cells padded to a full
// row, then the ASCII column
func formatLine(writer io.Writer, line []byte, offset uint64, options Options) {
	fmt.Fprintf(writer, "%0*X  ", options.OffsetWidth, offset)

	for i := 0; i < options.BytesPerLine; i++ {
		if options.GroupSize > 0 && i > 0 && i%options.GroupSize == 0 {
			fmt.Fprint(writer, " ")
		}
		if i < len(line) {
			fmt.Fprintf(writer, "%02X ", line[i])
		} else {
			fmt.Fprint(writer, "   ")
		}
	}

	if options.ShowASCII {
		fmt.Fprint(writer, " |")
		for _, b := range line {
			if b >= 0x20 && b < 0x7F {
				fmt.Fprintf(writer, "%c", b)
			} else {
				fmt.Fprint(writer, ".")
			}
		}
		fmt.Fprint(writer, "|")
	}

	fmt.Fprintln(writer)
}
