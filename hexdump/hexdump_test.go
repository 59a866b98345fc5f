package hexdump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpWithOffset(t *testing.T) {
	data := append([]byte("GET /index"), 0x00, 0x80, 0xFF)
	out := DumpWithOffset(data, 0x08000100)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 1)

	assert.True(t, strings.HasPrefix(lines[0], "08000100  "), lines[0])
	assert.Contains(t, lines[0], "47 45 54 20 2F 69 6E 64")
	assert.Contains(t, lines[0], "|GET /index...|", "non-printables render as dots")
}

func TestDumpLineSplitAndPadding(t *testing.T) {
	out := Dump(make([]byte, 20), DefaultOptions())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)

	assert.True(t, strings.HasPrefix(lines[1], "00000010  "))

	// The short last line pads its hex cells so the ASCII columns align
	assert.Equal(t, strings.Index(lines[0], "|"), strings.Index(lines[1], "|"))
}

func TestDumpEmpty(t *testing.T) {
	assert.Empty(t, Dump(nil, DefaultOptions()))
}
