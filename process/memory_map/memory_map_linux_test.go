//go:build linux

package memory_map

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleMaps = `00400000-0040b000 r-xp 00000000 08:02 1835042  /usr/bin/cat
0060a000-0060b000 r--p 0000a000 08:02 1835042  /usr/bin/cat
0060b000-0060c000 rw-p 0000b000 08:02 1835042  /usr/bin/cat
01f68000-01f89000 rw-p 00000000 00:00 0        [heap]
7f0f3a000000-7f0f3a400000 rw-p 00000000 00:00 0
7ffc12345000-7ffc12366000 rw-p 00000000 00:00 0 [stack]
ffffffffff600000-ffffffffff601000 --xp 00000000 00:00 0 [vsyscall]
`

func TestParseMaps(t *testing.T) {
	got, err := ParseMaps(strings.NewReader(sampleMaps))
	if err != nil {
		t.Fatalf("ParseMaps() error = %v", err)
	}

	want := []MemoryMapItem{
		{Address: 0x00400000, Size: 0xb000, Perms: "r-xp", Committed: true},
		{Address: 0x0060a000, Size: 0x1000, Perms: "r--p", Committed: true},
		{Address: 0x0060b000, Size: 0x1000, Perms: "rw-p", Committed: true},
		{Address: 0x01f68000, Size: 0x21000, Perms: "rw-p", Committed: true},
		{Address: 0x7f0f3a000000, Size: 0x400000, Perms: "rw-p", Committed: true},
		{Address: 0x7ffc12345000, Size: 0x21000, Perms: "rw-p", Committed: true},
		{Address: 0xffffffffff600000, Size: 0x1000, Perms: "--xp", Committed: true},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseMaps() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMapsSkipsGarbage(t *testing.T) {
	input := `not a maps line
00400000-0040b000 r-xp 00000000 08:02 1835042  /usr/bin/cat
zzzz-yyyy rw-p 00000000 00:00 0
deadbeef rw-p
`
	got, err := ParseMaps(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseMaps() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ParseMaps() kept %d entries, want 1", len(got))
	}
	if got[0].Address != 0x00400000 {
		t.Errorf("ParseMaps() kept address 0x%X, want 0x400000", got[0].Address)
	}
}
