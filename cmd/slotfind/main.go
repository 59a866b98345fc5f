// slotfind is a minimal debugging scanner: attach to an explicit PID,
// run one signature pass over its memory, and print every candidate
// character-table address with its validation verdict and the raw bytes
// of its first slot. It bypasses the orchestrator entirely, which makes
// it handy when revising the table layout against a new game build.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"crashmem/hexdump"
	"crashmem/layout"
	"crashmem/process"
	"crashmem/scan"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to attach to")
	fastFlag := flag.Bool("fast", true, "Skip regions below the start address")
	startFlag := flag.Uint64("start", 0x07000000, "Fast-scan start address")
	chunkFlag := flag.Uint("chunk", 1<<20, "Bytes per region read")
	flag.Parse()

	if *pidFlag == 0 {
		fmt.Println("Error: --pid is required")
		flag.Usage()
		os.Exit(1)
	}

	proc, err := openPID(process.ProcessID(*pidFlag))
	if err != nil {
		fmt.Printf("Error attaching to process %d: %v\n", *pidFlag, err)
		os.Exit(1)
	}
	defer proc.Close()

	fmt.Printf("Attached to process %d\n", *pidFlag)

	tbl := layout.Default()
	s := scan.New(tbl,
		scan.WithFastScanStart(*startFlag),
		scan.WithChunkSize(*chunkFlag),
	)

	candidates, err := s.Candidates(context.Background(), proc, *fastFlag)
	if err != nil {
		fmt.Printf("Scan failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d candidates:\n", len(candidates))

	for _, c := range candidates {
		verdict := "validated"
		if err := s.Validate(proc, c); err != nil {
			verdict = fmt.Sprintf("rejected: %v", err)
		}
		fmt.Printf("\n%s %s\n", c.ToString(), verdict)

		slot, err := proc.ReadMemory(c, process.ProcessMemorySize(tbl.Stride))
		if err != nil {
			fmt.Printf("  slot 0 unreadable: %v\n", err)
			continue
		}
		fmt.Print(hexdump.DumpWithOffset(slot, uint64(c)))
	}
}
