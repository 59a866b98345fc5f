// Package scan locates the character table inside a target process.
//
// A scan pass walks the readable regions of the process, searches their
// bytes for the table signature, and validates every candidate against
// the layout's field-range invariants. Addresses coming out of the
// signature search are hypotheses; only validation promotes one to a
// usable table base.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"crashmem/layout"
	"crashmem/process"
	"crashmem/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var (
	// ErrNoCandidate is returned when a pass finds no validated table base
	ErrNoCandidate = errors.New("no candidate found")

	// ErrNoReadableRegion is returned when not a single region byte could
	// be read. Per-region access failures are skipped; this is the fatal
	// form.
	ErrNoReadableRegion = errors.New("no readable region")
)

// Scanner holds configuration for table scans
type Scanner struct {
	table         layout.Table
	fastScanStart uint64
	chunkSize     uint
	maxRegionSize uint
	maxCandidates int
	log           *logger.Logger
}

// Option is a function that configures a Scanner
type Option func(*Scanner)

// WithFastScanStart sets the address threshold below which fast-scan
// passes skip regions
func WithFastScanStart(addr uint64) Option {
	return func(s *Scanner) {
		s.fastScanStart = addr
	}
}

// WithChunkSize bounds the size of a single region read
func WithChunkSize(n uint) Option {
	return func(s *Scanner) {
		s.chunkSize = n
	}
}

// WithMaxRegionSize skips regions larger than n bytes entirely
func WithMaxRegionSize(n uint) Option {
	return func(s *Scanner) {
		s.maxRegionSize = n
	}
}

// WithMaxCandidates caps how many raw signature matches a pass collects
func WithMaxCandidates(n int) Option {
	return func(s *Scanner) {
		s.maxCandidates = n
	}
}

// New creates a Scanner for the given table layout
func New(table layout.Table, options ...Option) *Scanner {
	s := &Scanner{
		table:         table,
		fastScanStart: 0x07000000,
		chunkSize:     1 << 20,   // 1 MiB per read
		maxRegionSize: 256 << 20, // skip absurd mappings
		maxCandidates: 64,
		log:           logger.NewLogger(coloransi.Color(coloransi.ColorOrange, coloransi.ColorPurple, "scanner")),
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// Regions returns the regions a pass will walk: committed, readable, in
// ascending address order. A fast pass drops every region starting below
// the fast-scan threshold. The map is re-enumerated every call; region
// lists are never cached across passes.
func (s *Scanner) Regions(proc process.Process, fast bool) ([]memory_map.MemoryMapItem, error) {
	if err := proc.UpdateMemoryMap(); err != nil {
		return nil, fmt.Errorf("refresh memory map: %w", err)
	}

	mm, err := proc.GetMemoryMap()
	if err != nil {
		return nil, fmt.Errorf("get memory map: %w", err)
	}

	var out []memory_map.MemoryMapItem
	for _, region := range mm {
		if !region.Committed || !region.IsReadable() {
			continue
		}
		if fast && region.Address < s.fastScanStart {
			continue
		}
		out = append(out, region)
	}

	return out, nil
}

// Candidates walks the pass regions and returns every signature match in
// ascending address order. The result is raw: candidates are not yet
// validated.
func (s *Scanner) Candidates(ctx context.Context, proc process.Process, fast bool) ([]process.ProcessMemoryAddress, error) {
	regions, err := s.Regions(proc, fast)
	if err != nil {
		return nil, err
	}

	sig := NewSignature(s.table)
	span := sig.Span()

	s.log.Infoln("Starting scan pass over", len(regions), "regions, fast =", fast)

	var results []process.ProcessMemoryAddress
	var bytesRead uint64

	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if uint(region.Size) < span {
			continue
		}
		if s.maxRegionSize > 0 && region.Size > s.maxRegionSize {
			s.log.Debugln("Skipping oversized region at", fmt.Sprintf("0x%X", region.Address))
			continue
		}

		n, err := s.scanRegion(ctx, proc, region, sig, &results)
		bytesRead += n
		if err != nil {
			return nil, err
		}

		if len(results) >= s.maxCandidates {
			s.log.Warn("Candidate cap reached, stopping region walk")
			break
		}
	}

	if bytesRead == 0 {
		if fast {
			// Nothing above the threshold was readable; the caller's
			// fallback full pass decides whether that is fatal
			return nil, ErrNoCandidate
		}
		return nil, ErrNoReadableRegion
	}

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	results = dedupeAddresses(results)

	s.log.Infoln("Scan pass complete,", len(results), "raw candidates")
	return results, nil
}

// scanRegion reads one region in bounded chunks and collects signature
// matches. Chunks overlap by span-1 bytes so a match footprint crossing a
// chunk boundary is still seen whole. A failed chunk read is skipped
// unless the process is gone, which aborts the remainder of the region.
func (s *Scanner) scanRegion(
	ctx context.Context,
	proc process.Process,
	region memory_map.MemoryMapItem,
	sig Signature,
	results *[]process.ProcessMemoryAddress,
) (uint64, error) {
	span := sig.Span()

	chunk := s.chunkSize
	if chunk < span {
		chunk = span
	}
	step := chunk - (span - 1)

	var bytesRead uint64

	for off := uint(0); off+span <= uint(region.Size); off += step {
		if err := ctx.Err(); err != nil {
			return bytesRead, err
		}

		n := chunk
		if off+n > uint(region.Size) {
			n = uint(region.Size) - off
		}

		addr := process.ProcessMemoryAddress(region.Address + uint64(off))
		data, err := proc.ReadMemory(addr, process.ProcessMemorySize(n))
		if err != nil {
			if !proc.IsRunning() {
				return bytesRead, fmt.Errorf("scan aborted: %w", process.ErrProcessNotFound)
			}
			// An unreadable chunk does not abort the region
			s.log.Debugln("Failed to read chunk at", addr.ToString(), err)
			continue
		}
		bytesRead += uint64(len(data))

		for _, i := range sig.Find(data) {
			*results = append(*results, addr+process.ProcessMemoryAddress(i))
			if len(*results) >= s.maxCandidates {
				return bytesRead, nil
			}
		}
	}

	return bytesRead, nil
}

// Validate reads the candidate window from the process and applies the
// pure layout predicate to it.
func (s *Scanner) Validate(proc process.Process, addr process.ProcessMemoryAddress) error {
	buf, err := proc.ReadMemory(addr, process.ProcessMemorySize(s.table.WindowSize()))
	if err != nil {
		return fmt.Errorf("read candidate window at %s: %w", addr.ToString(), err)
	}
	return s.table.ValidateWindow(buf)
}

// Locate runs one full pass: signature candidates, then validation.
// Multiple validated candidates resolve deterministically to the lowest
// address; that ambiguity is logged, never surfaced. Returns
// ErrNoCandidate when nothing validates.
func (s *Scanner) Locate(ctx context.Context, proc process.Process, fast bool) (process.ProcessMemoryAddress, error) {
	candidates, err := s.Candidates(ctx, proc, fast)
	if err != nil {
		return 0, err
	}
	return s.Pick(ctx, proc, candidates)
}

// Pick validates raw candidates and resolves them to a single table base,
// lowest validated address first. Returns ErrNoCandidate when nothing
// validates.
func (s *Scanner) Pick(ctx context.Context, proc process.Process, candidates []process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	var accepted []process.ProcessMemoryAddress
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := s.Validate(proc, c); err != nil {
			s.log.Debugln("Candidate", c.ToString(), "rejected:", err)
			continue
		}
		accepted = append(accepted, c)
	}

	if len(accepted) == 0 {
		return 0, ErrNoCandidate
	}
	if len(accepted) > 1 {
		s.log.Warn("Multiple validated candidates, using lowest address: ", accepted[0].ToString())
	}

	return accepted[0], nil
}

func dedupeAddresses(addrs []process.ProcessMemoryAddress) []process.ProcessMemoryAddress {
	if len(addrs) < 2 {
		return addrs
	}
	out := addrs[:1]
	for _, a := range addrs[1:] {
		if a != out[len(out)-1] {
			out = append(out, a)
		}
	}
	return out
}
