// Package editor drives the attach/scan/edit lifecycle against a running
// game process and serves field reads and writes once a character table
// has been located and validated.
//
// The orchestrator is an explicit state machine (Detached, Attaching,
// Scanning, Validating, Ready, Stale). It runs in its own goroutine via
// Run and publishes every transition to registered handlers; callers must
// not touch character data before Ready. There is no terminal state other
// than cancellation: losing the process sends the machine back to
// Attaching, for as long as the caller keeps it running.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"crashmem/config"
	"crashmem/layout"
	"crashmem/process"
	"crashmem/scan"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/google/uuid"
)

// errDetach signals the run loop that the current attach session is dead
// and the machine should go back to Attaching
var errDetach = errors.New("attach session lost")

// maxScanBackoff caps the doubling delay between scan rounds that keep
// coming up empty while the process is alive
const maxScanBackoff = 30 * time.Second

// Editor owns the process handle and the validated table base for one
// attach session at a time. The accessor methods borrow them; the run
// loop may revoke them whenever the session turns stale.
type Editor struct {
	cfg     config.Config
	opener  process.Opener
	table   layout.Table
	scanner *scan.Scanner

	mu       sync.Mutex
	state    State
	proc     process.Process
	base     process.ProcessMemoryAddress
	session  string
	handlers []StateHandler
	cancel   context.CancelFunc

	rescanCh chan struct{}
	staleCh  chan struct{}

	log *logger.Logger
}

// Option is a function that configures an Editor
type Option func(*Editor)

// WithTable overrides the default character-table layout
func WithTable(t layout.Table) Option {
	return func(e *Editor) {
		e.table = t
	}
}

// New creates an Editor. The opener resolves the configured process name
// to an attached handle; per-OS implementations live in process_linux and
// process_windows, tests supply a fake.
func New(cfg config.Config, opener process.Opener, options ...Option) *Editor {
	e := &Editor{
		cfg:      cfg,
		opener:   opener,
		table:    layout.Default(),
		state:    StateDetached,
		rescanCh: make(chan struct{}, 1),
		staleCh:  make(chan struct{}, 1),
		log:      logger.NewLogger(coloransi.Color(coloransi.ColorCyan, coloransi.ColorPurple, "session-none")),
	}

	for _, opt := range options {
		opt(e)
	}

	e.scanner = scan.New(e.table,
		scan.WithFastScanStart(cfg.FastScanStart),
		scan.WithChunkSize(cfg.ChunkSize),
	)

	return e
}

// OnStateChange registers a handler for state transitions. Handlers run
// synchronously on the goroutine that detected the transition; keep them
// fast and hand heavy work off. Register before Run.
func (e *Editor) OnStateChange(h StateHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, h)
}

// logger returns the session-tagged logger. The field is reassigned on
// every attach, so goroutines other than the run loop go through here.
func (e *Editor) logger() *logger.Logger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log
}

// State returns the current orchestrator state
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Session returns the ID of the current attach session, empty before the
// first attach
func (e *Editor) Session() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Rescan asks the run loop to drop the cached base and locate the table
// again. While a scan is already in flight the request is a no-op, not
// queued.
func (e *Editor) Rescan() {
	e.mu.Lock()
	busy := e.state == StateScanning || e.state == StateValidating
	e.mu.Unlock()

	if busy {
		e.logger().Infoln("Scan already in progress")
		return
	}

	select {
	case e.rescanCh <- struct{}{}:
	default:
	}
}

// Close stops the run loop. Safe to call more than once and before Run.
func (e *Editor) Close() error {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// Run drives the machine until ctx is canceled or Close is called. It
// blocks; callers start it on its own goroutine and watch state events.
func (e *Editor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	defer e.detach()

	for {
		if err := e.attach(ctx); err != nil {
			return err
		}

		err := e.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !errors.Is(err, errDetach) {
			return err
		}

		// Session lost: drop the handle and start over
		e.detach()
	}
}

// attach looks the process up by name, retrying every AttachRetry until
// it exists. This absorbs the race where the editor is started before
// the game. After attaching it waits ScanDelay for the game to finish
// populating its heap.
func (e *Editor) attach(ctx context.Context) error {
	e.setState(StateAttaching, nil)

	for {
		proc, err := e.opener.OpenByName(e.cfg.ProcessName)
		if err == nil {
			session := uuid.New().String()

			e.mu.Lock()
			e.proc = proc
			e.session = session
			e.log = logger.NewLogger(coloransi.Color(coloransi.ColorCyan, coloransi.ColorPurple, "session-"+session[:8]))
			e.mu.Unlock()

			e.log.Infoln("Attached to", e.cfg.ProcessName, "pid", proc.GetPID())

			if e.cfg.ScanDelay > 0 {
				e.log.Infoln("Waiting", e.cfg.ScanDelay.Std(), "for the process to settle")
				if !sleepCtx(ctx, e.cfg.ScanDelay.Std()) {
					return ctx.Err()
				}
			}
			return nil
		}

		if !errors.Is(err, process.ErrProcessNotFound) {
			e.log.Warn("Attach attempt failed: ", err)
		}

		if !sleepCtx(ctx, e.cfg.AttachRetry.Std()) {
			return ctx.Err()
		}
	}
}

// runSession owns one attach session: locate the table, then watch for
// staleness and rescan requests until the session dies.
func (e *Editor) runSession(ctx context.Context) error {
	for {
		if err := e.locate(ctx); err != nil {
			return err
		}

		err := e.watch(ctx)
		if err != nil {
			return err
		}
		// nil means a rescan was requested; locate again on the same
		// session
	}
}

// locate runs scan rounds until one yields a validated base. A fast
// round that comes up empty falls back to a full round before the miss
// counts; a missed round backs off (doubling, capped) and retries while
// the process stays alive.
func (e *Editor) locate(ctx context.Context) error {
	// A stale signal from a previous round must not leak into this one
	select {
	case <-e.staleCh:
	default:
	}

	backoff := e.cfg.AttachRetry.Std()
	var roundErr error

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.setState(StateScanning, roundErr)

		base, err := e.pass(ctx, e.cfg.FastScan)
		if errors.Is(err, scan.ErrNoCandidate) && e.cfg.FastScan {
			e.log.Warn("Fast scan found nothing, falling back to a full scan")
			e.setState(StateScanning, scan.ErrNoCandidate)
			base, err = e.pass(ctx, false)
		}

		if err == nil {
			e.mu.Lock()
			e.base = base
			e.mu.Unlock()
			e.log.Infoln("Character table at", base.ToString())
			e.setState(StateReady, nil)
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		e.mu.Lock()
		proc := e.proc
		e.mu.Unlock()
		if proc == nil || !proc.IsRunning() {
			e.log.Warn("Process exited during scan")
			return errDetach
		}

		e.log.Warn("Scan round failed: ", err)
		roundErr = err

		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxScanBackoff {
			backoff = maxScanBackoff
		}
	}
}

// pass runs one signature scan plus validation over the current handle.
// The lowest validated address wins; ambiguity is logged inside the
// scanner, never surfaced.
func (e *Editor) pass(ctx context.Context, fast bool) (process.ProcessMemoryAddress, error) {
	e.mu.Lock()
	proc := e.proc
	e.mu.Unlock()

	candidates, err := e.scanner.Candidates(ctx, proc, fast)
	if err != nil {
		return 0, err
	}

	e.setState(StateValidating, nil)
	return e.scanner.Pick(ctx, proc, candidates)
}

// watch holds the Ready state: it health-checks the base periodically
// and waits for rescan requests. Returns nil when a rescan should run,
// errDetach when the session is lost.
func (e *Editor) watch(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.AttachRetry.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-e.rescanCh:
			e.log.Infoln("Rescan requested")
			return nil

		case <-e.staleCh:
			// An accessor call already marked the session stale
			return errDetach

		case <-ticker.C:
			if err := e.healthCheck(); err != nil {
				e.markStale(err)
				return errDetach
			}
		}
	}
}

// healthCheck proves the base is still live: the process exists and the
// slot 0 flag byte is readable
func (e *Editor) healthCheck() error {
	e.mu.Lock()
	proc, base := e.proc, e.base
	e.mu.Unlock()

	if proc == nil || !proc.IsRunning() {
		return fmt.Errorf("health check: %w", process.ErrProcessNotFound)
	}
	if _, err := proc.ReadUINT8(base); err != nil {
		return fmt.Errorf("health check read at %s: %w", base.ToString(), err)
	}
	return nil
}

// markStale revokes the base after a liveness failure. Idempotent per
// session; only a Ready session can turn stale.
func (e *Editor) markStale(cause error) {
	e.mu.Lock()
	if e.state != StateReady {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.logger().Warn("Session stale: ", cause)
	e.setState(StateStale, cause)

	select {
	case e.staleCh <- struct{}{}:
	default:
	}
}

// detach closes the process handle and clears everything the session
// owned
func (e *Editor) detach() {
	e.mu.Lock()
	proc := e.proc
	e.proc = nil
	e.base = 0
	e.mu.Unlock()

	if proc != nil {
		if err := proc.Close(); err != nil {
			e.logger().Debugln("Close failed:", err)
		}
	}
}

// setState moves the machine and publishes the transition
func (e *Editor) setState(to State, cause error) {
	e.mu.Lock()
	from := e.state
	e.state = to
	event := StateEvent{
		Session: e.session,
		From:    from,
		To:      to,
		Err:     cause,
		Time:    time.Now(),
	}
	handlers := make([]StateHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// sleepCtx sleeps for d unless ctx ends first; reports whether the full
// sleep happened
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
