package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pantrylens/backend/internal/domain"
)

// DefaultStabilityThreshold is the number of identical consecutive reads
// needed before a barcode is accepted
const DefaultStabilityThreshold = 2

// SessionState is the lifecycle state of a scan session
type SessionState int

const (
	StateIdle SessionState = iota
	StateScanning
	StateConfirming
	StateResolved
	StateAborted
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateConfirming:
		return "confirming"
	case StateResolved:
		return "resolved"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// stableRead tracks consecutive identical decodes
type stableRead struct {
	last  string
	count int
}

// ScanSession debounces noisy decoder output for one scanner overlay.
// Frames are fed sequentially; Cancel may be called from any goroutine.
type ScanSession struct {
	ID uuid.UUID

	mu        sync.Mutex
	state     SessionState
	read      stableRead
	threshold int
	result    string
	err       error
	cancel    chan struct{}
	debug     bool
}

// NewScanSession creates an idle session. threshold <= 0 uses the default.
func NewScanSession(threshold int) *ScanSession {
	if threshold <= 0 {
		threshold = DefaultStabilityThreshold
	}
	return &ScanSession{
		ID:        uuid.New(),
		threshold: threshold,
		cancel:    make(chan struct{}),
	}
}

// SetDebug enables per-frame logging
func (s *ScanSession) SetDebug(debug bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = debug
}

// State returns the current state
func (s *ScanSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the confirmed barcode once the session is Resolved
func (s *ScanSession) Result() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.state == StateResolved
}

// Err returns the abort cause, if any
func (s *ScanSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Start moves an idle session to Scanning with an empty read state
func (s *ScanSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("%w: start from %s", domain.ErrSessionState, s.state)
	}
	s.state = StateScanning
	s.read = stableRead{}
	log.Printf("[SCAN] session %s started", s.ID)
	return nil
}

// Observe feeds one decode attempt. It returns the canonical barcode and true
// when this frame completed the stability run; the session is then Confirming.
func (s *ScanSession) Observe(event domain.RawScanEvent) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateScanning {
		return "", false
	}
	if event.Err != nil {
		return "", false
	}

	canonical, ok := frameCandidate(event)
	if !ok {
		if s.debug {
			log.Printf("[SCAN] session %s dropped %s frame %q", s.ID, event.Format, event.Text)
		}
		return "", false
	}

	if canonical == s.read.last {
		s.read.count++
	} else {
		s.read = stableRead{last: canonical, count: 1}
	}

	if s.debug {
		log.Printf("[SCAN] session %s read %q (%d/%d)", s.ID, canonical, s.read.count, s.threshold)
	}

	if s.read.count < s.threshold {
		return "", false
	}

	s.state = StateConfirming
	s.read = stableRead{}
	return canonical, true
}

// frameCandidate validates a frame and returns its canonical barcode
func frameCandidate(event domain.RawScanEvent) (string, bool) {
	switch {
	case event.Format.IsGenericLinear():
		gtin, ok := ExtractGS1GTIN(event.Text)
		if !ok || !IsValidGtin(gtin) {
			return "", false
		}
	case !event.Format.IsGTINFamily():
		// 2D and unreported formats carry free text; only a bare GTIN or
		// GS1 element string counts as a product code
		if !isNumericPayload(event.Text) {
			return "", false
		}
	}

	canonical := Canonicalize(event.Text)
	if canonical == "" {
		return "", false
	}

	if !event.Format.IsGenericLinear() && !IsValidGtin(canonical) {
		return "", false
	}
	return canonical, true
}

// isNumericPayload reports whether text holds digits plus the separators
// used in printed GS1 element strings
func isNumericPayload(text string) bool {
	digits := 0
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '(' || r == ')' || r == ' ' || r == '\x1d':
		default:
			return false
		}
	}
	return digits > 0
}

// confirm finishes a Confirming session
func (s *ScanSession) confirm(barcode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConfirming {
		return
	}
	s.result = barcode
	s.state = StateResolved
	log.Printf("[SCAN] session %s resolved %q", s.ID, barcode)
}

// abort moves any non-terminal session to Aborted. The first cause wins.
func (s *ScanSession) abort(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateResolved || s.state == StateAborted {
		return
	}
	s.state = StateAborted
	s.err = err
	log.Printf("[SCAN] session %s aborted: %v", s.ID, err)
}

// Cancel closes the session as if the user dismissed the scanner
func (s *ScanSession) Cancel() {
	s.abort(domain.ErrScanCancelled)

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.cancel:
	default:
		close(s.cancel)
	}
}

// Run drives the session from capture until a barcode is confirmed or the
// session aborts. The capture is always stopped before Run returns.
func (s *ScanSession) Run(ctx context.Context, capture domain.CameraCapture) (string, error) {
	if s.State() == StateIdle {
		if err := s.Start(); err != nil {
			return "", err
		}
	}
	defer releaseCamera(s.ID, capture)

	events := capture.Events()
	for {
		select {
		case <-ctx.Done():
			s.abort(domain.ErrScanCancelled)
			return "", s.Err()
		case <-s.cancel:
			return "", s.Err()
		case event, ok := <-events:
			if !ok {
				s.abort(domain.ErrCaptureClosed)
				return "", s.Err()
			}
			if event.Err != nil && event.Err.Fatal() {
				s.abort(event.Err)
				return "", s.Err()
			}
			if barcode, done := s.Observe(event); done {
				s.confirm(barcode)
				return barcode, nil
			}
			if st := s.State(); st == StateAborted {
				return "", s.Err()
			}
		}
	}
}

// releaseCamera stops the capture; already-stopped streams are tolerated
func releaseCamera(id uuid.UUID, capture domain.CameraCapture) {
	if err := capture.Stop(); err != nil {
		log.Printf("[SCAN] session %s camera release: %v", id, err)
	}
}
