package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/pantrylens/backend/internal/domain"
)

// zbarSymbologies maps zbar type prefixes to decoder formats
var zbarSymbologies = map[string]domain.Symbology{
	"EAN-8":       domain.SymbologyEAN8,
	"EAN-13":      domain.SymbologyEAN13,
	"UPC-A":       domain.SymbologyUPCA,
	"UPC-E":       domain.SymbologyUPCE,
	"I2/5":        domain.SymbologyITF,
	"CODE-128":    domain.SymbologyCode128,
	"CODE-39":     domain.SymbologyCode39,
	"CODE-93":     domain.SymbologyCode93,
	"Codabar":     domain.SymbologyCodabar,
	"DataBar":     domain.SymbologyDataBar,
	"DataBar-Exp": domain.SymbologyDataBar,
	"QR-Code":     domain.SymbologyQRCode,
}

// ZbarCapture turns zbar text output ("EAN-13:4006381333931" per line) into
// scan events. It either owns a zbarcam process or reads from any reader.
type ZbarCapture struct {
	events chan domain.RawScanEvent
	done   chan struct{}

	cmd    *exec.Cmd
	stderr *bytes.Buffer
	closer io.Closer

	stopOnce sync.Once
	stopped  bool
	mu       sync.Mutex
}

// NewLineCapture reads zbar formatted lines from r until EOF or Stop.
// r is closed on Stop when it implements io.Closer.
func NewLineCapture(r io.Reader) *ZbarCapture {
	c := &ZbarCapture{
		events: make(chan domain.RawScanEvent),
		done:   make(chan struct{}),
	}
	if closer, ok := r.(io.Closer); ok {
		c.closer = closer
	}
	go c.pump(r)
	return c
}

// StartZbarcam launches zbarcam on device (empty for the default camera)
func StartZbarcam(ctx context.Context, binary, device string) (*ZbarCapture, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, &domain.CameraError{Cause: domain.CauseAccessFailure, Err: err}
	}

	args := []string{"--nodisplay"}
	if device != "" {
		args = append(args, device)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &domain.CameraError{Cause: domain.CauseAccessFailure, Err: err}
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, &domain.CameraError{Cause: domain.CauseAccessFailure, Err: err}
	}
	log.Printf("[CAMERA] started %s %s", path, strings.Join(args, " "))

	c := &ZbarCapture{
		events: make(chan domain.RawScanEvent),
		done:   make(chan struct{}),
		cmd:    cmd,
		stderr: stderr,
	}
	go c.pump(stdout)
	return c, nil
}

// Events returns the decode stream; it is closed when the input ends
func (c *ZbarCapture) Events() <-chan domain.RawScanEvent {
	return c.events
}

// Stop releases the camera. Calling it more than once is harmless.
func (c *ZbarCapture) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		c.mu.Unlock()
		close(c.done)

		if c.cmd != nil && c.cmd.Process != nil {
			if kerr := c.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				err = kerr
			}
		}
		if c.closer != nil {
			if cerr := c.closer.Close(); cerr != nil {
				err = cerr
			}
		}
	})
	return err
}

func (c *ZbarCapture) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *ZbarCapture) pump(r io.Reader) {
	defer close(c.events)

	scanErr := c.readLines(r)

	// Always reap the process, even after Stop killed it
	var waitErr error
	if c.cmd != nil {
		waitErr = c.cmd.Wait()
	}
	if c.isStopped() {
		return
	}

	switch {
	case scanErr != nil:
		c.send(domain.RawScanEvent{Err: &domain.CameraError{Cause: domain.CauseAccessFailure, Err: scanErr}})
	case waitErr != nil:
		c.send(domain.RawScanEvent{Err: classify(c.stderr.String(), waitErr)})
	}
}

func (c *ZbarCapture) readLines(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !c.send(ParseLine(line)) {
			return nil
		}
	}
	return scanner.Err()
}

func (c *ZbarCapture) send(event domain.RawScanEvent) bool {
	select {
	case c.events <- event:
		return true
	case <-c.done:
		return false
	}
}

// ParseLine splits a zbar "TYPE:data" line. Lines without a known type
// prefix (zbarcam --raw) are returned whole with an unknown format.
func ParseLine(line string) domain.RawScanEvent {
	if prefix, data, ok := strings.Cut(line, ":"); ok {
		if format, known := zbarSymbologies[prefix]; known {
			return domain.RawScanEvent{Text: data, Format: format}
		}
	}
	return domain.RawScanEvent{Text: line, Format: domain.SymbologyUnknown}
}

// classify maps zbarcam stderr output to a camera error cause
func classify(stderr string, err error) *domain.CameraError {
	msg := strings.ToLower(stderr)
	cause := domain.CauseAccessFailure
	switch {
	case strings.Contains(msg, "permission denied"):
		cause = domain.CausePermissionDenied
	case strings.Contains(msg, "no such file or directory"), strings.Contains(msg, "no such device"):
		cause = domain.CauseNoDevice
	}
	if detail := strings.TrimSpace(stderr); detail != "" {
		err = fmt.Errorf("%w: %s", err, detail)
	}
	return &domain.CameraError{Cause: cause, Err: err}
}
