package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pantrylens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockCameraCapture is a channel-backed domain.CameraCapture
type MockCameraCapture struct {
	events    chan domain.RawScanEvent
	mu        sync.Mutex
	stopCalls int
	stopError error
}

func NewMockCameraCapture(buffer int) *MockCameraCapture {
	return &MockCameraCapture{events: make(chan domain.RawScanEvent, buffer)}
}

func (m *MockCameraCapture) Events() <-chan domain.RawScanEvent {
	return m.events
}

func (m *MockCameraCapture) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	return m.stopError
}

func (m *MockCameraCapture) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

func ean13(text string) domain.RawScanEvent {
	return domain.RawScanEvent{Text: text, Format: domain.SymbologyEAN13}
}

func TestScanSession_Lifecycle(t *testing.T) {
	s := NewScanSession(0)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, DefaultStabilityThreshold, s.threshold)

	require.NoError(t, s.Start())
	assert.Equal(t, StateScanning, s.State())

	err := s.Start()
	assert.ErrorIs(t, err, domain.ErrSessionState)
}

func TestScanSession_TwoIdenticalReadsConfirm(t *testing.T) {
	s := NewScanSession(2)
	require.NoError(t, s.Start())

	_, done := s.Observe(ean13("4006381333931"))
	assert.False(t, done)
	assert.Equal(t, StateScanning, s.State())

	barcode, done := s.Observe(ean13("4006381333931"))
	assert.True(t, done)
	assert.Equal(t, "4006381333931", barcode)
	assert.Equal(t, StateConfirming, s.State())

	// A confirming session emits only once
	_, done = s.Observe(ean13("4006381333931"))
	assert.False(t, done)
}

func TestScanSession_MismatchResetsCounter(t *testing.T) {
	s := NewScanSession(2)
	require.NoError(t, s.Start())

	_, done := s.Observe(ean13("4006381333931"))
	assert.False(t, done)
	_, done = s.Observe(ean13("036000291452"))
	assert.False(t, done)

	assert.Equal(t, "036000291452", s.read.last)
	assert.Equal(t, 1, s.read.count)
	assert.Equal(t, StateScanning, s.State())
}

func TestScanSession_EquivalentEncodingsCountAsSameRead(t *testing.T) {
	s := NewScanSession(2)
	require.NoError(t, s.Start())

	_, done := s.Observe(domain.RawScanEvent{Text: "036000291452", Format: domain.SymbologyUPCA})
	assert.False(t, done)
	barcode, done := s.Observe(ean13("0036000291452"))
	assert.True(t, done)
	assert.Equal(t, "036000291452", barcode)
}

func TestScanSession_DropsNoise(t *testing.T) {
	tests := []struct {
		name  string
		event domain.RawScanEvent
	}{
		{"code128 without AI 01", domain.RawScanEvent{Text: "SHIP-123456", Format: domain.SymbologyCode128}},
		{"code128 with bad GTIN check digit", domain.RawScanEvent{Text: "0104006381333930", Format: domain.SymbologyCode128}},
		{"ean13 with bad check digit", ean13("4006381333930")},
		{"empty text", domain.RawScanEvent{Text: "  ", Format: domain.SymbologyQRCode}},
		{"qr url with embedded GTIN", domain.RawScanEvent{Text: "https://shop.example/p/4006381333931", Format: domain.SymbologyQRCode}},
		{"raw line with free text", domain.RawScanEvent{Text: "WIFI:S:home;T:WPA;;", Format: domain.SymbologyUnknown}},
		{"raw digits with bad check digit", domain.RawScanEvent{Text: "4006381333930", Format: domain.SymbologyUnknown}},
		{"raw digits too short for a GTIN", domain.RawScanEvent{Text: "12345", Format: domain.SymbologyUnknown}},
		{"decode noise", domain.RawScanEvent{Err: &domain.CameraError{Cause: domain.CauseDecodeNoise}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanSession(1)
			require.NoError(t, s.Start())

			_, done := s.Observe(tt.event)
			assert.False(t, done)
			assert.Equal(t, StateScanning, s.State())
			assert.Equal(t, 0, s.read.count)
		})
	}
}

func TestScanSession_AcceptsNumericFramesWithoutKnownFormat(t *testing.T) {
	tests := []struct {
		name  string
		event domain.RawScanEvent
		want  string
	}{
		{"raw EAN-13", domain.RawScanEvent{Text: "4006381333931", Format: domain.SymbologyUnknown}, "4006381333931"},
		{"raw GS1 element string", domain.RawScanEvent{Text: "(01) 04006381333931", Format: domain.SymbologyUnknown}, "4006381333931"},
		{"data matrix with GTIN-14", domain.RawScanEvent{Text: "04006381333931", Format: domain.SymbologyDataMatrix}, "4006381333931"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanSession(1)
			require.NoError(t, s.Start())

			barcode, done := s.Observe(tt.event)
			assert.True(t, done)
			assert.Equal(t, tt.want, barcode)
		})
	}
}

func TestScanSession_AcceptsGS1Code128(t *testing.T) {
	s := NewScanSession(2)
	require.NoError(t, s.Start())

	ev := domain.RawScanEvent{Text: "0104006381333931", Format: domain.SymbologyCode128}
	s.Observe(ev)
	barcode, done := s.Observe(ev)
	assert.True(t, done)
	assert.Equal(t, "4006381333931", barcode)
}

func TestScanSession_IgnoresFramesBeforeStart(t *testing.T) {
	s := NewScanSession(1)
	_, done := s.Observe(ean13("4006381333931"))
	assert.False(t, done)
	assert.Equal(t, StateIdle, s.State())
}

func TestScanSession_Run(t *testing.T) {
	t.Run("resolves and releases the camera", func(t *testing.T) {
		capture := NewMockCameraCapture(8)
		capture.events <- ean13("4006381333931")
		capture.events <- domain.RawScanEvent{Err: &domain.CameraError{Cause: domain.CauseDecodeNoise}}
		capture.events <- ean13("4006381333931")

		s := NewScanSession(2)
		barcode, err := s.Run(context.Background(), capture)

		require.NoError(t, err)
		assert.Equal(t, "4006381333931", barcode)
		assert.Equal(t, StateResolved, s.State())
		assert.Equal(t, 1, capture.StopCalls())

		got, ok := s.Result()
		assert.True(t, ok)
		assert.Equal(t, "4006381333931", got)
	})

	t.Run("fatal camera error aborts with cause", func(t *testing.T) {
		capture := NewMockCameraCapture(1)
		capture.events <- domain.RawScanEvent{Err: &domain.CameraError{Cause: domain.CausePermissionDenied}}

		s := NewScanSession(2)
		_, err := s.Run(context.Background(), capture)

		var camErr *domain.CameraError
		require.True(t, errors.As(err, &camErr))
		assert.Equal(t, domain.CausePermissionDenied, camErr.Cause)
		assert.Equal(t, "Camera permission denied.", camErr.Message())
		assert.Equal(t, StateAborted, s.State())
		assert.Equal(t, 1, capture.StopCalls())
	})

	t.Run("closed stream aborts", func(t *testing.T) {
		capture := NewMockCameraCapture(1)
		close(capture.events)

		s := NewScanSession(2)
		_, err := s.Run(context.Background(), capture)
		assert.ErrorIs(t, err, domain.ErrCaptureClosed)
		assert.Equal(t, StateAborted, s.State())
	})

	t.Run("cancel releases the camera", func(t *testing.T) {
		capture := NewMockCameraCapture(0)
		capture.stopError = errors.New("track already stopped")
		s := NewScanSession(2)

		done := make(chan error, 1)
		go func() {
			_, err := s.Run(context.Background(), capture)
			done <- err
		}()

		// Wait for the session to start before cancelling
		require.Eventually(t, func() bool { return s.State() == StateScanning }, time.Second, 5*time.Millisecond)
		s.Cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, domain.ErrScanCancelled)
		case <-time.After(time.Second):
			t.Fatal("Run did not return after Cancel")
		}
		assert.Equal(t, StateAborted, s.State())
		assert.Equal(t, 1, capture.StopCalls())
	})

	t.Run("context cancellation aborts", func(t *testing.T) {
		capture := NewMockCameraCapture(0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := NewScanSession(2)
		_, err := s.Run(ctx, capture)
		assert.ErrorIs(t, err, domain.ErrScanCancelled)
	})
}

func TestCameraErrorMessages(t *testing.T) {
	tests := []struct {
		cause domain.CameraErrorCause
		want  string
		fatal bool
	}{
		{domain.CausePermissionDenied, "Camera permission denied.", true},
		{domain.CauseNoDevice, "No camera found on this device.", true},
		{domain.CauseAccessFailure, "Unable to access the camera.", true},
		{domain.CauseDecodeNoise, "Unable to read barcode. Try again.", false},
	}
	for _, tt := range tests {
		t.Run(tt.cause.String(), func(t *testing.T) {
			err := &domain.CameraError{Cause: tt.cause}
			assert.Equal(t, tt.want, err.Message())
			assert.Equal(t, tt.fatal, err.Fatal())
		})
	}
}
