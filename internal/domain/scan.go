package domain

import "fmt"

// Symbology is the barcode format reported by the decoder
type Symbology string

const (
	SymbologyUnknown    Symbology = ""
	SymbologyEAN8       Symbology = "EAN_8"
	SymbologyEAN13      Symbology = "EAN_13"
	SymbologyUPCA       Symbology = "UPC_A"
	SymbologyUPCE       Symbology = "UPC_E"
	SymbologyITF        Symbology = "ITF"
	SymbologyCode128    Symbology = "CODE_128"
	SymbologyCode39     Symbology = "CODE_39"
	SymbologyCode93     Symbology = "CODE_93"
	SymbologyCodabar    Symbology = "CODABAR"
	SymbologyDataBar    Symbology = "RSS_14"
	SymbologyQRCode     Symbology = "QR_CODE"
	SymbologyDataMatrix Symbology = "DATA_MATRIX"
)

// IsGenericLinear reports whether the format can carry arbitrary payloads,
// so a product GTIN has to be proven through a GS1 AI-01 element
func (s Symbology) IsGenericLinear() bool {
	switch s {
	case SymbologyCode128, SymbologyCode39, SymbologyCode93, SymbologyCodabar:
		return true
	}
	return false
}

// IsGTINFamily reports whether the format always encodes a GTIN with a check digit
func (s Symbology) IsGTINFamily() bool {
	switch s {
	case SymbologyEAN8, SymbologyEAN13, SymbologyUPCA, SymbologyUPCE, SymbologyITF:
		return true
	}
	return false
}

// RawScanEvent is one decode attempt delivered by the camera.
// Err is set for decode noise and camera failures; Text is empty then.
type RawScanEvent struct {
	Text   string
	Format Symbology
	Err    *CameraError
}

// CameraErrorCause classifies capture failures
type CameraErrorCause int

const (
	// CauseDecodeNoise is an expected miss on a frame; never surfaced
	CauseDecodeNoise CameraErrorCause = iota
	// CausePermissionDenied means the user or OS refused camera access
	CausePermissionDenied
	// CauseNoDevice means no camera is attached
	CauseNoDevice
	// CauseAccessFailure is any other failure to open or read the camera
	CauseAccessFailure
)

func (c CameraErrorCause) String() string {
	switch c {
	case CauseDecodeNoise:
		return "decode_noise"
	case CausePermissionDenied:
		return "permission_denied"
	case CauseNoDevice:
		return "no_device"
	default:
		return "access_failure"
	}
}

// CameraError is a capture error tagged by cause
type CameraError struct {
	Cause CameraErrorCause
	Err   error
}

func (e *CameraError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("camera %s: %v", e.Cause, e.Err)
	}
	return fmt.Sprintf("camera %s", e.Cause)
}

func (e *CameraError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error ends the scan session
func (e *CameraError) Fatal() bool {
	return e.Cause != CauseDecodeNoise
}

// Message returns the text shown to the user for this cause
func (e *CameraError) Message() string {
	switch e.Cause {
	case CausePermissionDenied:
		return "Camera permission denied."
	case CauseNoDevice:
		return "No camera found on this device."
	case CauseDecodeNoise:
		return "Unable to read barcode. Try again."
	default:
		return "Unable to access the camera."
	}
}

// ScanAction describes what HandleDetected did with a barcode
type ScanAction string

const (
	ActionIncremented   ScanAction = "incremented"
	ActionCreatedCached ScanAction = "created_cached"
	ActionCreated       ScanAction = "created_placeholder"
)

// ScanOutcome is returned by the resolution pipeline for one detected barcode
type ScanOutcome struct {
	Action     ScanAction    `json:"action"`
	Item       InventoryItem `json:"item"`
	Canonical  string        `json:"canonical"`
	Candidates []string      `json:"candidates"`
	Resolving  bool          `json:"resolving"`
}

// ProductName is the answer to a name lookup
type ProductName struct {
	Barcode string `json:"barcode"`
	Name    string `json:"name"`
	Found   bool   `json:"found"`
	Source  string `json:"source"`
}
