package config

import (
	"time"

	"gocv.io/x/gocv"
)

// AuthStatus classifies the terminal outcome of a verification attempt.
type AuthStatus string

const (
	StatusSuccess       AuthStatus = "SUCCESS"
	StatusFailed        AuthStatus = "FAILED"
	StatusNoFace        AuthStatus = "NO_FACE"
	StatusMultipleFaces AuthStatus = "MULTIPLE_FACES"
	StatusLowQuality    AuthStatus = "LOW_QUALITY"
	StatusTimeout       AuthStatus = "TIMEOUT"
)

// EmbeddingBackend identifies the comparison backend resolved once at
// pipeline construction. It never changes for the lifetime of a pipeline.
type EmbeddingBackend int

const (
	// EmbeddingBackendNone compares faces with classical frame metrics only.
	EmbeddingBackendNone EmbeddingBackend = iota
	// EmbeddingBackendVector encodes faces as local descriptor vectors.
	EmbeddingBackendVector
	// EmbeddingBackendDeepVerify scores raster pairs against the model server.
	EmbeddingBackendDeepVerify
)

func (b EmbeddingBackend) String() string {
	switch b {
	case EmbeddingBackendVector:
		return "vector"
	case EmbeddingBackendDeepVerify:
		return "deep_verify"
	default:
		return "none"
	}
}

type Size struct {
	Width  int
	Height int
}

func (s *Size) Max() int {
	if s.Height > s.Width {
		return s.Height
	}
	return s.Width
}

func (s *Size) Min() int {
	if s.Height < s.Width {
		return s.Height
	}
	return s.Width
}

// EncodingKind tags the variant held by a FaceEncoding.
type EncodingKind int

const (
	EncodingVector EncodingKind = iota
	EncodingPixelBlock
)

// FaceEncoding is the comparable representation of a located face. Exactly
// one of Vector or Pixels is populated, selected by Kind.
type FaceEncoding struct {
	Kind   EncodingKind
	Vector []float32
	Pixels *gocv.Mat
}

// Close releases the pixel buffer of a raster encoding. Safe on any variant.
func (e *FaceEncoding) Close() error {
	if e == nil || e.Pixels == nil {
		return nil
	}
	err := e.Pixels.Close()
	e.Pixels = nil
	return err
}

// MatchResult defines the structure of the identity verification outcome.
type MatchResult struct {
	Success bool       `json:"success"` // Success determines if the identity was verified.
	Score   float32    `json:"score"`   // Score is the similarity score in [0, 1].
	Status  AuthStatus `json:"status"`  // Status is the terminal classification of the attempt.
	Message string     `json:"message"` // Message is the operator readable summary.
}

// LivenessResult defines the structure of the standalone liveness check.
type LivenessResult struct {
	IsLive bool   `json:"is_live"` // IsLive determines if the capture passed every check.
	Reason string `json:"reason"`  // Reason names the first failing check, or confirms the pass.
}

// LivenessHints carries client-side challenge observations submitted with a
// capture. Hints can only confirm an otherwise passing capture, never rescue
// a failing one.
type LivenessHints struct {
	BlinkDetected    bool    `json:"blink_detected"`
	HeadMovement     bool    `json:"head_movement"`
	ExpressionChange bool    `json:"expression_change"`
	Confidence       float64 `json:"confidence"`
	FaceQuality      bool    `json:"face_quality"`
	MultipleFaces    bool    `json:"multiple_faces"`
}

// VerifyRequest is the input to the identity verification operation.
// DocumentNumber is only consulted when no reference exists locally and the
// pipeline has to fall back to an identity provider lookup.
type VerifyRequest struct {
	IdentityKey    string         `json:"identity_key" validate:"required"`
	DocumentNumber string         `json:"document_number,omitempty"`
	CapturedImage  string         `json:"captured_image" validate:"required"`
	ReferenceImage string         `json:"reference_image,omitempty"`
	OriginIP       string         `json:"origin_ip,omitempty" validate:"omitempty,ip"`
	OriginAgent    string         `json:"origin_agent,omitempty"`
	Hints          *LivenessHints `json:"hints,omitempty"`
}

// LivenessRequest is the input to the standalone liveness operation.
type LivenessRequest struct {
	IdentityKey   string         `json:"identity_key" validate:"required"`
	CapturedImage string         `json:"captured_image" validate:"required"`
	Hints         *LivenessHints `json:"hints,omitempty"`
}

// EnrollRequest is the input to the enrollment operation. When CapturedImage
// is supplied the freshly stored reference is verified against it in the same
// call.
type EnrollRequest struct {
	IdentityKey    string         `json:"identity_key" validate:"required"`
	DocumentNumber string         `json:"document_number" validate:"required"`
	CapturedImage  string         `json:"captured_image,omitempty"`
	OriginIP       string         `json:"origin_ip,omitempty" validate:"omitempty,ip"`
	OriginAgent    string         `json:"origin_agent,omitempty"`
	Hints          *LivenessHints `json:"hints,omitempty"`
}

// EnrollResult reports the outcome of an enrollment.
type EnrollResult struct {
	IdentityKey  string       `json:"identity_key"`
	FullName     string       `json:"full_name"`
	PhotoStored  bool         `json:"photo_stored"`
	Verification *MatchResult `json:"verification,omitempty"` // Verification is nil when no capture was submitted.
}

// ReferencePhoto is a stored enrollment or provider photo for an identity.
type ReferencePhoto struct {
	IdentityKey string    `json:"identity_key"`
	Data        []byte    `json:"data"`         // Data holds the decoded image bytes.
	ContentType string    `json:"content_type"` // ContentType is the MIME type of Data.
	Source      string    `json:"source"`       // Source records where the photo came from.
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuthAttemptRecord is one append-only audit row. Records are never updated
// after being written.
type AuthAttemptRecord struct {
	ID           string     `json:"id" bson:"_id"`
	IdentityKey  string     `json:"identity_key" bson:"identity_key"`
	Status       AuthStatus `json:"status" bson:"status"`
	Score        *float32   `json:"score,omitempty" bson:"score,omitempty"` // Score is nil when no comparison ran.
	OriginIP     string     `json:"origin_ip" bson:"origin_ip"`
	OriginAgent  string     `json:"origin_agent" bson:"origin_agent"`
	ClientName   string     `json:"client_name" bson:"client_name"`
	ClientOS     string     `json:"client_os" bson:"client_os"`
	ClientDevice string     `json:"client_device" bson:"client_device"`
	ErrorMessage string     `json:"error_message" bson:"error_message"`
	AttemptedAt  time.Time  `json:"attempted_at" bson:"attempted_at"`
}

// LockoutState reports the failure streak and any active lock for an identity.
type LockoutState struct {
	IdentityKey string    `json:"identity_key"`
	FailedCount int       `json:"failed_count"`
	Locked      bool      `json:"locked"`
	LockedUntil time.Time `json:"locked_until,omitempty"`
}
