package config

import "errors"

// Sentinel errors for the pipeline failure taxonomy. Callers classify
// failures with errors.Is; the pipeline recovers each of them into a
// terminal MatchResult instead of propagating.
var (
	ErrDecode              = errors.New("cannot decode image payload")
	ErrNoFaceDetected      = errors.New("no face detected in image")
	ErrMultipleFaces       = errors.New("multiple faces detected in image")
	ErrNoComparisonBackend = errors.New("no face comparison backend available")
	ErrLivenessRejected    = errors.New("liveness verification failed")
	ErrInferenceTimeout    = errors.New("face verification timed out")
	ErrLockout             = errors.New("identity is temporarily locked out")
	ErrReferenceNotFound   = errors.New("no reference photo found for identity")
	ErrIdentityNotFound    = errors.New("identity not found")
)
