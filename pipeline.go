package go_faceauth_pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mileusna/useragent"
	"github.com/oklog/ulid/v2"
	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/okieraised/go-faceauth-pipeline/logger"
	"github.com/okieraised/go-faceauth-pipeline/modules"
	"github.com/okieraised/go-faceauth-pipeline/provider"
	"github.com/okieraised/go-faceauth-pipeline/store"
	"github.com/okieraised/go-faceauth-pipeline/utils"
	gotritonclient "github.com/okieraised/go-triton-client"
	"gocv.io/x/gocv"
)

const defaultHistoryLimit = 10

// FaceAuthPipeline defines the structure of the face authentication pipeline.
type FaceAuthPipeline struct {
	Codec    *modules.ImageCodec
	Locator  *modules.FaceLocator
	FaceID   *modules.FaceIDClient
	Encoder  *modules.FaceEncoder
	Scorer   *modules.SimilarityScorer
	Liveness *modules.LivenessGuard
	Params   *config.PipelineParams

	backend   config.EmbeddingBackend
	provider  provider.IdentityProvider
	reference store.ReferenceStore
	lockout   store.LockoutStore
	replay    store.ReplayStore
	audit     store.AuditStore
	validate  *validator.Validate
}

// PipelineOption overrides one pipeline collaborator at construction time.
type PipelineOption func(*FaceAuthPipeline)

// WithIdentityProvider sets the provider consulted when an identity has no
// stored reference photo.
func WithIdentityProvider(p provider.IdentityProvider) PipelineOption {
	return func(c *FaceAuthPipeline) { c.provider = p }
}

// WithReferenceStore sets the store holding reference photos.
func WithReferenceStore(s store.ReferenceStore) PipelineOption {
	return func(c *FaceAuthPipeline) { c.reference = s }
}

// WithLockoutStore sets the store tracking failure streaks and locks.
func WithLockoutStore(s store.LockoutStore) PipelineOption {
	return func(c *FaceAuthPipeline) { c.lockout = s }
}

// WithReplayStore sets the store backing the capture replay ledger.
func WithReplayStore(s store.ReplayStore) PipelineOption {
	return func(c *FaceAuthPipeline) { c.replay = s }
}

// WithAuditStore sets the store persisting attempt records.
func WithAuditStore(s store.AuditStore) PipelineOption {
	return func(c *FaceAuthPipeline) { c.audit = s }
}

// NewFaceAuthPipeline initializes a new pipeline. The comparison backend is
// resolved once here: the model server when a triton client is supplied and
// reachable, local descriptor vectors when the dlib models load, classical
// frame metrics otherwise. Collaborators not supplied through options default
// to a process-local in-memory store.
func NewFaceAuthPipeline(tritonClient *gotritonclient.TritonGRPCClient, params *config.PipelineParams, opts ...PipelineOption) (*FaceAuthPipeline, error) {

	if params == nil {
		params = config.DefaultPipelineParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	pipeline := &FaceAuthPipeline{
		Codec:    modules.NewImageCodec(),
		Params:   params,
		validate: validator.New(),
	}

	locator, err := modules.NewFaceLocator(params.Locator)
	if err != nil {
		return pipeline, err
	}
	pipeline.Locator = locator

	for _, opt := range opts {
		opt(pipeline)
	}

	fallback := store.NewMemoryStore(params.Liveness)
	if pipeline.lockout == nil {
		pipeline.lockout = fallback
	}
	if pipeline.replay == nil {
		pipeline.replay = fallback
	}
	if pipeline.reference == nil {
		pipeline.reference = fallback
	}
	if pipeline.audit == nil {
		pipeline.audit = fallback
		logger.Warning("no audit store configured, attempt records are kept in memory")
	}

	pipeline.backend = config.EmbeddingBackendNone
	if tritonClient != nil {
		faceIDClient, err := modules.NewFaceIDClient(tritonClient, params.FaceID)
		if err != nil {
			logger.Warning("model server is unavailable, deep verification disabled",
				logger.LoggerOptions{Key: "error", Data: err},
			)
		} else {
			pipeline.FaceID = faceIDClient
			pipeline.backend = config.EmbeddingBackendDeepVerify
		}
	}

	if pipeline.backend == config.EmbeddingBackendDeepVerify {
		// Deep verification scores raster pairs, so encodings stay pixel blocks.
		pipeline.Encoder = modules.NewFaceEncoder(params.Encoder, config.EmbeddingBackendNone)
	} else {
		encoder := modules.NewFaceEncoder(params.Encoder, config.EmbeddingBackendVector)
		pipeline.Encoder = encoder
		pipeline.backend = encoder.Backend
	}

	pipeline.Scorer = modules.NewSimilarityScorer(params.Similarity, pipeline.backend, pipeline.FaceID)
	pipeline.Liveness = modules.NewLivenessGuard(params.Liveness, pipeline.replay)

	logger.Info("face authentication pipeline initialized",
		logger.LoggerOptions{Key: "backend", Data: pipeline.backend.String()},
	)

	return pipeline, nil
}

// Backend reports the comparison backend resolved at construction.
func (c *FaceAuthPipeline) Backend() config.EmbeddingBackend {
	return c.backend
}

// Close releases the cascade and encoder resources held by the pipeline.
func (c *FaceAuthPipeline) Close() error {
	c.Encoder.Close()
	return c.Locator.Close()
}

/*
VerifyIdentity runs the full verification flow for one submitted capture:
lockout gate, decode, liveness screen, reference resolution, face location,
encoding and similarity scoring. Every decision is appended to the audit
trail and drives the lockout counter.

Inputs:

  - ctx (context.Context): request context for store and provider calls.
  - req (*config.VerifyRequest): identity key, image payloads and client
    metadata.

Outputs:

  - result (*config.MatchResult): terminal decision with similarity score.
  - err (error): invalid requests, store faults and provider transport faults
    only. Recognition failures never surface here, they terminate in the
    result status.
*/
func (c *FaceAuthPipeline) VerifyIdentity(ctx context.Context, req *config.VerifyRequest) (*config.MatchResult, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid verification request: %w", err)
	}

	correlationID := uuid.NewString()
	record := c.newAttemptRecord(req.IdentityKey, req.OriginIP, req.OriginAgent)

	logger.Info("verification attempt received",
		logger.LoggerOptions{Key: "correlation_id", Data: correlationID},
		logger.LoggerOptions{Key: "identity_key", Data: req.IdentityKey},
		logger.LoggerOptions{Key: "origin_ip", Data: record.OriginIP},
	)

	until, locked, err := c.lockout.LockedUntil(ctx, req.IdentityKey)
	if err != nil {
		return nil, fmt.Errorf("lockout check error: %w", err)
	}
	if locked {
		// Gate rejections are audited but never feed the failure counter.
		result := rejection(config.StatusFailed, lockedMessage(until))
		record.Status = result.Status
		record.ErrorMessage = result.Message
		c.writeAudit(ctx, record)
		return result, nil
	}

	result, err := c.runVerification(ctx, req, record)
	if err != nil {
		return nil, err
	}

	record.Status = result.Status
	if result.Status != config.StatusSuccess {
		record.ErrorMessage = result.Message
	}

	c.recordOutcome(ctx, req.IdentityKey, result.Status)
	c.writeAudit(ctx, record)

	logger.Info("verification attempt decided",
		logger.LoggerOptions{Key: "correlation_id", Data: correlationID},
		logger.LoggerOptions{Key: "identity_key", Data: req.IdentityKey},
		logger.LoggerOptions{Key: "status", Data: result.Status},
		logger.LoggerOptions{Key: "score", Data: result.Score},
	)

	return result, nil
}

// runVerification executes the recognition stages and produces the terminal
// decision. The attempt record score is filled as soon as a comparison ran.
func (c *FaceAuthPipeline) runVerification(ctx context.Context, req *config.VerifyRequest, record *config.AuthAttemptRecord) (*config.MatchResult, error) {
	capImg, rawCap, err := c.Codec.Decode(req.CapturedImage)
	if err != nil {
		return rejection(config.StatusFailed, "invalid image format"), nil
	}
	defer capImg.Close()

	liveResult, err := c.Liveness.Verify(ctx, req.IdentityKey, *capImg, rawCap, req.Hints)
	if err != nil {
		return nil, fmt.Errorf("replay ledger error: %w", err)
	}
	if !liveResult.IsLive {
		return rejection(config.StatusFailed, fmt.Sprintf("%s: %s", config.ErrLivenessRejected, liveResult.Reason)), nil
	}

	refImg, err := c.resolveReference(ctx, req)
	if err != nil {
		if errors.Is(err, config.ErrReferenceNotFound) {
			return rejection(config.StatusFailed, "no reference photo on file"), nil
		}
		if errors.Is(err, config.ErrDecode) {
			return rejection(config.StatusFailed, "invalid reference image format"), nil
		}
		return nil, err
	}
	defer refImg.Close()

	refCrop, _, err := c.Locator.Locate(*refImg)
	if err != nil {
		return locateRejection(err, "reference"), nil
	}
	defer refCrop.Close()

	capCrop, _, err := c.Locator.Locate(*capImg)
	if err != nil {
		return locateRejection(err, "captured"), nil
	}
	defer capCrop.Close()

	refEncoding, capEncoding := c.Encoder.EncodePair(*refCrop, *capCrop)
	defer refEncoding.Close()
	defer capEncoding.Close()

	score, err := c.Scorer.CompareFaces(refEncoding, capEncoding)
	if err != nil {
		return compareRejection(err), nil
	}
	record.Score = utils.RefPointer(score)

	status := c.statusForScore(score)
	result := &config.MatchResult{
		Success: status == config.StatusSuccess,
		Score:   score,
		Status:  status,
	}
	switch status {
	case config.StatusSuccess:
		result.Message = fmt.Sprintf("face verified with %.1f%% similarity", score*100)
	case config.StatusLowQuality:
		result.Message = fmt.Sprintf("similarity %.1f%% is below the verification threshold, retry with better lighting and framing", score*100)
	default:
		result.Message = fmt.Sprintf("face does not match the reference (%.1f%% similarity)", score*100)
	}

	return result, nil
}

// resolveReference produces the decoded reference image for the request. A
// submitted reference wins, then the reference store, then the identity
// provider.
func (c *FaceAuthPipeline) resolveReference(ctx context.Context, req *config.VerifyRequest) (*gocv.Mat, error) {
	if req.ReferenceImage != "" {
		img, _, err := c.Codec.Decode(req.ReferenceImage)
		return img, err
	}

	photo, err := c.reference.Get(ctx, req.IdentityKey)
	if err == nil {
		return c.Codec.DecodeBytes(photo.Data)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("reference store error: %w", err)
	}

	return c.fetchProviderReference(ctx, req.IdentityKey, req.DocumentNumber)
}

// fetchProviderReference pulls the identity record from the provider and
// keeps its photo as the stored reference for subsequent attempts.
func (c *FaceAuthPipeline) fetchProviderReference(ctx context.Context, identityKey, documentNumber string) (*gocv.Mat, error) {
	if c.provider == nil || documentNumber == "" {
		return nil, config.ErrReferenceNotFound
	}

	identityRecord, err := c.provider.Lookup(ctx, identityKey, documentNumber)
	if err != nil {
		if errors.Is(err, config.ErrIdentityNotFound) {
			return nil, config.ErrReferenceNotFound
		}
		return nil, fmt.Errorf("identity provider error: %w", err)
	}
	if identityRecord.Photo == "" {
		return nil, config.ErrReferenceNotFound
	}

	img, raw, err := c.Codec.Decode(identityRecord.PhotoBase64())
	if err != nil {
		return nil, err
	}

	if err := c.reference.Put(ctx, newReferencePhoto(identityKey, raw, "provider")); err != nil {
		logger.Warning("cannot store provider reference photo",
			logger.LoggerOptions{Key: "identity_key", Data: identityKey},
			logger.LoggerOptions{Key: "error", Data: err},
		)
	}

	return img, nil
}

// statusForScore classifies a similarity score against the decision
// thresholds.
func (c *FaceAuthPipeline) statusForScore(score float32) config.AuthStatus {
	switch {
	case score >= c.Params.Policy.SuccessThreshold:
		return config.StatusSuccess
	case score >= c.Params.Policy.PartialThreshold:
		return config.StatusLowQuality
	default:
		return config.StatusFailed
	}
}

// recordOutcome drives the lockout counter from the terminal status. Only
// hard failures feed the streak and a pass clears it; soft statuses leave the
// counter untouched. Counter faults are logged, the decision stands.
func (c *FaceAuthPipeline) recordOutcome(ctx context.Context, identityKey string, status config.AuthStatus) {
	switch status {
	case config.StatusSuccess:
		if err := c.lockout.ResetFailures(ctx, identityKey); err != nil {
			logger.Error("cannot reset failure count",
				logger.LoggerOptions{Key: "identity_key", Data: identityKey},
				logger.LoggerOptions{Key: "error", Data: err},
			)
		}
	case config.StatusFailed, config.StatusNoFace:
		count, err := c.lockout.RecordFailure(ctx, identityKey)
		if err != nil {
			logger.Error("cannot record verification failure",
				logger.LoggerOptions{Key: "identity_key", Data: identityKey},
				logger.LoggerOptions{Key: "error", Data: err},
			)
			return
		}
		if count >= c.Params.Policy.MaxFailedAttempts {
			until := time.Now().Add(c.Params.Policy.LockoutDuration)
			if err := c.lockout.Lock(ctx, identityKey, until); err != nil {
				logger.Error("cannot lock identity",
					logger.LoggerOptions{Key: "identity_key", Data: identityKey},
					logger.LoggerOptions{Key: "error", Data: err},
				)
				return
			}
			logger.Warning("identity locked after repeated failures",
				logger.LoggerOptions{Key: "identity_key", Data: identityKey},
				logger.LoggerOptions{Key: "failed_count", Data: count},
				logger.LoggerOptions{Key: "locked_until", Data: until},
			)
		}
	}
}

// writeAudit appends one attempt record. Audit faults are logged and never
// block or alter the decision.
func (c *FaceAuthPipeline) writeAudit(ctx context.Context, record *config.AuthAttemptRecord) {
	if err := c.audit.Append(ctx, record); err != nil {
		logger.Error("cannot append audit record",
			logger.LoggerOptions{Key: "identity_key", Data: record.IdentityKey},
			logger.LoggerOptions{Key: "error", Data: err},
		)
	}
}

func (c *FaceAuthPipeline) newAttemptRecord(identityKey, originIP, originAgent string) *config.AuthAttemptRecord {
	if originIP == "" {
		originIP = "0.0.0.0"
	}
	ua := useragent.Parse(originAgent)

	return &config.AuthAttemptRecord{
		ID:           ulid.Make().String(),
		IdentityKey:  identityKey,
		Status:       config.StatusFailed,
		OriginIP:     originIP,
		OriginAgent:  originAgent,
		ClientName:   ua.Name,
		ClientOS:     ua.OS,
		ClientDevice: ua.Device,
		AttemptedAt:  time.Now().UTC(),
	}
}

// rejection builds a terminal MatchResult with zero score.
func rejection(status config.AuthStatus, message string) *config.MatchResult {
	return &config.MatchResult{
		Success: false,
		Score:   0,
		Status:  status,
		Message: message,
	}
}

// locateRejection maps a locator failure on the named image to its terminal
// status.
func locateRejection(err error, imageName string) *config.MatchResult {
	switch {
	case errors.Is(err, config.ErrMultipleFaces):
		return rejection(config.StatusMultipleFaces, fmt.Sprintf("multiple faces detected in %s image", imageName))
	case errors.Is(err, config.ErrNoFaceDetected):
		return rejection(config.StatusNoFace, fmt.Sprintf("no face detected in %s image", imageName))
	default:
		return rejection(config.StatusFailed, err.Error())
	}
}

// compareRejection maps a scorer failure to its terminal status. A missing
// comparison backend additionally alerts operators through the log stream.
func compareRejection(err error) *config.MatchResult {
	switch {
	case errors.Is(err, config.ErrInferenceTimeout):
		return rejection(config.StatusTimeout, "face verification timed out, retry")
	case errors.Is(err, config.ErrNoComparisonBackend):
		logger.Error("no comparison backend can score this pair",
			logger.LoggerOptions{Key: "error", Data: err},
		)
		return rejection(config.StatusFailed, "faces cannot be compared")
	default:
		logger.Error("face comparison failed",
			logger.LoggerOptions{Key: "error", Data: err},
		)
		return rejection(config.StatusFailed, "face comparison failed")
	}
}

func lockedMessage(until time.Time) string {
	return fmt.Sprintf("%s, try again after %s", config.ErrLockout, until.UTC().Format(time.RFC3339))
}

func newReferencePhoto(identityKey string, raw []byte, source string) *config.ReferencePhoto {
	return &config.ReferencePhoto{
		IdentityKey: identityKey,
		Data:        raw,
		ContentType: http.DetectContentType(raw),
		Source:      source,
		UpdatedAt:   time.Now().UTC(),
	}
}

/*
CheckLiveness runs the liveness guard in isolation, without face comparison.
Locked identities are rejected before the capture is decoded. No audit record
is written, only full verification attempts are audited.

Inputs:

  - ctx (context.Context): request context for store calls.
  - req (*config.LivenessRequest): identity key, capture payload and optional
    client hints.

Outputs:

  - result (*config.LivenessResult): live verdict with the rejection reason
    when not live.
  - err (error): invalid requests and store faults only.
*/
func (c *FaceAuthPipeline) CheckLiveness(ctx context.Context, req *config.LivenessRequest) (*config.LivenessResult, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid liveness request: %w", err)
	}

	until, locked, err := c.lockout.LockedUntil(ctx, req.IdentityKey)
	if err != nil {
		return nil, fmt.Errorf("lockout check error: %w", err)
	}
	if locked {
		return &config.LivenessResult{IsLive: false, Reason: lockedMessage(until)}, nil
	}

	img, raw, err := c.Codec.Decode(req.CapturedImage)
	if err != nil {
		return &config.LivenessResult{IsLive: false, Reason: "invalid image format"}, nil
	}
	defer img.Close()

	return c.Liveness.Verify(ctx, req.IdentityKey, *img, raw, req.Hints)
}

/*
Enroll provisions the reference photo for an identity from the identity
provider. The provider photo must decode and contain a locatable face before
it is stored. When the request carries a first capture, it is verified
against the fresh reference in the same call.

Inputs:

  - ctx (context.Context): request context for provider and store calls.
  - req (*config.EnrollRequest): identity key, document number and an
    optional first capture.

Outputs:

  - result (*config.EnrollResult): enrollment outcome, with the verification
    of the first capture when one was submitted.
  - err (error): validation faults, provider faults, unusable provider photos
    and store faults. config.ErrIdentityNotFound when the provider holds no
    record.
*/
func (c *FaceAuthPipeline) Enroll(ctx context.Context, req *config.EnrollRequest) (*config.EnrollResult, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid enrollment request: %w", err)
	}
	if c.provider == nil {
		return nil, errors.New("no identity provider configured")
	}

	identityRecord, err := c.provider.Lookup(ctx, req.IdentityKey, req.DocumentNumber)
	if err != nil {
		return nil, err
	}

	if !identityRecord.IsAlive() {
		logger.Warning("enrolling an identity with a non-alive civil status",
			logger.LoggerOptions{Key: "identity_key", Data: req.IdentityKey},
		)
	}
	if !identityRecord.DocumentValid(time.Now()) {
		logger.Warning("enrolling an identity with an expired document",
			logger.LoggerOptions{Key: "identity_key", Data: req.IdentityKey},
			logger.LoggerOptions{Key: "document_end", Data: identityRecord.DocumentEnd},
		)
	}

	if identityRecord.Photo == "" {
		return nil, fmt.Errorf("%w: provider record has no photo", config.ErrReferenceNotFound)
	}

	img, raw, err := c.Codec.Decode(identityRecord.PhotoBase64())
	if err != nil {
		return nil, fmt.Errorf("provider photo is not decodable: %w", err)
	}
	defer img.Close()

	crop, _, err := c.Locator.Locate(*img)
	if err != nil {
		return nil, fmt.Errorf("provider photo is unusable: %w", err)
	}
	_ = crop.Close()

	if err := c.reference.Put(ctx, newReferencePhoto(req.IdentityKey, raw, "enrollment")); err != nil {
		return nil, fmt.Errorf("cannot store reference photo: %w", err)
	}

	logger.Info("identity enrolled",
		logger.LoggerOptions{Key: "identity_key", Data: req.IdentityKey},
	)

	result := &config.EnrollResult{
		IdentityKey: req.IdentityKey,
		FullName:    identityRecord.FullName(),
		PhotoStored: true,
	}

	if req.CapturedImage != "" {
		verification, err := c.VerifyIdentity(ctx, &config.VerifyRequest{
			IdentityKey:   req.IdentityKey,
			CapturedImage: req.CapturedImage,
			OriginIP:      req.OriginIP,
			OriginAgent:   req.OriginAgent,
			Hints:         req.Hints,
		})
		if err != nil {
			return nil, err
		}
		result.Verification = verification
	}

	return result, nil
}

/*
RefreshReference replaces the stored reference photo with the latest verified
capture, keeping the reference current as faces age. Only captures that
scored a SUCCESS decision are accepted.

Inputs:

  - ctx (context.Context): request context for store calls.
  - identityKey (string): identity whose reference is refreshed.
  - capturedImage (string): base64 capture that produced the decision.
  - result (*config.MatchResult): decision the capture obtained.

Outputs:

  - err (error): rejected refreshes, undecodable captures and store faults.
*/
func (c *FaceAuthPipeline) RefreshReference(ctx context.Context, identityKey, capturedImage string, result *config.MatchResult) error {
	if result == nil || result.Status != config.StatusSuccess || result.Score < c.Params.Policy.SuccessThreshold {
		return errors.New("only captures from a successful verification can refresh the reference")
	}

	img, raw, err := c.Codec.Decode(capturedImage)
	if err != nil {
		return err
	}
	defer img.Close()

	if err := c.reference.Put(ctx, newReferencePhoto(identityKey, raw, "refresh")); err != nil {
		return fmt.Errorf("cannot store reference photo: %w", err)
	}

	logger.Info("reference photo refreshed",
		logger.LoggerOptions{Key: "identity_key", Data: identityKey},
	)

	return nil
}

// ResetLockout force-clears the failure streak and any active lock for an
// identity. Administrative operation.
func (c *FaceAuthPipeline) ResetLockout(ctx context.Context, identityKey string) error {
	if err := c.lockout.Unlock(ctx, identityKey); err != nil {
		return fmt.Errorf("cannot reset lockout: %w", err)
	}

	logger.Info("lockout reset",
		logger.LoggerOptions{Key: "identity_key", Data: identityKey},
	)

	return nil
}

/*
LockoutStatus reports the failure streak and any active lock for an identity.

Inputs:

  - ctx (context.Context): request context for store calls.
  - identityKey (string): identity to inspect.

Outputs:

  - state (*config.LockoutState): current counter and lock expiry.
*/
func (c *FaceAuthPipeline) LockoutStatus(ctx context.Context, identityKey string) (*config.LockoutState, error) {
	count, err := c.lockout.FailureCount(ctx, identityKey)
	if err != nil {
		return nil, fmt.Errorf("lockout status error: %w", err)
	}
	until, locked, err := c.lockout.LockedUntil(ctx, identityKey)
	if err != nil {
		return nil, fmt.Errorf("lockout status error: %w", err)
	}

	state := &config.LockoutState{
		IdentityKey: identityKey,
		FailedCount: count,
		Locked:      locked,
	}
	if locked {
		state.LockedUntil = until
	}

	return state, nil
}

/*
AttemptHistory returns the most recent verification attempts for an identity,
newest first.

Inputs:

  - ctx (context.Context): request context for store calls.
  - identityKey (string): identity to report on.
  - limit (int): maximum records to return, 10 when not positive.

Outputs:

  - records ([]*config.AuthAttemptRecord): audit rows, newest first.
*/
func (c *FaceAuthPipeline) AttemptHistory(ctx context.Context, identityKey string, limit int) ([]*config.AuthAttemptRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	records, err := c.audit.History(ctx, identityKey, limit)
	if err != nil {
		return nil, fmt.Errorf("audit history error: %w", err)
	}

	return records, nil
}

/*
CheckSuspiciousActivity reports whether an identity accumulated enough hard
failures inside a trailing window to deserve operator attention.

Inputs:

  - ctx (context.Context): request context for store calls.
  - identityKey (string): identity to inspect.
  - window (time.Duration): trailing window, policy default when not positive.
  - maxFailures (int): failure ceiling, policy default when not positive.

Outputs:

  - suspicious (bool): true when the failure count reached the ceiling.
  - count (int): FAILED attempts inside the window.
*/
func (c *FaceAuthPipeline) CheckSuspiciousActivity(ctx context.Context, identityKey string, window time.Duration, maxFailures int) (bool, int, error) {
	if window <= 0 {
		window = c.Params.Policy.SuspicionWindow
	}
	if maxFailures <= 0 {
		maxFailures = c.Params.Policy.SuspicionMaxFailures
	}

	count, err := c.audit.CountFailuresSince(ctx, identityKey, time.Now().Add(-window))
	if err != nil {
		return false, 0, fmt.Errorf("audit query error: %w", err)
	}

	return count >= maxFailures, count, nil
}
