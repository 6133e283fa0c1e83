package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PipelineParams aggregates the tunable parameters of every pipeline stage.
type PipelineParams struct {
	Locator    *FaceLocatorParams `json:"locator" yaml:"locator"`
	Encoder    *FaceEncoderParams `json:"encoder" yaml:"encoder"`
	FaceID     *FaceIDParams      `json:"face_id" yaml:"face_id"`
	Similarity *SimilarityParams  `json:"similarity" yaml:"similarity"`
	Liveness   *LivenessParams    `json:"liveness" yaml:"liveness"`
	Policy     *PolicyParams      `json:"policy" yaml:"policy"`
	Provider   *ProviderParams    `json:"provider" yaml:"provider"`
}

// DefaultPipelineParams returns a parameter set with every stage at its
// default values. The returned structs are fresh copies so callers can
// mutate them without touching the package defaults.
func DefaultPipelineParams() *PipelineParams {
	locator := *DefaultFaceLocatorParams
	encoder := *DefaultFaceEncoderParams
	faceID := *DefaultFaceIDParams
	similarity := *DefaultSimilarityParams
	liveness := *DefaultLivenessParams
	policy := *DefaultPolicyParams
	provider := *DefaultProviderParams

	return &PipelineParams{
		Locator:    &locator,
		Encoder:    &encoder,
		FaceID:     &faceID,
		Similarity: &similarity,
		Liveness:   &liveness,
		Policy:     &policy,
		Provider:   &provider,
	}
}

// LoadPipelineParams reads a YAML file and overlays it on the defaults.
// An empty path returns the defaults unchanged.
func LoadPipelineParams(path string) (*PipelineParams, error) {
	params := DefaultPipelineParams()
	if path == "" {
		return params, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, params); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return params, nil
}

// Validate checks cross-field consistency of the loaded parameters.
func (p *PipelineParams) Validate() error {
	if p.Policy.PartialThreshold < 0 || p.Policy.PartialThreshold > 1 {
		return fmt.Errorf("partial_threshold must be between 0 and 1, got %f", p.Policy.PartialThreshold)
	}
	if p.Policy.SuccessThreshold < 0 || p.Policy.SuccessThreshold > 1 {
		return fmt.Errorf("success_threshold must be between 0 and 1, got %f", p.Policy.SuccessThreshold)
	}
	if p.Policy.PartialThreshold > p.Policy.SuccessThreshold {
		return fmt.Errorf("partial_threshold %f exceeds success_threshold %f", p.Policy.PartialThreshold, p.Policy.SuccessThreshold)
	}
	if p.Policy.MaxFailedAttempts <= 0 {
		return fmt.Errorf("max_failed_attempts must be positive, got %d", p.Policy.MaxFailedAttempts)
	}
	if p.Locator.ScaleFactor <= 1.0 {
		return fmt.Errorf("scale_factor must be greater than 1, got %f", p.Locator.ScaleFactor)
	}
	if p.Locator.CanonicalSize <= 0 {
		return fmt.Errorf("canonical_size must be positive, got %d", p.Locator.CanonicalSize)
	}
	if p.Liveness.MinWidth <= 0 || p.Liveness.MinHeight <= 0 {
		return fmt.Errorf("invalid minimum capture size: %dx%d", p.Liveness.MinWidth, p.Liveness.MinHeight)
	}
	if p.Liveness.MinAspectRatio <= 0 || p.Liveness.MaxAspectRatio < p.Liveness.MinAspectRatio {
		return fmt.Errorf("invalid aspect ratio bounds: [%f, %f]", p.Liveness.MinAspectRatio, p.Liveness.MaxAspectRatio)
	}
	if p.Liveness.ReplayWindow <= 0 {
		return fmt.Errorf("replay_window must be positive, got %d", p.Liveness.ReplayWindow)
	}

	weightSum := p.Similarity.WeightSSIM + p.Similarity.WeightORB + p.Similarity.WeightHistogram
	if weightSum <= 0 {
		return fmt.Errorf("classical similarity weights must sum to a positive value, got %f", weightSum)
	}

	return nil
}

// LoadEnv loads variables from a .env file when one is present. A missing
// file is not an error so deployments can rely on the real environment.
func LoadEnv() {
	_ = godotenv.Load()
}

// Env returns the value of an environment variable, or fallback when unset.
func Env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
