package config

import "time"

type FaceLocatorParams struct {
	CascadeFile    string  `json:"cascade_file" yaml:"cascade_file"`
	ScaleFactor    float64 `json:"scale_factor" yaml:"scale_factor"`
	MinNeighbors   int     `json:"min_neighbors" yaml:"min_neighbors"`
	MinSize        int     `json:"min_size" yaml:"min_size"`
	PaddingWidth   float64 `json:"padding_width" yaml:"padding_width"`
	PaddingHeight  float64 `json:"padding_height" yaml:"padding_height"`
	CanonicalSize  int     `json:"canonical_size" yaml:"canonical_size"`
	RejectMultiple bool    `json:"reject_multiple" yaml:"reject_multiple"`
}

func NewFaceLocatorParams(cascadeFile string, scaleFactor float64, minNeighbors, minSize int, paddingWidth, paddingHeight float64, canonicalSize int, rejectMultiple bool) *FaceLocatorParams {
	return &FaceLocatorParams{
		CascadeFile:    cascadeFile,
		ScaleFactor:    scaleFactor,
		MinNeighbors:   minNeighbors,
		MinSize:        minSize,
		PaddingWidth:   paddingWidth,
		PaddingHeight:  paddingHeight,
		CanonicalSize:  canonicalSize,
		RejectMultiple: rejectMultiple,
	}
}

var DefaultFaceLocatorParams = &FaceLocatorParams{
	CascadeFile:    "./models/haarcascade_frontalface_default.xml",
	ScaleFactor:    1.1,
	MinNeighbors:   5,
	MinSize:        30,
	PaddingWidth:   0.3,
	PaddingHeight:  0.4,
	CanonicalSize:  256,
	RejectMultiple: false,
}

type FaceEncoderParams struct {
	ModelDir    string `json:"model_dir" yaml:"model_dir"`
	JPEGQuality int    `json:"jpeg_quality" yaml:"jpeg_quality"`
}

func NewFaceEncoderParams(modelDir string, jpegQuality int) *FaceEncoderParams {
	return &FaceEncoderParams{
		ModelDir:    modelDir,
		JPEGQuality: jpegQuality,
	}
}

var DefaultFaceEncoderParams = &FaceEncoderParams{
	ModelDir:    "./models",
	JPEGQuality: 95,
}

type FaceIDParams struct {
	ModelName string        `json:"model_name" yaml:"model_name"`
	Mean      float64       `json:"mean" yaml:"mean"`
	Scale     float64       `json:"scale" yaml:"scale"`
	ImgSize   int           `json:"img_size" yaml:"img_size"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

func NewFaceIDParams(modelName string, mean, scale float64, imgSize int, timeout time.Duration) *FaceIDParams {
	return &FaceIDParams{
		ModelName: modelName,
		Mean:      mean,
		Scale:     scale,
		ImgSize:   imgSize,
		Timeout:   timeout,
	}
}

var DefaultFaceIDParams = &FaceIDParams{
	ModelName: "face_id",
	Mean:      127.5,
	Scale:     0.00784313725490196,
	ImgSize:   112,
	Timeout:   10 * time.Second,
}

type SimilarityParams struct {
	WeightSSIM           float64 `json:"weight_ssim" yaml:"weight_ssim"`
	WeightORB            float64 `json:"weight_orb" yaml:"weight_orb"`
	WeightHistogram      float64 `json:"weight_histogram" yaml:"weight_histogram"`
	BlendWeightEmbedding float64 `json:"blend_weight_embedding" yaml:"blend_weight_embedding"`
	BlendWeightSSIM      float64 `json:"blend_weight_ssim" yaml:"blend_weight_ssim"`
	BlendWeightHistogram float64 `json:"blend_weight_histogram" yaml:"blend_weight_histogram"`
	BlendThreshold       float32 `json:"blend_threshold" yaml:"blend_threshold"`
	ORBMatchDistance     float64 `json:"orb_match_distance" yaml:"orb_match_distance"`
}

func NewSimilarityParams(weightSSIM, weightORB, weightHistogram, blendWeightEmbedding, blendWeightSSIM, blendWeightHistogram float64, blendThreshold float32, orbMatchDistance float64) *SimilarityParams {
	return &SimilarityParams{
		WeightSSIM:           weightSSIM,
		WeightORB:            weightORB,
		WeightHistogram:      weightHistogram,
		BlendWeightEmbedding: blendWeightEmbedding,
		BlendWeightSSIM:      blendWeightSSIM,
		BlendWeightHistogram: blendWeightHistogram,
		BlendThreshold:       blendThreshold,
		ORBMatchDistance:     orbMatchDistance,
	}
}

var DefaultSimilarityParams = &SimilarityParams{
	WeightSSIM:           0.5,
	WeightORB:            0.2,
	WeightHistogram:      0.3,
	BlendWeightEmbedding: 0.6,
	BlendWeightSSIM:      0.25,
	BlendWeightHistogram: 0.15,
	BlendThreshold:       0.7,
	ORBMatchDistance:     50,
}

type LivenessParams struct {
	MinWidth             int           `json:"min_width" yaml:"min_width"`
	MinHeight            int           `json:"min_height" yaml:"min_height"`
	MaxWidth             int           `json:"max_width" yaml:"max_width"`
	MaxHeight            int           `json:"max_height" yaml:"max_height"`
	MinAspectRatio       float64       `json:"min_aspect_ratio" yaml:"min_aspect_ratio"`
	MaxAspectRatio       float64       `json:"max_aspect_ratio" yaml:"max_aspect_ratio"`
	MinEntropy           float64       `json:"min_entropy" yaml:"min_entropy"`
	BorderWidth          int           `json:"border_width" yaml:"border_width"`
	MinBorderStdDev      float64       `json:"min_border_std_dev" yaml:"min_border_std_dev"`
	MinLaplacianVariance float64       `json:"min_laplacian_variance" yaml:"min_laplacian_variance"`
	MinHintConfidence    float64       `json:"min_hint_confidence" yaml:"min_hint_confidence"`
	MinAttemptInterval   time.Duration `json:"min_attempt_interval" yaml:"min_attempt_interval"`
	ReplayWindow         int           `json:"replay_window" yaml:"replay_window"`
	ReplayTTL            time.Duration `json:"replay_ttl" yaml:"replay_ttl"`
}

var DefaultLivenessParams = &LivenessParams{
	MinWidth:             200,
	MinHeight:            200,
	MaxWidth:             4000,
	MaxHeight:            4000,
	MinAspectRatio:       0.5,
	MaxAspectRatio:       2.0,
	MinEntropy:           4.0,
	BorderWidth:          10,
	MinBorderStdDev:      5.0,
	MinLaplacianVariance: 0.5,
	MinHintConfidence:    0.5,
	MinAttemptInterval:   2 * time.Second,
	ReplayWindow:         10,
	ReplayTTL:            5 * time.Minute,
}

func NewLivenessParams(minWidth, minHeight, maxWidth, maxHeight int, minAspectRatio, maxAspectRatio, minEntropy float64, borderWidth int, minBorderStdDev, minLaplacianVariance, minHintConfidence float64, minAttemptInterval time.Duration, replayWindow int, replayTTL time.Duration) *LivenessParams {
	return &LivenessParams{
		MinWidth:             minWidth,
		MinHeight:            minHeight,
		MaxWidth:             maxWidth,
		MaxHeight:            maxHeight,
		MinAspectRatio:       minAspectRatio,
		MaxAspectRatio:       maxAspectRatio,
		MinEntropy:           minEntropy,
		BorderWidth:          borderWidth,
		MinBorderStdDev:      minBorderStdDev,
		MinLaplacianVariance: minLaplacianVariance,
		MinHintConfidence:    minHintConfidence,
		MinAttemptInterval:   minAttemptInterval,
		ReplayWindow:         replayWindow,
		ReplayTTL:            replayTTL,
	}
}

type PolicyParams struct {
	SuccessThreshold     float32       `json:"success_threshold" yaml:"success_threshold"`
	PartialThreshold     float32       `json:"partial_threshold" yaml:"partial_threshold"`
	MaxFailedAttempts    int           `json:"max_failed_attempts" yaml:"max_failed_attempts"`
	LockoutDuration      time.Duration `json:"lockout_duration" yaml:"lockout_duration"`
	SuspicionWindow      time.Duration `json:"suspicion_window" yaml:"suspicion_window"`
	SuspicionMaxFailures int           `json:"suspicion_max_failures" yaml:"suspicion_max_failures"`
}

var DefaultPolicyParams = &PolicyParams{
	SuccessThreshold:     0.80,
	PartialThreshold:     0.65,
	MaxFailedAttempts:    5,
	LockoutDuration:      15 * time.Minute,
	SuspicionWindow:      24 * time.Hour,
	SuspicionMaxFailures: 5,
}

func NewPolicyParams(successThreshold, partialThreshold float32, maxFailedAttempts int, lockoutDuration, suspicionWindow time.Duration, suspicionMaxFailures int) *PolicyParams {
	return &PolicyParams{
		SuccessThreshold:     successThreshold,
		PartialThreshold:     partialThreshold,
		MaxFailedAttempts:    maxFailedAttempts,
		LockoutDuration:      lockoutDuration,
		SuspicionWindow:      suspicionWindow,
		SuspicionMaxFailures: suspicionMaxFailures,
	}
}

type ProviderParams struct {
	BaseURL  string        `json:"base_url" yaml:"base_url"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

var DefaultProviderParams = &ProviderParams{
	BaseURL:  "",
	Timeout:  10 * time.Second,
	CacheTTL: time.Hour,
}

func NewProviderParams(baseURL string, timeout, cacheTTL time.Duration) *ProviderParams {
	return &ProviderParams{
		BaseURL:  baseURL,
		Timeout:  timeout,
		CacheTTL: cacheTTL,
	}
}
