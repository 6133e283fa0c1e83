package modules

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/okieraised/go-faceauth-pipeline/logger"
	"github.com/okieraised/go-faceauth-pipeline/utils"
	"gocv.io/x/gocv"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SimilarityScorer computes a similarity score in [0, 1] for a pair of face
// encodings. Scoring is layered: the deep verification backend when one is
// configured, descriptor vector distance when both encodings carry vectors,
// and a classical composite of SSIM, ORB feature matching and histogram
// correlation for pixel blocks.
type SimilarityScorer struct {
	ModelParams *config.SimilarityParams
	Backend     config.EmbeddingBackend
	FaceID      *FaceIDClient
}

func NewSimilarityScorer(cfg *config.SimilarityParams, backend config.EmbeddingBackend, faceID *FaceIDClient) *SimilarityScorer {
	return &SimilarityScorer{
		ModelParams: cfg,
		Backend:     backend,
		FaceID:      faceID,
	}
}

/*
CompareFaces scores how closely a captured face matches a reference face.

Inputs:

  - refEncoding (*config.FaceEncoding): encoding of the reference face.
  - capEncoding (*config.FaceEncoding): encoding of the captured face.

Outputs:

  - score (float32): similarity in [0, 1], higher means more similar.
  - err (error): config.ErrNoComparisonBackend when the encodings cannot be
    compared, config.ErrInferenceTimeout when the deep verification backend
    exceeded its deadline. Other backend faults degrade to the classical
    composite instead of erroring.
*/
func (s *SimilarityScorer) CompareFaces(refEncoding, capEncoding *config.FaceEncoding) (float32, error) {
	if refEncoding == nil || capEncoding == nil {
		return 0, config.ErrNoComparisonBackend
	}
	if refEncoding.Kind != capEncoding.Kind {
		return 0, config.ErrNoComparisonBackend
	}

	switch refEncoding.Kind {
	case config.EncodingVector:
		return s.vectorScore(refEncoding.Vector, capEncoding.Vector)
	case config.EncodingPixelBlock:
		if refEncoding.Pixels == nil || capEncoding.Pixels == nil {
			return 0, config.ErrNoComparisonBackend
		}
		if s.Backend == config.EmbeddingBackendDeepVerify && s.FaceID != nil {
			score, err := s.deepVerifyScore(*refEncoding.Pixels, *capEncoding.Pixels)
			if err == nil {
				return score, nil
			}
			if errors.Is(err, config.ErrInferenceTimeout) {
				return 0, err
			}
			logger.Warning("deep verification failed, falling back to classical comparison",
				logger.LoggerOptions{Key: "error", Data: err},
			)
		}
		return s.classicalScore(*refEncoding.Pixels, *capEncoding.Pixels), nil
	default:
		return 0, config.ErrNoComparisonBackend
	}
}

// deepVerifyScore scores a pair of pixel blocks with the embedding model.
// Cosine distance ranges over [0, 2], so similarity is 1-distance/2. Low
// confidence results are blended with structural and histogram similarity.
func (s *SimilarityScorer) deepVerifyScore(refImg, capImg gocv.Mat) (float32, error) {
	embeddingA, embeddingB, err := s.FaceID.InferPair(refImg, capImg)
	if err != nil {
		if isDeadlineExceeded(err) {
			return 0, fmt.Errorf("%w: %s", config.ErrInferenceTimeout, err)
		}
		return 0, err
	}

	rawSim, err := utils.CosineSimilarity(embeddingA.Float32s(), embeddingB.Float32s())
	if err != nil {
		return 0, err
	}
	distance := 1.0 - rawSim
	similarity := max(0.0, 1.0-distance/2.0)

	if similarity < float64(s.ModelParams.BlendThreshold) {
		refGray := toGrayscale(refImg)
		defer refGray.Close()
		capGray := toGrayscale(capImg)
		defer capGray.Close()

		ssimScore := s.structuralSimilarity(refGray, capGray)
		histScore := s.histogramSimilarity(refImg, capImg)

		blended := s.ModelParams.BlendWeightEmbedding*similarity +
			s.ModelParams.BlendWeightSSIM*ssimScore +
			s.ModelParams.BlendWeightHistogram*histScore

		return float32(utils.Clamp01(blended)), nil
	}

	return float32(utils.Clamp01(similarity)), nil
}

// vectorScore converts the Euclidean distance between two descriptor vectors
// into a similarity score. Distances above 1 mean different people.
func (s *SimilarityScorer) vectorScore(refVec, capVec []float32) (float32, error) {
	distance, err := utils.EuclideanDistance(refVec, capVec)
	if err != nil {
		return 0, err
	}

	if distance > 1.0 {
		return 0, nil
	}

	return float32(1.0 - distance), nil
}

func (s *SimilarityScorer) classicalScore(refImg, capImg gocv.Mat) float32 {
	refGray := toGrayscale(refImg)
	defer refGray.Close()
	capGray := toGrayscale(capImg)
	defer capGray.Close()

	ssimScore := s.structuralSimilarity(refGray, capGray)
	orbScore := s.featureMatchScore(refGray, capGray)
	histScore := s.histogramSimilarity(refImg, capImg)

	combined := s.ModelParams.WeightSSIM*ssimScore +
		s.ModelParams.WeightORB*orbScore +
		s.ModelParams.WeightHistogram*histScore

	return float32(utils.Clamp01(combined))
}

func (s *SimilarityScorer) structuralSimilarity(img1, img2 gocv.Mat) float64 {
	img1Float := gocv.NewMat()
	img2Float := gocv.NewMat()
	defer img1Float.Close()
	defer img2Float.Close()

	img1.ConvertTo(&img1Float, gocv.MatTypeCV32F)
	img2.ConvertTo(&img2Float, gocv.MatTypeCV32F)

	mean1 := matMean(img1Float)
	mean2 := matMean(img2Float)
	var1 := matVariance(img1Float, mean1)
	var2 := matVariance(img2Float, mean2)
	cov := matCovariance(img1Float, img2Float, mean1, mean2)

	c1 := 0.01 * 0.01 * 255 * 255
	c2 := 0.03 * 0.03 * 255 * 255

	numerator := (2*mean1*mean2 + c1) * (2*cov + c2)
	denominator := (mean1*mean1 + mean2*mean2 + c1) * (var1 + var2 + c2)
	if denominator == 0 {
		return 0
	}

	return utils.Clamp01(numerator / denominator)
}

func (s *SimilarityScorer) featureMatchScore(img1, img2 gocv.Mat) float64 {
	orb := gocv.NewORB()
	defer orb.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	kp1, des1 := orb.DetectAndCompute(img1, mask)
	defer des1.Close()
	kp2, des2 := orb.DetectAndCompute(img2, mask)
	defer des2.Close()

	if len(kp1) == 0 || len(kp2) == 0 || des1.Empty() || des2.Empty() {
		return 0.0
	}

	matcher := gocv.NewBFMatcherWithParams(gocv.NormHamming, true)
	defer matcher.Close()

	matches := matcher.Match(des1, des2)

	goodMatches := 0
	for _, match := range matches {
		if match.Distance < s.ModelParams.ORBMatchDistance {
			goodMatches++
		}
	}

	maxMatches := min(len(kp1), len(kp2))
	if maxMatches == 0 {
		return 0.0
	}

	return math.Min(1.0, float64(goodMatches)/float64(maxMatches)*2)
}

func (s *SimilarityScorer) histogramSimilarity(img1, img2 gocv.Mat) float64 {
	channels := min(img1.Channels(), img2.Channels())
	if channels == 0 {
		return 0
	}

	mask := gocv.NewMat()
	defer mask.Close()

	total := 0.0
	for ch := range channels {
		hist1 := gocv.NewMat()
		hist2 := gocv.NewMat()

		gocv.CalcHist([]gocv.Mat{img1}, []int{ch}, mask, &hist1, []int{256}, []float64{0, 256}, false)
		gocv.CalcHist([]gocv.Mat{img2}, []int{ch}, mask, &hist2, []int{256}, []float64{0, 256}, false)

		gocv.Normalize(hist1, &hist1, 0, 1, gocv.NormMinMax)
		gocv.Normalize(hist2, &hist2, 0, 1, gocv.NormMinMax)

		total += float64(gocv.CompareHist(hist1, hist2, gocv.HistCmpCorrel))

		hist1.Close()
		hist2.Close()
	}

	return utils.Clamp01(total / float64(channels))
}

func isDeadlineExceeded(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return status.Code(err) == codes.DeadlineExceeded
}

func toGrayscale(img gocv.Mat) gocv.Mat {
	if img.Channels() == 1 {
		return img.Clone()
	}
	gray := gocv.NewMat()
	gocv.CvtColor(img, &gray, gocv.ColorRGBToGray)
	return gray
}

func matMean(img gocv.Mat) float64 {
	count := img.Rows() * img.Cols()
	if count == 0 {
		return 0
	}

	total := 0.0
	for i := 0; i < img.Rows(); i++ {
		for j := 0; j < img.Cols(); j++ {
			total += float64(img.GetFloatAt(i, j))
		}
	}

	return total / float64(count)
}

func matVariance(img gocv.Mat, mean float64) float64 {
	count := img.Rows() * img.Cols()
	if count == 0 {
		return 0
	}

	total := 0.0
	for i := 0; i < img.Rows(); i++ {
		for j := 0; j < img.Cols(); j++ {
			diff := float64(img.GetFloatAt(i, j)) - mean
			total += diff * diff
		}
	}

	return total / float64(count)
}

func matCovariance(img1, img2 gocv.Mat, mean1, mean2 float64) float64 {
	rows := min(img1.Rows(), img2.Rows())
	cols := min(img1.Cols(), img2.Cols())
	count := rows * cols
	if count == 0 {
		return 0
	}

	total := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			diff1 := float64(img1.GetFloatAt(i, j)) - mean1
			diff2 := float64(img2.GetFloatAt(i, j)) - mean2
			total += diff1 * diff2
		}
	}

	return total / float64(count)
}
