package modules

import (
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"gocv.io/x/gocv"
)

// ReplayLedger tracks capture digests and attempt timestamps per identity so
// the guard can reject resubmitted images and rapid-fire attempts.
type ReplayLedger interface {
	Seen(ctx context.Context, identityKey, digest string) (bool, error)
	Remember(ctx context.Context, identityKey, digest string) error
	LastAttempt(ctx context.Context, identityKey string) (time.Time, bool, error)
	Touch(ctx context.Context, identityKey string, at time.Time) error
}

// LivenessGuard decides whether a submitted capture plausibly came from a
// live camera session. It layers cheap heuristics: dimension and aspect
// bounds, entropy, border uniformity, sensor noise, replay hashing, an
// inter-attempt timing floor and optional client hints.
type LivenessGuard struct {
	ModelParams *config.LivenessParams
	Ledger      ReplayLedger
}

func NewLivenessGuard(cfg *config.LivenessParams, ledger ReplayLedger) *LivenessGuard {
	return &LivenessGuard{
		ModelParams: cfg,
		Ledger:      ledger,
	}
}

/*
Verify runs every liveness check against a decoded capture and stops at the
first failure. Hints supplement the image heuristics, they never replace
them.

Inputs:

  - ctx (context.Context): request context for ledger operations.
  - identityKey (string): identity submitting the capture.
  - img (gocv.Mat): decoded RGB frame as submitted, not the face crop.
  - rawPayload ([]byte): raw capture bytes used for replay hashing.
  - hints (*config.LivenessHints): optional client-side observations.

Outputs:

  - result (*config.LivenessResult): live verdict with the rejection reason
    when not live.
  - err (error): replay ledger faults only.
*/
func (g *LivenessGuard) Verify(ctx context.Context, identityKey string, img gocv.Mat, rawPayload []byte, hints *config.LivenessHints) (*config.LivenessResult, error) {
	if ok, reason := g.checkQuality(img); !ok {
		return &config.LivenessResult{IsLive: false, Reason: reason}, nil
	}

	gray := toGrayscale(img)
	defer gray.Close()

	if entropy := grayEntropy(gray); entropy < g.ModelParams.MinEntropy {
		return &config.LivenessResult{
			IsLive: false,
			Reason: fmt.Sprintf("image entropy %.2f below natural capture range", entropy),
		}, nil
	}

	if ok, reason := g.checkGenuineness(gray); !ok {
		return &config.LivenessResult{IsLive: false, Reason: reason}, nil
	}

	if g.Ledger != nil {
		ok, reason, err := g.checkReplay(ctx, identityKey, rawPayload)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &config.LivenessResult{IsLive: false, Reason: reason}, nil
		}
	}

	if ok, reason := g.checkHints(hints); !ok {
		return &config.LivenessResult{IsLive: false, Reason: reason}, nil
	}

	return &config.LivenessResult{IsLive: true}, nil
}

func (g *LivenessGuard) checkQuality(img gocv.Mat) (bool, string) {
	width := img.Cols()
	height := img.Rows()

	if width < g.ModelParams.MinWidth || height < g.ModelParams.MinHeight {
		return false, fmt.Sprintf("image %dx%d below minimum capture size", width, height)
	}
	if width > g.ModelParams.MaxWidth || height > g.ModelParams.MaxHeight {
		return false, fmt.Sprintf("image %dx%d above maximum capture size", width, height)
	}

	aspectRatio := float64(width) / float64(height)
	if aspectRatio < g.ModelParams.MinAspectRatio || aspectRatio > g.ModelParams.MaxAspectRatio {
		return false, fmt.Sprintf("unusual aspect ratio %.2f for a camera capture", aspectRatio)
	}

	return true, ""
}

// checkGenuineness looks for screen and print artifacts. Screenshots tend to
// carry uniform borders, re-photographed prints lack sensor noise.
func (g *LivenessGuard) checkGenuineness(gray gocv.Mat) (bool, string) {
	stds := g.borderStdDevs(gray)
	if len(stds) == 4 {
		uniform := true
		for _, std := range stds {
			if std >= g.ModelParams.MinBorderStdDev {
				uniform = false
				break
			}
		}
		if uniform {
			return false, "uniform borders suggest a screen capture"
		}
	}

	if noise := laplacianVariance(gray); noise < g.ModelParams.MinLaplacianVariance {
		return false, fmt.Sprintf("laplacian variance %.3f too low for a live capture", noise)
	}

	return true, ""
}

func (g *LivenessGuard) checkReplay(ctx context.Context, identityKey string, rawPayload []byte) (bool, string, error) {
	digest := fmt.Sprintf("%x", sha256.Sum256(rawPayload))

	seen, err := g.Ledger.Seen(ctx, identityKey, digest)
	if err != nil {
		return false, "", err
	}
	if seen {
		return false, "capture was already submitted", nil
	}

	last, ok, err := g.Ledger.LastAttempt(ctx, identityKey)
	if err != nil {
		return false, "", err
	}
	if ok && time.Since(last) < g.ModelParams.MinAttemptInterval {
		return false, "attempts submitted too quickly", nil
	}

	if err := g.Ledger.Remember(ctx, identityKey, digest); err != nil {
		return false, "", err
	}
	if err := g.Ledger.Touch(ctx, identityKey, time.Now()); err != nil {
		return false, "", err
	}

	return true, "", nil
}

func (g *LivenessGuard) checkHints(hints *config.LivenessHints) (bool, string) {
	if hints == nil {
		return true, ""
	}

	movement := hints.BlinkDetected || hints.HeadMovement || hints.ExpressionChange
	if !movement {
		return false, "no movement indicators reported by client"
	}
	if hints.Confidence <= g.ModelParams.MinHintConfidence {
		return false, fmt.Sprintf("liveness confidence %.2f too low", hints.Confidence)
	}
	if !hints.FaceQuality {
		return false, "client reported insufficient face quality"
	}
	if hints.MultipleFaces {
		return false, "client reported multiple faces in frame"
	}

	return true, ""
}

func (g *LivenessGuard) borderStdDevs(gray gocv.Mat) []float64 {
	borderWidth := g.ModelParams.BorderWidth
	rows := gray.Rows()
	cols := gray.Cols()
	if rows <= 2*borderWidth || cols <= 2*borderWidth {
		return nil
	}

	strips := []image.Rectangle{
		image.Rect(0, 0, cols, borderWidth),
		image.Rect(0, rows-borderWidth, cols, rows),
		image.Rect(0, 0, borderWidth, rows),
		image.Rect(cols-borderWidth, 0, cols, rows),
	}

	stds := make([]float64, 0, len(strips))
	for _, rect := range strips {
		strip := gray.Region(rect)
		stripFloat := gocv.NewMat()
		strip.ConvertTo(&stripFloat, gocv.MatTypeCV32F)

		mean := matMean(stripFloat)
		stds = append(stds, math.Sqrt(matVariance(stripFloat, mean)))

		stripFloat.Close()
		strip.Close()
	}

	return stds
}

func grayEntropy(gray gocv.Mat) float64 {
	hist := gocv.NewMat()
	defer hist.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.CalcHist([]gocv.Mat{gray}, []int{0}, mask, &hist, []int{256}, []float64{0, 256}, false)

	totalPixels := float64(gray.Rows() * gray.Cols())
	if totalPixels == 0 {
		return 0
	}

	entropy := 0.0
	for i := 0; i < hist.Rows(); i++ {
		count := float64(hist.GetFloatAt(i, 0))
		if count <= 0 {
			continue
		}
		probability := count / totalPixels
		entropy -= probability * math.Log2(probability)
	}

	return entropy
}

func laplacianVariance(gray gocv.Mat) float64 {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV32F, 1, 1, 0, gocv.BorderDefault)

	mean := matMean(lap)
	return matVariance(lap, mean)
}
