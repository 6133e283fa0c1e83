package modules

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

type stubLedger struct {
	digests map[string]bool
	last    map[string]time.Time
	seenErr error
}

func newStubLedger() *stubLedger {
	return &stubLedger{
		digests: map[string]bool{},
		last:    map[string]time.Time{},
	}
}

func (s *stubLedger) Seen(_ context.Context, identityKey, digest string) (bool, error) {
	if s.seenErr != nil {
		return false, s.seenErr
	}
	return s.digests[identityKey+"/"+digest], nil
}

func (s *stubLedger) Remember(_ context.Context, identityKey, digest string) error {
	s.digests[identityKey+"/"+digest] = true
	return nil
}

func (s *stubLedger) LastAttempt(_ context.Context, identityKey string) (time.Time, bool, error) {
	at, ok := s.last[identityKey]
	return at, ok, nil
}

func (s *stubLedger) Touch(_ context.Context, identityKey string, at time.Time) error {
	s.last[identityKey] = at
	return nil
}

func genTestNoiseMat(rows, cols int, seed int64) gocv.Mat {
	rng := rand.New(rand.NewSource(seed))
	img := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols*3; j++ {
			img.SetUCharAt(i, j, uint8(rng.Intn(256)))
		}
	}
	return img
}

func TestLivenessGuard_RejectsSmallImage(t *testing.T) {
	guard := NewLivenessGuard(config.DefaultLivenessParams, newStubLedger())

	img := genTestNoiseMat(100, 100, 1)
	defer img.Close()

	result, err := guard.Verify(context.Background(), "identity-1", img, []byte("payload"), nil)
	assert.NoError(t, err)
	assert.False(t, result.IsLive)
	assert.Contains(t, result.Reason, "below minimum capture size")
}

func TestLivenessGuard_RejectsUnusualAspectRatio(t *testing.T) {
	guard := NewLivenessGuard(config.DefaultLivenessParams, newStubLedger())

	img := genTestNoiseMat(200, 2000, 2)
	defer img.Close()

	result, err := guard.Verify(context.Background(), "identity-1", img, []byte("payload"), nil)
	assert.NoError(t, err)
	assert.False(t, result.IsLive)
	assert.Contains(t, result.Reason, "aspect ratio")
}

func TestLivenessGuard_RejectsFlatImage(t *testing.T) {
	guard := NewLivenessGuard(config.DefaultLivenessParams, newStubLedger())

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	result, err := guard.Verify(context.Background(), "identity-1", img, []byte("payload"), nil)
	assert.NoError(t, err)
	assert.False(t, result.IsLive)
	assert.Contains(t, result.Reason, "entropy")
}

func TestLivenessGuard_RejectsUniformBorders(t *testing.T) {
	guard := NewLivenessGuard(config.DefaultLivenessParams, newStubLedger())

	img := genTestNoiseMat(480, 640, 3)
	defer img.Close()
	for i := 0; i < 480; i++ {
		for j := 0; j < 640*3; j++ {
			if i < 10 || i >= 470 || j < 10*3 || j >= 630*3 {
				img.SetUCharAt(i, j, 0)
			}
		}
	}

	result, err := guard.Verify(context.Background(), "identity-1", img, []byte("payload"), nil)
	assert.NoError(t, err)
	assert.False(t, result.IsLive)
	assert.Contains(t, result.Reason, "uniform borders")
}

func TestLivenessGuard_AcceptsNaturalCapture(t *testing.T) {
	guard := NewLivenessGuard(config.DefaultLivenessParams, newStubLedger())

	img := genTestNoiseMat(480, 640, 4)
	defer img.Close()

	result, err := guard.Verify(context.Background(), "identity-1", img, []byte("payload"), nil)
	assert.NoError(t, err)
	assert.True(t, result.IsLive)
	assert.Empty(t, result.Reason)
}

func TestLivenessGuard_RejectsReplayedCapture(t *testing.T) {
	ledger := newStubLedger()
	guard := NewLivenessGuard(config.DefaultLivenessParams, ledger)

	img := genTestNoiseMat(480, 640, 5)
	defer img.Close()

	payload := []byte("same capture bytes")

	result, err := guard.Verify(context.Background(), "identity-1", img, payload, nil)
	assert.NoError(t, err)
	assert.True(t, result.IsLive)

	// Clear the timing floor so only the digest check can fire.
	ledger.last["identity-1"] = time.Now().Add(-time.Minute)

	result, err = guard.Verify(context.Background(), "identity-1", img, payload, nil)
	assert.NoError(t, err)
	assert.False(t, result.IsLive)
	assert.Contains(t, result.Reason, "already submitted")
}

func TestLivenessGuard_RejectsRapidAttempts(t *testing.T) {
	guard := NewLivenessGuard(config.DefaultLivenessParams, newStubLedger())

	img := genTestNoiseMat(480, 640, 6)
	defer img.Close()

	result, err := guard.Verify(context.Background(), "identity-1", img, []byte("first"), nil)
	assert.NoError(t, err)
	assert.True(t, result.IsLive)

	result, err = guard.Verify(context.Background(), "identity-1", img, []byte("second"), nil)
	assert.NoError(t, err)
	assert.False(t, result.IsLive)
	assert.Contains(t, result.Reason, "too quickly")
}

func TestLivenessGuard_Hints(t *testing.T) {
	tests := []struct {
		name     string
		hints    *config.LivenessHints
		wantLive bool
		reason   string
	}{
		{
			name:     "no movement",
			hints:    &config.LivenessHints{Confidence: 0.9, FaceQuality: true},
			wantLive: false,
			reason:   "movement",
		},
		{
			name:     "low confidence",
			hints:    &config.LivenessHints{BlinkDetected: true, Confidence: 0.3, FaceQuality: true},
			wantLive: false,
			reason:   "confidence",
		},
		{
			name:     "poor face quality",
			hints:    &config.LivenessHints{HeadMovement: true, Confidence: 0.9},
			wantLive: false,
			reason:   "face quality",
		},
		{
			name:     "multiple faces",
			hints:    &config.LivenessHints{ExpressionChange: true, Confidence: 0.9, FaceQuality: true, MultipleFaces: true},
			wantLive: false,
			reason:   "multiple faces",
		},
		{
			name:     "good hints",
			hints:    &config.LivenessHints{BlinkDetected: true, Confidence: 0.9, FaceQuality: true},
			wantLive: true,
		},
	}

	for idx, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := NewLivenessGuard(config.DefaultLivenessParams, newStubLedger())

			img := genTestNoiseMat(480, 640, int64(10+idx))
			defer img.Close()

			result, err := guard.Verify(context.Background(), "identity-1", img, []byte(tt.name), tt.hints)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantLive, result.IsLive)
			if !tt.wantLive {
				assert.Contains(t, result.Reason, tt.reason)
			}
		})
	}
}

func TestLivenessGuard_LedgerFault(t *testing.T) {
	ledger := newStubLedger()
	ledger.seenErr = errors.New("ledger unavailable")
	guard := NewLivenessGuard(config.DefaultLivenessParams, ledger)

	img := genTestNoiseMat(480, 640, 20)
	defer img.Close()

	_, err := guard.Verify(context.Background(), "identity-1", img, []byte("payload"), nil)
	assert.Error(t, err)
}

func TestGrayEntropy(t *testing.T) {
	flat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 0, 0, 0), 64, 64, gocv.MatTypeCV8UC1)
	defer flat.Close()
	assert.InDelta(t, 0.0, grayEntropy(flat), 1e-6)

	checker := gocv.NewMatWithSize(64, 64, gocv.MatTypeCV8UC1)
	defer checker.Close()
	for i := 0; i < 64; i++ {
		for j := 0; j < 64; j++ {
			if (i+j)%2 == 0 {
				checker.SetUCharAt(i, j, 255)
			} else {
				checker.SetUCharAt(i, j, 0)
			}
		}
	}
	assert.InDelta(t, 1.0, grayEntropy(checker), 1e-6)
}

func TestLaplacianVariance_FlatImage(t *testing.T) {
	flat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(100, 0, 0, 0), 64, 64, gocv.MatTypeCV8UC1)
	defer flat.Close()

	assert.InDelta(t, 0.0, laplacianVariance(flat), 1e-6)
}
