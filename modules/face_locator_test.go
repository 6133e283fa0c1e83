package modules

import (
	"errors"
	"image"
	"os"
	"testing"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

const testCascadeFile = "./test_data/haarcascade_frontalface_default.xml"

func genTestLocator(t *testing.T) *FaceLocator {
	t.Helper()
	if _, err := os.Stat(testCascadeFile); err != nil {
		t.Skipf("cascade file not available: %v", err)
	}

	cfg := *config.DefaultFaceLocatorParams
	cfg.CascadeFile = testCascadeFile
	locator, err := NewFaceLocator(&cfg)
	assert.NoError(t, err)
	return locator
}

func TestNewFaceLocator_MissingCascade(t *testing.T) {
	cfg := *config.DefaultFaceLocatorParams
	cfg.CascadeFile = "./test_data/does_not_exist.xml"

	_, err := NewFaceLocator(&cfg)
	assert.Error(t, err)
}

func TestGetLargestFace(t *testing.T) {
	faces := []image.Rectangle{
		image.Rect(0, 0, 30, 30),
		image.Rect(50, 50, 150, 170),
		image.Rect(10, 10, 60, 60),
	}

	assert.Equal(t, image.Rect(50, 50, 150, 170), getLargestFace(faces))

	single := []image.Rectangle{image.Rect(5, 5, 25, 25)}
	assert.Equal(t, single[0], getLargestFace(single))
}

func TestPadFace(t *testing.T) {
	locator := &FaceLocator{ModelParams: config.DefaultFaceLocatorParams}

	img := gocv.NewMatWithSize(400, 400, gocv.MatTypeCV8UC3)
	defer img.Close()

	// Interior box grows by 30% of width and 40% of height on each side.
	padded := locator.padFace(img, image.Rect(150, 150, 250, 250))
	assert.Equal(t, image.Rect(120, 110, 280, 290), padded)

	// Padding is clamped at the image border.
	padded = locator.padFace(img, image.Rect(0, 0, 100, 100))
	assert.Equal(t, image.Rect(0, 0, 130, 140), padded)

	padded = locator.padFace(img, image.Rect(350, 350, 400, 400))
	assert.Equal(t, image.Rect(335, 330, 400, 400), padded)
}

func TestFaceLocator_NoFace(t *testing.T) {
	locator := genTestLocator(t)
	defer locator.Close()

	// A flat gray frame contains nothing the cascade can anchor on.
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	_, count, err := locator.Locate(img)
	assert.True(t, errors.Is(err, config.ErrNoFaceDetected))
	assert.Equal(t, 0, count)
}

func TestFaceLocator_Locate(t *testing.T) {
	locator := genTestLocator(t)
	defer locator.Close()

	fData, err := os.ReadFile("./test_data/face.jpg")
	if err != nil {
		t.Skipf("face image not available: %v", err)
	}

	src, err := gocv.IMDecode(fData, gocv.IMReadColor)
	assert.NoError(t, err)
	defer src.Close()

	img := gocv.NewMat()
	defer img.Close()
	gocv.CvtColor(src, &img, gocv.ColorBGRToRGB)

	crop, count, err := locator.Locate(img)
	assert.NoError(t, err)
	defer crop.Close()
	assert.GreaterOrEqual(t, count, 1)
	assert.Equal(t, locator.ModelParams.CanonicalSize, crop.Rows())
	assert.Equal(t, locator.ModelParams.CanonicalSize, crop.Cols())
}
