package modules

import (
	"os"
	"testing"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestNewFaceEncoder_MissingModelsDowngrades(t *testing.T) {
	cfg := *config.DefaultFaceEncoderParams
	cfg.ModelDir = "./test_data/does_not_exist"

	encoder := NewFaceEncoder(&cfg, config.EmbeddingBackendVector)
	defer encoder.Close()

	assert.Equal(t, config.EmbeddingBackendNone, encoder.Backend)
}

func TestFaceEncoder_EncodePixelBlock(t *testing.T) {
	encoder := NewFaceEncoder(config.DefaultFaceEncoderParams, config.EmbeddingBackendNone)
	defer encoder.Close()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(120, 120, 120, 0), 256, 256, gocv.MatTypeCV8UC3)
	defer img.Close()

	encoding := encoder.Encode(img)
	defer encoding.Close()

	assert.Equal(t, config.EncodingPixelBlock, encoding.Kind)
	assert.NotNil(t, encoding.Pixels)
	assert.Equal(t, 256, encoding.Pixels.Rows())
	assert.Equal(t, 256, encoding.Pixels.Cols())
	assert.Nil(t, encoding.Vector)
}

func TestFaceEncoder_EncodeDeepVerifyBackendKeepsPixels(t *testing.T) {
	encoder := NewFaceEncoder(config.DefaultFaceEncoderParams, config.EmbeddingBackendDeepVerify)
	defer encoder.Close()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(64, 64, 64, 0), 256, 256, gocv.MatTypeCV8UC3)
	defer img.Close()

	encoding := encoder.Encode(img)
	defer encoding.Close()

	assert.Equal(t, config.EncodingPixelBlock, encoding.Kind)
	assert.NotNil(t, encoding.Pixels)
}

func TestFaceEncoder_EncodePairSameKind(t *testing.T) {
	encoder := NewFaceEncoder(config.DefaultFaceEncoderParams, config.EmbeddingBackendNone)
	defer encoder.Close()

	refImg := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 10, 10, 0), 256, 256, gocv.MatTypeCV8UC3)
	defer refImg.Close()
	capImg := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 256, 256, gocv.MatTypeCV8UC3)
	defer capImg.Close()

	refEncoding, capEncoding := encoder.EncodePair(refImg, capImg)
	defer refEncoding.Close()
	defer capEncoding.Close()

	assert.Equal(t, refEncoding.Kind, capEncoding.Kind)
	assert.Equal(t, config.EncodingPixelBlock, refEncoding.Kind)
}

func TestFaceEncoder_EncodeVector(t *testing.T) {
	modelDir := os.Getenv("DLIB_MODEL_DIR")
	if modelDir == "" {
		t.Skipf("DLIB_MODEL_DIR is not set")
	}

	cfg := *config.DefaultFaceEncoderParams
	cfg.ModelDir = modelDir

	encoder := NewFaceEncoder(&cfg, config.EmbeddingBackendVector)
	defer encoder.Close()
	assert.Equal(t, config.EmbeddingBackendVector, encoder.Backend)

	crop := genTestFaceCrop(t)
	defer crop.Close()

	encoding := encoder.Encode(*crop)
	defer encoding.Close()

	assert.Equal(t, config.EncodingVector, encoding.Kind)
	assert.Equal(t, 128, len(encoding.Vector))
}
