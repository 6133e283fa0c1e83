package modules

import (
	"github.com/Kagami/go-face"
	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/okieraised/go-faceauth-pipeline/logger"
	"github.com/okieraised/go-faceauth-pipeline/utils"
	"gocv.io/x/gocv"
)

// FaceEncoder turns located face crops into comparable encodings. With the
// vector backend it extracts 128-d dlib descriptors; otherwise, and whenever
// descriptor extraction fails, it falls back to canonical pixel blocks.
type FaceEncoder struct {
	ModelParams *config.FaceEncoderParams
	Backend     config.EmbeddingBackend
	rec         *face.Recognizer
}

func NewFaceEncoder(cfg *config.FaceEncoderParams, backend config.EmbeddingBackend) *FaceEncoder {
	encoder := &FaceEncoder{
		ModelParams: cfg,
		Backend:     backend,
	}

	if backend == config.EmbeddingBackendVector {
		rec, err := face.NewRecognizer(cfg.ModelDir)
		if err != nil {
			logger.Error("cannot load dlib models, downgrading to pixel block encodings",
				logger.LoggerOptions{Key: "model_dir", Data: cfg.ModelDir},
				logger.LoggerOptions{Key: "error", Data: err},
			)
			encoder.Backend = config.EmbeddingBackendNone
			return encoder
		}
		encoder.rec = rec
	}

	return encoder
}

func (e *FaceEncoder) Close() {
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
}

func (e *FaceEncoder) vectorize(img gocv.Mat) ([]float32, error) {
	imgData, err := utils.EncodeMatToJPEG(img, e.ModelParams.JPEGQuality)
	if err != nil {
		return nil, err
	}

	f, err := e.rec.RecognizeSingle(imgData)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, config.ErrNoFaceDetected
	}

	descriptor := make([]float32, len(f.Descriptor))
	copy(descriptor, f.Descriptor[:])

	return descriptor, nil
}

func (e *FaceEncoder) pixelBlock(img gocv.Mat) *config.FaceEncoding {
	block := img.Clone()
	return &config.FaceEncoding{
		Kind:   config.EncodingPixelBlock,
		Pixels: &block,
	}
}

/*
Encode produces the encoding of a single face crop.

Inputs:

  - img (gocv.Mat): canonical RGB face crop.

Outputs:

  - encoding (*config.FaceEncoding): descriptor vector when the vector
    backend succeeds, pixel block otherwise. Pixel encodings own a clone of
    the crop and must be closed by the caller.
*/
func (e *FaceEncoder) Encode(img gocv.Mat) *config.FaceEncoding {
	if e.Backend == config.EmbeddingBackendVector && e.rec != nil {
		vec, err := e.vectorize(img)
		if err == nil {
			return &config.FaceEncoding{
				Kind:   config.EncodingVector,
				Vector: vec,
			}
		}
		logger.Warning("descriptor extraction failed, encoding pixel block instead",
			logger.LoggerOptions{Key: "error", Data: err},
		)
	}

	return e.pixelBlock(img)
}

/*
EncodePair produces comparable encodings for a reference and a captured face
crop. Both results always carry the same encoding kind: if descriptor
extraction fails on either crop, both fall back to pixel blocks so the
similarity scorer never sees mismatched kinds.

Inputs:

  - refImg (gocv.Mat): canonical RGB crop of the reference face.
  - capImg (gocv.Mat): canonical RGB crop of the captured face.

Outputs:

  - refEncoding (*config.FaceEncoding): encoding of the reference crop.
  - capEncoding (*config.FaceEncoding): encoding of the captured crop.
*/
func (e *FaceEncoder) EncodePair(refImg, capImg gocv.Mat) (*config.FaceEncoding, *config.FaceEncoding) {
	if e.Backend == config.EmbeddingBackendVector && e.rec != nil {
		refVec, refErr := e.vectorize(refImg)
		capVec, capErr := e.vectorize(capImg)
		if refErr == nil && capErr == nil {
			refEncoding := &config.FaceEncoding{
				Kind:   config.EncodingVector,
				Vector: refVec,
			}
			capEncoding := &config.FaceEncoding{
				Kind:   config.EncodingVector,
				Vector: capVec,
			}
			return refEncoding, capEncoding
		}
		logger.Warning("descriptor extraction failed for at least one crop, comparing pixel blocks",
			logger.LoggerOptions{Key: "reference_error", Data: refErr},
			logger.LoggerOptions{Key: "captured_error", Data: capErr},
		)
	}

	return e.pixelBlock(refImg), e.pixelBlock(capImg)
}
