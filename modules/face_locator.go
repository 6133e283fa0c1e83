package modules

import (
	"fmt"
	"image"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"gocv.io/x/gocv"
)

// FaceLocator finds faces with a Haar cascade and produces canonical crops.
type FaceLocator struct {
	ModelParams *config.FaceLocatorParams
	cascade     gocv.CascadeClassifier
}

func NewFaceLocator(cfg *config.FaceLocatorParams) (*FaceLocator, error) {
	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(cfg.CascadeFile) {
		_ = cascade.Close()
		return nil, fmt.Errorf("cannot load face cascade from %s", cfg.CascadeFile)
	}

	return &FaceLocator{
		ModelParams: cfg,
		cascade:     cascade,
	}, nil
}

func (c *FaceLocator) Close() error {
	return c.cascade.Close()
}

/*
Detect returns the face bounding boxes found in the input image.

Inputs:

  - img (gocv.Mat): RGB input image.

Outputs:

  - faces ([]image.Rectangle): bounding boxes of every detected face.
*/
func (c *FaceLocator) Detect(img gocv.Mat) []image.Rectangle {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorRGBToGray)

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(gray, &equalized)

	return c.cascade.DetectMultiScaleWithParams(
		equalized,
		c.ModelParams.ScaleFactor,
		c.ModelParams.MinNeighbors,
		0,
		image.Point{X: c.ModelParams.MinSize, Y: c.ModelParams.MinSize},
		image.Point{},
	)
}

/*
Locate finds the dominant face in the input image and returns the padded
canonical crop. When several faces are present the largest one wins unless
the locator is configured to reject multi-face captures.

Inputs:

  - img (gocv.Mat): RGB input image.

Outputs:

  - crop (*gocv.Mat): RGB face crop resized to the canonical size.
  - faceCount (int): number of faces detected in the image.
*/
func (c *FaceLocator) Locate(img gocv.Mat) (*gocv.Mat, int, error) {
	faces := c.Detect(img)
	if len(faces) == 0 {
		return nil, 0, config.ErrNoFaceDetected
	}
	if len(faces) > 1 && c.ModelParams.RejectMultiple {
		return nil, len(faces), config.ErrMultipleFaces
	}

	face := getLargestFace(faces)
	padded := c.padFace(img, face)

	region := img.Region(padded)
	defer region.Close()

	crop := gocv.NewMat()
	gocv.Resize(
		region,
		&crop,
		image.Point{
			X: c.ModelParams.CanonicalSize,
			Y: c.ModelParams.CanonicalSize,
		},
		0.0,
		0.0,
		gocv.InterpolationLinear,
	)

	return &crop, len(faces), nil
}

// getLargestFace selects the bounding box with the largest area.
func getLargestFace(faces []image.Rectangle) image.Rectangle {
	largest := faces[0]
	largestArea := largest.Dx() * largest.Dy()

	for _, face := range faces[1:] {
		area := face.Dx() * face.Dy()
		if area > largestArea {
			largest = face
			largestArea = area
		}
	}

	return largest
}

// padFace grows a face box by the configured width and height fractions,
// clamped to the image bounds.
func (c *FaceLocator) padFace(img gocv.Mat, face image.Rectangle) image.Rectangle {
	paddingX := int(float64(face.Dx()) * c.ModelParams.PaddingWidth)
	paddingY := int(float64(face.Dy()) * c.ModelParams.PaddingHeight)

	x1 := max(0, face.Min.X-paddingX)
	y1 := max(0, face.Min.Y-paddingY)
	x2 := min(img.Cols(), face.Max.X+paddingX)
	y2 := min(img.Rows(), face.Max.Y+paddingY)

	return image.Rect(x1, y1, x2, y2)
}
