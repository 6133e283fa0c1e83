package utils

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"

	_ "image/gif"
	_ "image/png"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ConvertImageToMat decodes encoded image bytes into an RGB Mat.
func ConvertImageToMat(bImage []byte) (*gocv.Mat, error) {
	dstMat := gocv.NewMat()
	srcMat, err := gocv.IMDecode(bImage, gocv.IMReadColor)
	if err != nil {
		return &dstMat, err
	}
	defer srcMat.Close()

	gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRToRGB)
	return &dstMat, nil
}

// ConvertImageToMatNative decodes encoded image bytes into an RGB Mat using
// the Go image registry (JPEG, PNG, GIF, BMP, TIFF, WebP). It covers formats
// the OpenCV build may lack.
func ConvertImageToMatNative(bImage []byte) (*gocv.Mat, error) {
	img, _, err := image.Decode(bytes.NewReader(bImage))
	if err != nil {
		empty := gocv.NewMat()
		return &empty, err
	}

	rgba := image.NewRGBA(img.Bounds())
	xdraw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, xdraw.Src)

	mat, err := gocv.ImageToMatRGB(rgba)
	if err != nil {
		return &mat, err
	}
	return &mat, nil
}

// EncodeMatToJPEG encodes an RGB Mat as JPEG bytes.
func EncodeMatToJPEG(img gocv.Mat, jpegQuality int) ([]byte, error) {
	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(img, &bgr, gocv.ColorBGRToRGB)

	outImg, err := bgr.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	opt := jpeg.Options{
		Quality: jpegQuality,
	}
	err = jpeg.Encode(&buf, outImg, &opt)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// OpenCVImageToJPEG writes an RGB Mat to a JPEG file.
func OpenCVImageToJPEG(fPath string, jpegQuality int, img gocv.Mat) error {
	raw, err := EncodeMatToJPEG(img, jpegQuality)
	if err != nil {
		return err
	}

	f, err := os.Create(fPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(raw)
	if err != nil {
		return err
	}
	return nil
}
