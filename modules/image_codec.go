package modules

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/okieraised/go-faceauth-pipeline/utils"
	"gocv.io/x/gocv"
)

// ImageCodec converts client image payloads into canonical RGB Mats.
type ImageCodec struct {
	cleanPattern *regexp.Regexp
}

func NewImageCodec() *ImageCodec {
	return &ImageCodec{
		cleanPattern: regexp.MustCompile(`[^a-zA-Z0-9+/=]`),
	}
}

/*
Decode converts a base64 image payload into an RGB image.

Inputs:

  - payload (string): base64 image data, with or without a data URL prefix.

Outputs:

  - img (*gocv.Mat): decoded RGB image.
  - raw ([]byte): the encoded image bytes after base64 decoding.
*/
func (c *ImageCodec) Decode(payload string) (*gocv.Mat, []byte, error) {
	normalized := c.Normalize(payload)
	if normalized == "" {
		return nil, nil, fmt.Errorf("%w: empty payload", config.ErrDecode)
	}

	raw, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", config.ErrDecode, err)
	}

	img, err := c.DecodeBytes(raw)
	if err != nil {
		return nil, nil, err
	}

	return img, raw, nil
}

// Normalize strips the data URL prefix, drops characters that cannot appear
// in base64 data and repairs the padding. Normalizing an already normalized
// payload returns it unchanged.
func (c *ImageCodec) Normalize(payload string) string {
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	payload = c.cleanPattern.ReplaceAllString(payload, "")

	switch len(payload) % 4 {
	case 1:
		// A single trailing character can never carry data.
		payload = payload[:len(payload)-1]
	case 2:
		payload += "=="
	case 3:
		payload += "="
	}

	return payload
}

/*
DecodeBytes converts encoded image bytes into an RGB image. OpenCV decoding
is tried first, then the Go image registry for formats the OpenCV build
cannot read.

Inputs:

  - raw ([]byte): encoded image bytes (JPEG, PNG, GIF, BMP, TIFF, WebP).

Outputs:

  - img (*gocv.Mat): decoded RGB image.
*/
func (c *ImageCodec) DecodeBytes(raw []byte) (*gocv.Mat, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image data", config.ErrDecode)
	}

	img, err := utils.ConvertImageToMat(raw)
	if err == nil && !img.Empty() {
		return img, nil
	}
	if img != nil {
		_ = img.Close()
	}

	img, err = utils.ConvertImageToMatNative(raw)
	if err != nil || img.Empty() {
		if img != nil {
			_ = img.Close()
		}
		return nil, fmt.Errorf("%w: unsupported image data", config.ErrDecode)
	}

	return img, nil
}

// EncodeJPEG encodes an RGB image as JPEG bytes for storage or transport.
func (c *ImageCodec) EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	return utils.EncodeMatToJPEG(img, quality)
}
