// internal/analyzer/image.go
package analyzer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
)

// DefaultJPEGQuality matches the compression used by the capture flow.
const DefaultJPEGQuality = 80

// encodeJPEG returns JPEG bytes for the given image. JPEG input is returned
// unchanged so that encoding the same capture twice never recompresses it;
// other decodable formats are re-encoded once at the given quality.
func encodeJPEG(data []byte, quality int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", ErrEncodingFailure)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	if format == "jpeg" {
		return data, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	return buf.Bytes(), nil
}

func imageDataURL(jpegData []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData)
}
