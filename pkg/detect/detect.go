// Package detect defines the detection wire contract and the HTTP client
// used to submit frames to a detection service.
package detect

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Detection is one detected object in image pixel coordinates.
// (X1,Y1) and (X2,Y2) are opposite corners exactly as reported by the
// service. They are passed through as-is: corners may be inverted or fall
// outside the frame, and consumers must not normalize or clamp them.
type Detection struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Label string  `json:"label"`
	Conf  float64 `json:"conf"`
}

// Caption is the text rendered with a detection box, e.g. "boat 0.92".
// Conf is opaque to everything but display formatting.
func (d Detection) Caption() string {
	return fmt.Sprintf("%s %.2f", d.Label, d.Conf)
}

// Request is the body submitted to POST /detect.
type Request struct {
	Image string `json:"image"`
}

// Response is the body returned by POST /detect.
type Response struct {
	Detections []Detection `json:"detections"`
}

const dataURLPrefix = "data:image/jpeg;base64,"

// EncodeDataURL wraps encoded JPEG bytes as a data URL.
func EncodeDataURL(jpegData []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(jpegData)
}

// DecodeDataURL extracts raw image bytes from an image data URL.
// Any image subtype is accepted; the payload after the comma must be
// standard base64.
func DecodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "data:image/") {
		return nil, errors.New("detect: not an image data URL")
	}
	_, b64, ok := strings.Cut(s, ",")
	if !ok {
		return nil, errors.New("detect: data URL missing payload")
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("detect: decode data URL: %w", err)
	}
	return raw, nil
}
