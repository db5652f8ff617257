package mimetypes

import "mime"

type MIME string

const (
	Unknown   MIME = "unknown"
	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWebP MIME = "image/webp"
	ImageAVIF MIME = "image/avif"
)

// Images are the formats accepted as chat attachments or profile pictures.
// SVG is not accepted.
var Images = []MIME{ImagePNG, ImageJPEG, ImageGIF, ImageWebP, ImageAVIF}

// Matches compares a detected type, parameters ignored, with the expected one.
func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

// Image returns the accepted image type behind detected, if any.
func Image(detected string) (MIME, bool) {
	for _, candidate := range Images {
		if m, ok := Matches(detected, candidate); ok {
			return m, true
		}
	}
	return Unknown, false
}
