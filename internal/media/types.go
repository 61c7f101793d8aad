package media

import (
	"fmt"
	"net/http"
	"strings"
)

// MinCropSide is the minimum crop width/height in source pixels. Smaller
// crops destabilize the encoder and are clamped up during mapping.
const MinCropSide = 32

// Resolution is a width/height pair in pixels.
type Resolution struct {
	Width  int
	Height int
}

// IsZero reports whether either side of the resolution is unknown.
func (r Resolution) IsZero() bool {
	return r.Width == 0 || r.Height == 0
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// CropArea is a rectangle in display-space pixels as drawn on the canvas.
type CropArea struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Valid reports whether the rectangle has positive area.
func (c CropArea) Valid() bool {
	return c.Width > 0 && c.Height > 0
}

// TimeRange is a clip interval in seconds of source time.
type TimeRange struct {
	Start float64
	End   float64
}

// Duration returns End-Start in seconds.
func (t TimeRange) Duration() float64 {
	return t.End - t.Start
}

// Valid reports whether 0 <= Start < End.
func (t TimeRange) Valid() bool {
	return t.Start >= 0 && t.Start < t.End
}

// SourceCrop is a crop rectangle in source-video pixel space. All four values
// are even, the rectangle sits inside the source bounds, and both sides are
// at least MinCropSide.
type SourceCrop struct {
	X      int
	Y      int
	Width  int
	Height int
}

// FilterValue renders the rectangle as an ffmpeg crop filter argument.
func (c SourceCrop) FilterValue() string {
	return fmt.Sprintf("crop=%d:%d:%d:%d", c.Width, c.Height, c.X, c.Y)
}

// Artifact is one exported clip. Ownership transfers from the engine to the
// exporter and finally to the delivery stage, which releases the payload.
type Artifact struct {
	Filename string
	Payload  []byte
	MIMEType string
}

// ValidateSource admits a source video payload into the pipeline. It rejects
// payloads over maxBytes and payloads that do not sniff as video content.
func ValidateSource(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return fmt.Errorf("source video is empty")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return fmt.Errorf("source video is %d bytes, limit is %d", len(data), maxBytes)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "video/") {
		return fmt.Errorf("source content type %q is not a video", contentType)
	}
	return nil
}
