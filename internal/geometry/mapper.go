package geometry

import (
	"math"

	"cliplab/internal/media"
	"cliplab/internal/services"
)

// Map converts a display-space crop rectangle into source-video pixel space.
//
// The canvas and the source video rarely share a resolution, and the canvas
// may letterbox or stretch, so each axis is scaled independently rather than
// assuming a preserved aspect ratio. Every value is rounded to the nearest
// even integer (4:2:0 chroma subsampling requires even dimensions) and the
// rectangle is clamped inside the source bounds with both sides at least
// media.MinCropSide.
//
// Map is pure: identical inputs always yield identical output, which keeps
// batch runs reproducible without invoking the transcoder.
func Map(crop media.CropArea, canvas, video media.Resolution) (media.SourceCrop, error) {
	if canvas.IsZero() || video.IsZero() {
		return media.SourceCrop{}, services.Wrap(
			services.ErrMissingResolution,
			"geometry", "map", "canvas and video resolutions must be known and non-zero", nil)
	}

	scaleX := float64(video.Width) / float64(canvas.Width)
	scaleY := float64(video.Height) / float64(canvas.Height)

	out := media.SourceCrop{
		X:      roundEven(float64(crop.X) * scaleX),
		Y:      roundEven(float64(crop.Y) * scaleY),
		Width:  roundEven(float64(crop.Width) * scaleX),
		Height: roundEven(float64(crop.Height) * scaleY),
	}

	out.X = clampInt(out.X, 0, evenFloor(video.Width))
	out.Y = clampInt(out.Y, 0, evenFloor(video.Height))

	out.Width = maxInt(out.Width, media.MinCropSide)
	out.Height = maxInt(out.Height, media.MinCropSide)

	// Boundary overruns reduce the span, never shift the origin. When the
	// remaining span is below MinCropSide the boundary wins.
	if out.X+out.Width > video.Width {
		out.Width = evenFloor(video.Width - out.X)
	}
	if out.Y+out.Height > video.Height {
		out.Height = evenFloor(video.Height - out.Y)
	}

	return out, nil
}

// roundEven rounds to the nearest even integer, halves away from zero.
// Truncation would bias crops toward the top-left, so 149.0 maps to 150.
func roundEven(v float64) int {
	return int(math.Round(v/2)) * 2
}

func evenFloor(v int) int {
	if v < 0 {
		return 0
	}
	return v - v%2
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
