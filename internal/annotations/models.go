package annotations

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"cliplab/internal/media"
)

// Annotation is one labeled crop-and-trim selection on a source video. The
// export pipeline treats annotations as immutable once a run starts; it
// derives transformed copies instead of mutating caller-owned values.
type Annotation struct {
	ID         string
	Label      string
	POSTag     string
	SideView   bool
	Crop       media.CropArea
	Time       media.TimeRange
	OutputName string
	CreatedAt  time.Time
}

// New returns an annotation with a fresh UUID and creation timestamp.
func New(label string, crop media.CropArea, tr media.TimeRange) Annotation {
	return Annotation{
		ID:        uuid.NewString(),
		Label:     strings.TrimSpace(label),
		Crop:      crop,
		Time:      tr,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate reports why an annotation cannot enter the export pipeline, or nil.
func (a Annotation) Validate() error {
	switch {
	case !a.Crop.Valid():
		return errNonPositiveCrop
	case !a.Time.Valid():
		return errInvertedTimeRange
	default:
		return nil
	}
}

// DisplayName is the identifier used in errors and progress output: the
// explicit output name when set, otherwise the label, otherwise the ID.
func (a Annotation) DisplayName() string {
	if name := strings.TrimSpace(a.OutputName); name != "" {
		return name
	}
	if label := strings.TrimSpace(a.Label); label != "" {
		return label
	}
	return a.ID
}
