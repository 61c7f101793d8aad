package geometry

import (
	"errors"
	"testing"

	"cliplab/internal/media"
	"cliplab/internal/services"
)

func TestMapScalesUniformly(t *testing.T) {
	// Canvas 640x360 against a 1920x1080 source is a clean 3x on both axes.
	got, err := Map(
		media.CropArea{X: 50, Y: 50, Width: 300, Height: 200},
		media.Resolution{Width: 640, Height: 360},
		media.Resolution{Width: 1920, Height: 1080},
	)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	want := media.SourceCrop{X: 150, Y: 150, Width: 900, Height: 600}
	if got != want {
		t.Fatalf("Map = %+v, want %+v", got, want)
	}
}

func TestMapScalesAxesIndependently(t *testing.T) {
	// A stretched canvas: 2x horizontally, 3x vertically.
	got, err := Map(
		media.CropArea{X: 10, Y: 10, Width: 100, Height: 100},
		media.Resolution{Width: 640, Height: 360},
		media.Resolution{Width: 1280, Height: 1080},
	)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	want := media.SourceCrop{X: 20, Y: 30, Width: 200, Height: 300}
	if got != want {
		t.Fatalf("Map = %+v, want %+v", got, want)
	}
}

func TestMapMissingResolution(t *testing.T) {
	crop := media.CropArea{X: 1, Y: 1, Width: 10, Height: 10}

	_, err := Map(crop, media.Resolution{Width: 0, Height: 100}, media.Resolution{Width: 1920, Height: 1080})
	if !errors.Is(err, services.ErrMissingResolution) {
		t.Fatalf("zero canvas width: got %v", err)
	}

	_, err = Map(crop, media.Resolution{Width: 640, Height: 360}, media.Resolution{})
	if !errors.Is(err, services.ErrMissingResolution) {
		t.Fatalf("zero video resolution: got %v", err)
	}
}

func TestMapRoundsToNearestEven(t *testing.T) {
	// 1.5x scale turns 33 into 49.5, which must round to 50, not truncate to 48.
	got, err := Map(
		media.CropArea{X: 33, Y: 0, Width: 100, Height: 100},
		media.Resolution{Width: 640, Height: 360},
		media.Resolution{Width: 960, Height: 540},
	)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if got.X != 50 {
		t.Errorf("X = %d, want 50", got.X)
	}
	for name, v := range map[string]int{"x": got.X, "y": got.Y, "w": got.Width, "h": got.Height} {
		if v%2 != 0 {
			t.Errorf("%s = %d is odd", name, v)
		}
	}
}

func TestMapEnforcesMinimumSides(t *testing.T) {
	got, err := Map(
		media.CropArea{X: 0, Y: 0, Width: 4, Height: 4},
		media.Resolution{Width: 1920, Height: 1080},
		media.Resolution{Width: 1920, Height: 1080},
	)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if got.Width < media.MinCropSide || got.Height < media.MinCropSide {
		t.Fatalf("sides %dx%d below minimum", got.Width, got.Height)
	}
}

func TestMapClampsToSourceBounds(t *testing.T) {
	got, err := Map(
		media.CropArea{X: 600, Y: 330, Width: 100, Height: 80},
		media.Resolution{Width: 640, Height: 360},
		media.Resolution{Width: 1920, Height: 1080},
	)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if got.X < 0 || got.Y < 0 {
		t.Errorf("negative origin: %+v", got)
	}
	if got.X+got.Width > 1920 {
		t.Errorf("x+width = %d exceeds 1920", got.X+got.Width)
	}
	if got.Y+got.Height > 1080 {
		t.Errorf("y+height = %d exceeds 1080", got.Y+got.Height)
	}
	// Overruns reduce the span, never shift the origin.
	if got.X != 1800 || got.Y != 990 {
		t.Errorf("origin moved: %+v", got)
	}
}

func TestMapClampsNegativeOrigin(t *testing.T) {
	got, err := Map(
		media.CropArea{X: -20, Y: -10, Width: 100, Height: 100},
		media.Resolution{Width: 640, Height: 360},
		media.Resolution{Width: 640, Height: 360},
	)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if got.X != 0 || got.Y != 0 {
		t.Fatalf("origin = (%d,%d), want (0,0)", got.X, got.Y)
	}
}

func TestMapIsDeterministic(t *testing.T) {
	crop := media.CropArea{X: 37, Y: 91, Width: 123, Height: 77}
	canvas := media.Resolution{Width: 853, Height: 480}
	video := media.Resolution{Width: 1920, Height: 1080}

	first, err := Map(crop, canvas, video)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Map(crop, canvas, video)
		if err != nil {
			t.Fatalf("Map: %v", err)
		}
		if again != first {
			t.Fatalf("run %d produced %+v, first run %+v", i, again, first)
		}
	}
}

func TestMapPropertyGrid(t *testing.T) {
	// Containment and evenness must hold across a sweep of inputs.
	canvas := media.Resolution{Width: 640, Height: 360}
	video := media.Resolution{Width: 1920, Height: 1080}
	for x := -40; x <= 640; x += 37 {
		for y := -40; y <= 360; y += 29 {
			for _, side := range []int{1, 15, 33, 120, 500} {
				got, err := Map(media.CropArea{X: x, Y: y, Width: side, Height: side}, canvas, video)
				if err != nil {
					t.Fatalf("Map(%d,%d,%d): %v", x, y, side, err)
				}
				if got.X%2 != 0 || got.Y%2 != 0 || got.Width%2 != 0 || got.Height%2 != 0 {
					t.Fatalf("odd output %+v for input (%d,%d,%d)", got, x, y, side)
				}
				if got.X < 0 || got.Y < 0 || got.X+got.Width > video.Width || got.Y+got.Height > video.Height {
					t.Fatalf("out of bounds %+v for input (%d,%d,%d)", got, x, y, side)
				}
			}
		}
	}
}
