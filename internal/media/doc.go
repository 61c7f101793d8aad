// Package media holds the value types shared across the export pipeline:
// resolutions, crop rectangles, time ranges, and produced artifacts.
package media
