// Package geometry maps crop rectangles between the display canvas and the
// source video's native pixel space, producing codec-legal rectangles.
package geometry
