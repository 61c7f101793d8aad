package export

import (
	"fmt"
	"strings"
)

// outputFilename builds the sequential clip name {prefix}{zero-padded
// sequence}.{ext}. The pad width grows with the batch size but never drops
// below three digits, so small batches still sort lexicographically next to
// larger ones.
func outputFilename(prefix string, seq, total int, ext string) string {
	width := len(fmt.Sprintf("%d", total))
	if width < 3 {
		width = 3
	}
	return fmt.Sprintf("%s%0*d.%s", prefix, width, seq, ext)
}

// ensureExtension appends ext to explicit output names that lack one.
func ensureExtension(name, ext string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + "." + ext
}
