package annotations

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cliplab/internal/media"
)

// Column layout for the tabular interchange format. Export emits exactly this
// set; import accepts it in this order.
var csvHeader = []string{
	"filename",
	"label",
	"pos_tag",
	"side_view",
	"start_seconds",
	"end_seconds",
	"crop_x",
	"crop_y",
	"crop_width",
	"crop_height",
	"created_at",
}

const (
	colFilename = iota
	colLabel
	colPOSTag
	colSideView
	colStart
	colEnd
	colCropX
	colCropY
	colCropWidth
	colCropHeight
	colCreatedAt
	columnCount
)

var (
	errNonPositiveCrop   = errors.New("crop width and height must be positive")
	errInvertedTimeRange = errors.New("start time must be before end time")
)

// SkippedRow records an import row that was rejected and why.
type SkippedRow struct {
	Line   int
	Reason string
}

// utf8BOM is prepended on export so spreadsheet tools detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses annotations from tabular form. Malformed rows are skipped
// and reported rather than failing the whole import.
func ReadCSV(r io.Reader) ([]Annotation, []SkippedRow, error) {
	buffered := bufio.NewReader(r)
	if err := stripBOM(buffered); err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("csv input is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, nil, err
	}

	var (
		result  []Annotation
		skipped []SkippedRow
		line    = 1
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			skipped = append(skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}
		ann, reason := parseRow(record)
		if reason != "" {
			skipped = append(skipped, SkippedRow{Line: line, Reason: reason})
			continue
		}
		result = append(result, ann)
	}
	return result, skipped, nil
}

// WriteCSV emits annotations as UTF-8 with a byte-order mark, one row each.
func WriteCSV(w io.Writer, anns []Annotation) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, ann := range anns {
		record := []string{
			ann.OutputName,
			ann.Label,
			ann.POSTag,
			strconv.FormatBool(ann.SideView),
			formatSeconds(ann.Time.Start),
			formatSeconds(ann.Time.End),
			strconv.Itoa(ann.Crop.X),
			strconv.Itoa(ann.Crop.Y),
			strconv.Itoa(ann.Crop.Width),
			strconv.Itoa(ann.Crop.Height),
			ann.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func stripBOM(r *bufio.Reader) error {
	head, err := r.Peek(len(utf8BOM))
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("peek csv input: %w", err)
	}
	if len(head) == len(utf8BOM) && head[0] == utf8BOM[0] && head[1] == utf8BOM[1] && head[2] == utf8BOM[2] {
		if _, err := r.Discard(len(utf8BOM)); err != nil {
			return fmt.Errorf("discard bom: %w", err)
		}
	}
	return nil
}

func validateHeader(header []string) error {
	if len(header) < columnCount {
		return fmt.Errorf("csv header has %d columns, expected %d", len(header), columnCount)
	}
	for i, want := range csvHeader {
		got := strings.ToLower(strings.TrimSpace(header[i]))
		if got != want {
			return fmt.Errorf("csv column %d is %q, expected %q", i+1, header[i], want)
		}
	}
	return nil
}

func parseRow(record []string) (Annotation, string) {
	if len(record) < columnCount {
		return Annotation{}, fmt.Sprintf("row has %d columns, expected %d", len(record), columnCount)
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	filename := record[colFilename]
	label := record[colLabel]
	if filename == "" && label == "" {
		return Annotation{}, "missing filename and label"
	}

	start, err := strconv.ParseFloat(record[colStart], 64)
	if err != nil {
		return Annotation{}, fmt.Sprintf("start_seconds %q is not a number", record[colStart])
	}
	end, err := strconv.ParseFloat(record[colEnd], 64)
	if err != nil {
		return Annotation{}, fmt.Sprintf("end_seconds %q is not a number", record[colEnd])
	}

	crop, reason := parseCrop(record)
	if reason != "" {
		return Annotation{}, reason
	}

	createdAt, err := time.Parse(time.RFC3339, record[colCreatedAt])
	if err != nil {
		return Annotation{}, fmt.Sprintf("created_at %q is not RFC 3339", record[colCreatedAt])
	}

	sideView := false
	if value := record[colSideView]; value != "" {
		sideView, err = strconv.ParseBool(value)
		if err != nil {
			return Annotation{}, fmt.Sprintf("side_view %q is not a boolean", value)
		}
	}

	ann := Annotation{
		Label:      label,
		POSTag:     record[colPOSTag],
		SideView:   sideView,
		Crop:       crop,
		Time:       media.TimeRange{Start: start, End: end},
		OutputName: filename,
		CreatedAt:  createdAt.UTC(),
	}
	if err := ann.Validate(); err != nil {
		return Annotation{}, err.Error()
	}
	return ann, ""
}

func parseCrop(record []string) (media.CropArea, string) {
	values := make([]int, 4)
	for i, col := range []int{colCropX, colCropY, colCropWidth, colCropHeight} {
		v, err := strconv.Atoi(record[col])
		if err != nil {
			return media.CropArea{}, fmt.Sprintf("%s %q is not an integer", csvHeader[col], record[col])
		}
		values[i] = v
	}
	return media.CropArea{X: values[0], Y: values[1], Width: values[2], Height: values[3]}, ""
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
