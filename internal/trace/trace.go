// Package trace reads, writes and synthesises recorded pointer streams.
// A trace is the ground truth that evaluation replays into an engine.
package trace

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/pointer.predict/internal/fsutil"
	"github.com/banshee-data/pointer.predict/internal/predict"
)

// maxTraceFileSize bounds Load.
const maxTraceFileSize = 64 * 1024 * 1024

// ErrEmptyTrace is returned when a trace holds fewer than two samples.
var ErrEmptyTrace = errors.New("trace needs at least two samples")

// Trace is an ordered pointer stream.
type Trace struct {
	Name    string           `json:"name"`
	Samples []predict.Sample `json:"samples"`
}

// Duration returns the time between the first and last sample in ms.
func (t *Trace) Duration() float64 {
	if len(t.Samples) < 2 {
		return 0
	}
	return t.Samples[len(t.Samples)-1].Timestamp - t.Samples[0].Timestamp
}

// Validate checks the trace can be replayed and interpolated: at least two
// samples with non-decreasing timestamps and finite coordinates.
func (t *Trace) Validate() error {
	if len(t.Samples) < 2 {
		return ErrEmptyTrace
	}
	for i, s := range t.Samples {
		if !finite(s.X) || !finite(s.Y) || !finite(s.Timestamp) {
			return fmt.Errorf("sample %d: non-finite value", i)
		}
		if i > 0 && s.Timestamp < t.Samples[i-1].Timestamp {
			return fmt.Errorf("sample %d: timestamp %g precedes %g", i, s.Timestamp, t.Samples[i-1].Timestamp)
		}
	}
	return nil
}

// PositionAt interpolates the pointer position at timestampMs. It reports
// false outside the recorded time range.
func (t *Trace) PositionAt(timestampMs float64) (x, y float64, ok bool) {
	n := len(t.Samples)
	if n == 0 {
		return 0, 0, false
	}
	if timestampMs < t.Samples[0].Timestamp || timestampMs > t.Samples[n-1].Timestamp {
		return 0, 0, false
	}
	i := sort.Search(n, func(i int) bool { return t.Samples[i].Timestamp >= timestampMs })
	b := t.Samples[i]
	if b.Timestamp == timestampMs || i == 0 {
		return b.X, b.Y, true
	}
	a := t.Samples[i-1]
	dt := b.Timestamp - a.Timestamp
	if dt <= 0 {
		return b.X, b.Y, true
	}
	f := (timestampMs - a.Timestamp) / dt
	return a.X + f*(b.X-a.X), a.Y + f*(b.Y-a.Y), true
}

// ReadCSV parses rows of timestamp_ms,x,y with an optional fourth pressure
// column. A header row is skipped when its first field is not numeric.
func ReadCSV(r io.Reader) (*Trace, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	tr := &Trace{}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}
		s, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		tr.Samples = append(tr.Samples, s)
	}
	return tr, nil
}

func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	return err != nil
}

func parseRecord(rec []string) (predict.Sample, error) {
	if len(rec) < 3 || len(rec) > 4 {
		return predict.Sample{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(rec))
	}
	var vals [4]float64
	for i, f := range rec {
		f = strings.TrimSpace(f)
		if i == 3 && f == "" {
			break
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return predict.Sample{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	s := predict.Sample{Timestamp: vals[0], X: vals[1], Y: vals[2]}
	if len(rec) == 4 && strings.TrimSpace(rec[3]) != "" {
		p := vals[3]
		s.Pressure = &p
	}
	return s, nil
}

// ReadJSON decodes a {"name": ..., "samples": [...]} document.
func ReadJSON(r io.Reader) (*Trace, error) {
	tr := &Trace{}
	if err := json.NewDecoder(r).Decode(tr); err != nil {
		return nil, fmt.Errorf("failed to parse trace JSON: %w", err)
	}
	return tr, nil
}

// Load reads a .csv or .json trace from disk and validates it. Unnamed
// traces take the file's base name.
func Load(path string) (*Trace, error) {
	return LoadFS(fsutil.OSFileSystem{}, path)
}

// LoadFS is Load against an arbitrary filesystem.
func LoadFS(fsys fsutil.FileSystem, path string) (*Trace, error) {
	cleanPath := filepath.Clean(path)
	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat trace: %w", err)
	}
	if info.Size() > maxTraceFileSize {
		return nil, fmt.Errorf("trace file too large: %d bytes (max %d)", info.Size(), maxTraceFileSize)
	}

	f, err := fsys.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	var tr *Trace
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".csv":
		tr, err = ReadCSV(f)
	case ".json":
		tr, err = ReadJSON(f)
	default:
		return nil, fmt.Errorf("trace file must have .csv or .json extension, got %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	if tr.Name == "" {
		tr.Name = strings.TrimSuffix(filepath.Base(cleanPath), filepath.Ext(cleanPath))
	}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return tr, nil
}

// Save writes tr as CSV to path, creating parent directories.
func Save(fsys fsutil.FileSystem, path string, tr *Trace) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, tr); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// WriteCSV emits the trace with a header row. The pressure column is
// written only when some sample carries pressure; samples without it get
// an empty field.
func WriteCSV(w io.Writer, tr *Trace) error {
	withPressure := false
	for _, s := range tr.Samples {
		if s.Pressure != nil {
			withPressure = true
			break
		}
	}

	cw := csv.NewWriter(w)
	header := []string{"timestamp_ms", "x", "y"}
	if withPressure {
		header = append(header, "pressure")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range tr.Samples {
		row := []string{formatFloat(s.Timestamp), formatFloat(s.X), formatFloat(s.Y)}
		if withPressure {
			p := ""
			if s.Pressure != nil {
				p = formatFloat(*s.Pressure)
			}
			row = append(row, p)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
