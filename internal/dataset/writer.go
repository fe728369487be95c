package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Writer saves datasets under a base output directory, one subdirectory
// per model.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Save writes samples in the given format and returns the file path.
// Files land in <dir>/<model>/<label>_<n>samples_<timestamp>.<ext>.
func (w *Writer) Save(samples []Sample, format Format, model, label string) (string, error) {
	data, err := Encode(samples, format)
	if err != nil {
		return "", err
	}

	modelDir := filepath.Join(w.dir, modelDirName(model))
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("%s_%dsamples_%s", label, len(samples), time.Now().Format("20060102_150405"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")

	path := filepath.Join(modelDir, name+format.Ext())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}

// modelDirName strips routing prefixes so local and aggregator models get
// a flat directory name.
func modelDirName(model string) string {
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		model = model[idx+1:]
	}
	if model == "" {
		model = "unknown"
	}
	return unsafeFilenameChars.ReplaceAllString(model, "_")
}
