package sink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/model"
)

// JSONFile writes each run's records as an indented JSON array to
// <dir>/<category>_<subfolder>_<timestamp>.json.
type JSONFile struct {
	dir string
}

// NewJSONFile creates a JSONFile sink rooted at dir.
func NewJSONFile(dir string) *JSONFile {
	return &JSONFile{dir: dir}
}

// FileName returns the output name for a result.
func (j *JSONFile) FileName(result *model.RunResult) string {
	return slug(result.Target.Category) + "_" + slug(result.Target.Subfolder) + "_" + stamp(result) + ".json"
}

func (j *JSONFile) Write(_ context.Context, result *model.RunResult) error {
	if err := checkResult(result); err != nil {
		return err
	}
	data, err := recordsJSON(result.Records)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return eris.Wrap(err, "sink: create json dir")
	}
	path := filepath.Join(j.dir, j.FileName(result))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "sink: write %s", path)
	}
	zap.L().Info("sink: wrote json",
		zap.String("path", path),
		zap.Int("records", len(result.Records)),
	)
	return nil
}

func (j *JSONFile) Close() error { return nil }

func recordsJSON(records []model.Record) ([]byte, error) {
	if records == nil {
		records = []model.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "sink: marshal records")
	}
	return data, nil
}
