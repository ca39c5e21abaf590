// Package targets loads the list of listing pages a batch run visits.
package targets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/circulars-cli/internal/fetcher"
	"github.com/sells-group/circulars-cli/internal/model"
)

// Spreadsheet column headers. Matching is case-insensitive.
const (
	ColCategory  = "Verticals"
	ColSubfolder = "SubCategory"
	ColURL       = "URL"
	ColFeedURL   = "FeedURL"
)

type yamlFile struct {
	Targets []model.Target `yaml:"targets"`
}

// Load reads targets from a .yaml/.yml, .xlsx or .csv file. Entries
// without a category or URL are skipped with a warning.
func Load(path string) ([]model.Target, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".xlsx":
		rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "targets: read %s", path)
		}
		return fromRows(path, rows)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "targets: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		rows, err := fetcher.ReadCSV(f, fetcher.CSVOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "targets: read %s", path)
		}
		return fromRows(path, rows)
	default:
		return nil, eris.Errorf("targets: unsupported file type %q", ext)
	}
}

func loadYAML(path string) ([]model.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "targets: read %s", path)
	}
	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "targets: parse %s", path)
	}
	var out []model.Target
	for i, t := range doc.Targets {
		t = clean(t)
		if !usable(path, i+1, t) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// fromRows maps a header row plus data rows to targets.
func fromRows(path string, rows [][]string) ([]model.Target, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{ColCategory, ColURL} {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			return nil, eris.Errorf("targets: %s: missing column %q", path, col)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := idx[strings.ToLower(col)]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var out []model.Target
	for n, row := range rows[1:] {
		t := clean(model.Target{
			Category:  cell(row, ColCategory),
			Subfolder: cell(row, ColSubfolder),
			URL:       cell(row, ColURL),
			FeedURL:   cell(row, ColFeedURL),
		})
		if !usable(path, n+2, t) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func clean(t model.Target) model.Target {
	t.Category = strings.TrimSpace(t.Category)
	t.Subfolder = strings.TrimSpace(t.Subfolder)
	t.URL = strings.TrimSpace(t.URL)
	t.FeedURL = strings.TrimSpace(t.FeedURL)
	return t
}

func usable(path string, line int, t model.Target) bool {
	if t.Category != "" && t.URL != "" {
		return true
	}
	zap.L().Warn("targets: skipping incomplete entry",
		zap.String("file", path),
		zap.Int("entry", line),
		zap.String("category", t.Category),
		zap.String("url", t.URL),
	)
	return false
}
