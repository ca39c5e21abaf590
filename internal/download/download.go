// Package download resolves and saves the PDF behind each validated record.
package download

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/fetcher"
	"github.com/sells-group/circulars-cli/internal/model"
)

// maxFileStem bounds the title part of a file name.
const maxFileStem = 150

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N} ._-]+`)

// Uploader receives each artifact written to disk.
type Uploader interface {
	UploadArtifact(ctx context.Context, target model.Target, art model.Artifact) error
}

// Downloader saves the PDFs of a run under a category/subfolder/year/month
// tree.
type Downloader struct {
	fetcher  fetcher.Fetcher
	baseDir  string
	uploader Uploader
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithUploader copies every saved artifact through u.
func WithUploader(u Uploader) Option {
	return func(d *Downloader) { d.uploader = u }
}

// New creates a Downloader rooted at baseDir.
func New(f fetcher.Fetcher, baseDir string, opts ...Option) *Downloader {
	d := &Downloader{fetcher: f, baseDir: baseDir}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Result is the outcome of downloading a run's artifacts.
type Result struct {
	Artifacts  []model.Artifact
	Downloaded int
	Skipped    int
}

// Download processes records one at a time and returns an artifact per
// record. A failed record is recorded on its artifact and never aborts the
// rest. Records are not modified.
func (d *Downloader) Download(ctx context.Context, target model.Target, records []model.Record) Result {
	var res Result
	for i, rec := range records {
		if ctx.Err() != nil {
			res.Artifacts = append(res.Artifacts, model.Artifact{RecordIndex: i, Error: ctx.Err().Error()})
			continue
		}
		art, skipped := d.one(ctx, target, i, rec)
		if art.Downloaded() {
			res.Downloaded++
			if skipped {
				res.Skipped++
			}
		}
		res.Artifacts = append(res.Artifacts, art)
	}

	zap.L().Info("download: run artifacts complete",
		zap.String("category", target.Category),
		zap.String("subfolder", target.Subfolder),
		zap.Int("records", len(records)),
		zap.Int("downloaded", res.Downloaded),
		zap.Int("skipped_existing", res.Skipped),
	)
	return res
}

func (d *Downloader) one(ctx context.Context, target model.Target, idx int, rec model.Record) (model.Artifact, bool) {
	art := model.Artifact{RecordIndex: idx}
	log := zap.L().With(zap.Int("record", idx), zap.String("title", rec.Title))

	pdfURL, err := d.ResolvePDF(ctx, rec)
	if err != nil {
		art.Error = err.Error()
		log.Warn("download: no pdf for record", zap.Error(err))
		return art, false
	}
	art.PDFURL = pdfURL

	path := Path(d.baseDir, target, rec)
	art.Path = path
	art.FileName = filepath.Base(path)

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		art.Size = info.Size()
		log.Debug("download: file exists, skipping", zap.String("path", path))
		return art, true
	}

	n, err := d.fetcher.DownloadToFile(ctx, pdfURL, path)
	if err != nil {
		art.Path, art.FileName = "", ""
		art.Error = eris.Wrapf(err, "download: %s", pdfURL).Error()
		log.Warn("download: pdf download failed", zap.String("url", pdfURL), zap.Error(err))
		return art, false
	}
	art.Size = n

	if d.uploader != nil {
		if err := d.uploader.UploadArtifact(ctx, target, art); err != nil {
			log.Warn("download: artifact upload failed", zap.String("path", path), zap.Error(err))
		}
	}
	return art, false
}

// ResolvePDF finds the PDF for a record: its own PDF link, a detail link
// that is itself a PDF, or the PDF embedded in or linked from the detail
// page.
func (d *Downloader) ResolvePDF(ctx context.Context, rec model.Record) (string, error) {
	if rec.PDFURL != "" {
		return rec.PDFURL, nil
	}
	if rec.DetailURL == "" {
		return "", eris.New("download: record has no pdf or detail url")
	}
	if isPDF(rec.DetailURL) {
		return rec.DetailURL, nil
	}

	resp, err := d.fetcher.Fetch(ctx, rec.DetailURL)
	if err != nil {
		return "", eris.Wrap(err, "download: fetch detail page")
	}
	if resp.MediaType() == "application/pdf" {
		return rec.DetailURL, nil
	}
	base := resp.URL
	if base == "" {
		base = rec.DetailURL
	}
	pdf, ok := PDFFromDetailPage(string(resp.Body), base)
	if !ok {
		return "", eris.Errorf("download: no pdf on detail page %s", rec.DetailURL)
	}
	return pdf, nil
}

// PDFFromDetailPage extracts the PDF behind a detail page. A viewer iframe
// carrying the document in its file= parameter wins over a plain .pdf link.
func PDFFromDetailPage(body, base string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}

	var found string
	doc.Find(`iframe[src*="file="]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := resolve(base, s.AttrOr("src", ""))
		u, err := url.Parse(src)
		if err != nil {
			return true
		}
		if file := u.Query().Get("file"); file != "" {
			found = resolve(src, file)
			return false
		}
		return true
	})
	if found != "" {
		return found, true
	}

	if href, ok := doc.Find(`a[href$=".pdf"], a[href$=".PDF"]`).First().Attr("href"); ok {
		return resolve(base, href), true
	}
	return "", false
}

// Path returns base/<category>/<subfolder>/<YYYY>/<Month>/<YYYY-MM-DD>_<title>.pdf.
// The issue date keeps same-titled records of one month apart; undated
// records use the title alone.
func Path(base string, target model.Target, rec model.Record) string {
	parts := []string{base, SafeName(target.Category)}
	if target.Subfolder != "" {
		parts = append(parts, SafeName(target.Subfolder))
	}
	stem := SafeName(rec.Title)
	if !rec.IssueDate.IsZero() {
		parts = append(parts, rec.IssueDate.Format("2006"), rec.IssueDate.Format("January"))
		stem = rec.IssueDate.String() + "_" + stem
	}
	parts = append(parts, stem+".pdf")
	return filepath.Join(parts...)
}

// SafeName makes s usable as a single path element on any common
// filesystem. Whitespace runs collapse to one space before other unsafe
// characters become underscores.
func SafeName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = unsafeChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, " ._")
	if r := []rune(s); len(r) > maxFileStem {
		s = strings.TrimRight(string(r[:maxFileStem]), " ._")
	}
	if s == "" {
		return "untitled"
	}
	return s
}

func isPDF(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

func resolve(base, ref string) string {
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return r.String()
	}
	return b.ResolveReference(r).String()
}
