package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// DefaultMaxHTMLChars caps the markup sent to the model.
const DefaultMaxHTMLChars = 60000

var (
	blankLines = regexp.MustCompile(`\n\s*\n+`)
	runSpaces  = regexp.MustCompile(`[ \t]+`)
)

// CleanHTML reduces a listing page to the fragment that carries the
// announcement list. The circulars table (table#sample_1) wins, then the
// first table with a.points links, then the whole body. Scripts, styles,
// images and comments are dropped and the result is cut at maxChars.
func CleanHTML(raw string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxHTMLChars
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", eris.Wrap(err, "extract: parse html")
	}

	doc.Find("script, style, noscript, img, svg, link, meta").Remove()
	removeComments(doc.Selection)

	sel := pickListing(doc)
	out, err := goquery.OuterHtml(sel)
	if err != nil {
		return "", eris.Wrap(err, "extract: render html")
	}

	out = runSpaces.ReplaceAllString(out, " ")
	out = blankLines.ReplaceAllString(out, "\n")
	out = strings.TrimSpace(out)
	if len(out) > maxChars {
		out = truncateUTF8(out, maxChars)
	}
	return out, nil
}

func pickListing(doc *goquery.Document) *goquery.Selection {
	if t := doc.Find("table#sample_1").First(); t.Length() > 0 {
		return t
	}
	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Find("a.points").Length() > 0 {
			table = s
			return false
		}
		return true
	})
	if table != nil {
		return table
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

func removeComments(s *goquery.Selection) {
	for _, n := range s.Nodes {
		stripComments(n)
	}
}

func stripComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			stripComments(c)
		}
		c = next
	}
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	for n > 0 && n < len(s) && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
