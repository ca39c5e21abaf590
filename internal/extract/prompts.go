package extract

import (
	"fmt"
	"strings"
)

const systemPrompt = `You extract regulatory announcements (circulars, notifications, orders, press releases) from government and regulator websites.

Return JSON only, in exactly this shape:
{"announcements":[{"title":"...","issue_date":"YYYY-MM-DD","confidence":0.0,"detail_url":"...","pdf_url":"..."}]}

Rules:
- One entry per announcement listed on the page. Skip navigation, menus, footers and pagination.
- title is the full announcement title as displayed, on one line.
- issue_date is the date the announcement was issued, normalised to YYYY-MM-DD.
- confidence is your certainty between 0 and 1 that the entry is a real announcement with the correct date.
- detail_url is the link the title points to, exactly as written in the page. Omit it when there is none.
- pdf_url is set only when the link points directly at a PDF file.
- If the page lists no announcements return {"announcements":[]}.`

const refinedHints = `A previous pass over this page found nothing. Look again and keep in mind:
- The date may only appear inside the link URL or file name (for example /2024/03/ or _20240315).
- The date may sit in a separate cell or element next to the title rather than inside it.
- Titles may wrap across several lines or elements; join them into one.
- Dates are commonly day-first: DD/MM/YYYY, DD-MM-YYYY or DD-Mon-YYYY (15-Mar-2024 is 2024-03-15).
- Tables without headers and plain lists of links both count.`

// pagePrompt builds the user message for a cleaned HTML listing.
func pagePrompt(pageURL, category, cleaned string, refined bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page: %s\n", pageURL)
	if category != "" {
		fmt.Fprintf(&b, "Category: %s\n", category)
	}
	if refined {
		b.WriteString("\n")
		b.WriteString(refinedHints)
		b.WriteString("\n")
	}
	b.WriteString("\nExtract every announcement from this HTML:\n\n")
	b.WriteString(cleaned)
	return b.String()
}

// visionPrompt builds the user message sent alongside a screenshot.
func visionPrompt(pageURL, category string, refined bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The image is a screenshot of %s", pageURL)
	if category != "" {
		fmt.Fprintf(&b, " (category: %s)", category)
	}
	b.WriteString(".\nRead the announcements visible in the screenshot. Links are not visible, so leave detail_url and pdf_url empty.")
	b.WriteString(" Lower your confidence for any date you cannot read clearly.")
	if refined {
		b.WriteString("\n\n")
		b.WriteString(refinedHints)
	}
	return b.String()
}
