package extract

import (
	"strings"
	"time"

	"github.com/sells-group/circulars-cli/internal/model"
)

// dateLayouts are tried in order. Day-first numeric forms come before any
// month-first form because listing sites in this domain are day-first.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2-1-2006",
	"2/1/2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2 January 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"Jan 02, 2006",
	"Jan 2, 2006",
	"January 02, 2006",
	"January 2, 2006",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
}

// ParseDate parses a calendar date in any of the accepted layouts.
func ParseDate(s string) (model.Date, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return model.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), true
		}
	}
	return model.Date{}, false
}
