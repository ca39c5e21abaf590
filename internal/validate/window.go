package validate

import "github.com/sells-group/circulars-cli/internal/model"

// Window returns the scraping window for today. Weeks start on Monday. With
// weeksBack == 0 the window runs from this Monday through today, otherwise
// it is the full Monday-Sunday week weeksBack weeks before this one.
func Window(today model.Date, weeksBack int) model.DateWindow {
	offset := (int(today.Weekday()) + 6) % 7
	thisMonday := today.AddDays(-offset)
	if weeksBack <= 0 {
		return model.DateWindow{Start: thisMonday, End: today}
	}
	start := thisMonday.AddDays(-7 * weeksBack)
	return model.DateWindow{Start: start, End: start.AddDays(6)}
}
