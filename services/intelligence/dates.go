package ai

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"harold/models"
)

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dayFirstDateRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	dayMonthRe     = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\.?,?\s+(\d{4})\b`)
	monthDayRe     = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	relativeDateRe = regexp.MustCompile(`(?i)\b(day after tomorrow|tomorrow|today|tonight)\b`)
)

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

type dateHit struct {
	start, end int
	value      string
}

func lookupMonth(name string) (time.Month, bool) {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0, false
	}
	m, ok := monthNumbers[name[:3]]
	return m, ok
}

// calendarDate renders y-m-d canonically, or returns raw when the day does not exist.
func calendarDate(raw string, y int, m time.Month, d int) string {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != m || t.Day() != d {
		return raw
	}
	return t.Format(models.DateLayout)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// findDates returns every date mention in text in reading order. Mentions that
// look like dates but name no real day keep their raw text.
func findDates(text string, today time.Time) []dateHit {
	var hits []dateHit
	add := func(re *regexp.Regexp, build func(raw string, groups []string) string) {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			groups := make([]string, 0, len(idx)/2)
			for i := 0; i < len(idx); i += 2 {
				if idx[i] < 0 {
					groups = append(groups, "")
					continue
				}
				groups = append(groups, text[idx[i]:idx[i+1]])
			}
			hits = append(hits, dateHit{start: idx[0], end: idx[1], value: build(groups[0], groups)})
		}
	}

	add(isoDateRe, func(raw string, g []string) string {
		return calendarDate(raw, atoi(g[1]), time.Month(atoi(g[2])), atoi(g[3]))
	})
	add(dayFirstDateRe, func(raw string, g []string) string {
		return calendarDate(raw, atoi(g[3]), time.Month(atoi(g[2])), atoi(g[1]))
	})
	add(dayMonthRe, func(raw string, g []string) string {
		m, ok := lookupMonth(g[2])
		if !ok {
			return raw
		}
		return calendarDate(raw, atoi(g[3]), m, atoi(g[1]))
	})
	add(monthDayRe, func(raw string, g []string) string {
		m, ok := lookupMonth(g[1])
		if !ok {
			return raw
		}
		return calendarDate(raw, atoi(g[3]), m, atoi(g[2]))
	})
	add(relativeDateRe, func(raw string, g []string) string {
		switch strings.ToLower(g[1]) {
		case "tomorrow":
			return today.AddDate(0, 0, 1).Format(models.DateLayout)
		case "day after tomorrow":
			return today.AddDate(0, 0, 2).Format(models.DateLayout)
		default:
			return today.Format(models.DateLayout)
		}
	})

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return hits[i].end > hits[j].end
	})
	// Drop mentions nested inside an earlier, longer one.
	out := hits[:0]
	lastEnd := -1
	for _, h := range hits {
		if h.start < lastEnd {
			continue
		}
		out = append(out, h)
		lastEnd = h.end
	}
	return out
}

var looseDateLayouts = []string{
	models.DateLayout,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 January 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
}

// NormalizeDate converts a single date string to YYYY-MM-DD. Unrecognized input
// is returned trimmed but otherwise unchanged.
func NormalizeDate(s string, today time.Time) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range looseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.DateLayout)
		}
	}
	if hits := findDates(s, today); len(hits) > 0 {
		return hits[0].value
	}
	return s
}
