package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Error describes why an input could not be resolved to an instant.
type Error struct {
	Input  string
	Reason string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Input == "" {
		return e.Reason
	}
	return fmt.Sprintf("could not understand %q: %s", e.Input, e.Reason)
}

func newError(input, format string, args ...any) *Error {
	return &Error{Input: input, Reason: fmt.Sprintf(format, args...)}
}

// Layouts accepted verbatim before the phrase grammar is tried.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var (
	reClock    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)?$`)
	reOrdinal  = regexp.MustCompile(`^(\d{1,2})(st|nd|rd|th)$`)
	reSlash    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{2}|\d{4}))?$`)
	reISODate  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	reYear     = regexp.MustCompile(`^\d{4}$`)
	reRelative = regexp.MustCompile(`^in (half an|\S+) (minutes?|mins?|hours?|hrs?)$`)
)

var fillers = map[string]bool{
	"on": true, "at": true, "the": true, "of": true, "around": true, "about": true,
	"o'clock": true, "oclock": true, "please": true, "for": true, "starting": true,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"fifteen": 15, "twenty": 20, "thirty": 30, "forty-five": 45,
}

// Parse resolves input to an instant in loc, relative to now. The grammar is
// documented in the package comment. The result is never in a different zone
// than loc and has zero seconds unless an absolute timestamp supplied them.
func Parse(input string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	raw := strings.TrimSpace(input)
	if raw == "" {
		return time.Time{}, &Error{Reason: "no date or time given"}
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}

	text := normalize(raw)
	if text == "" {
		return time.Time{}, newError(raw, "no date or time given")
	}

	if m := reRelative.FindStringSubmatch(stripFillers(text)); m != nil {
		return relative(raw, m[1], m[2], now)
	}

	p := &phrase{input: raw, tokens: strings.Fields(text), now: now, loc: loc}
	if err := p.scan(); err != nil {
		return time.Time{}, err
	}
	return p.resolve()
}

// normalize lower-cases and strips punctuation that speech-to-text adds.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(
		"a.m.", "am", "p.m.", "pm",
		"a.m", "am", "p.m", "pm",
		",", " ", "@", " at ", ";", " ",
	).Replace(s)
	s = strings.TrimRight(strings.TrimSpace(s), ".!?")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "day after tomorrow", "overmorrow")
	s = strings.ReplaceAll(s, "forty five", "forty-five")
	return s
}

// stripFillers drops filler words so "in 2 hours please" reads as "in 2 hours".
func stripFillers(text string) string {
	kept := make([]string, 0, 4)
	for _, tok := range strings.Fields(text) {
		if !fillers[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// relative resolves "in <count> <unit>". The count must be positive; an
// unknown or zero count is an error rather than now.
func relative(input, amount, unit string, now time.Time) (time.Time, error) {
	if amount == "half an" {
		return now.Add(30 * time.Minute).Truncate(time.Minute), nil
	}
	n, ok := parseCount(amount)
	if !ok || n <= 0 {
		return time.Time{}, newError(input, "unknown amount %q in relative time", amount)
	}
	d := time.Duration(n) * time.Minute
	if strings.HasPrefix(unit, "h") {
		d = time.Duration(n) * time.Hour
	}
	return now.Add(d).Truncate(time.Minute), nil
}

type meridiem int

const (
	meridiemNone meridiem = iota
	meridiemAM
	meridiemPM
)

type clock struct {
	hour   int
	minute int
	suffix meridiem
	// explicit24 is set for forms like 17:00 or 0:30 that cannot be 12-hour.
	explicit24 bool
}

type phrase struct {
	input  string
	tokens []string
	now    time.Time
	loc    *time.Location

	date    *time.Time
	clock   *clock
	hint    meridiem
	tonight bool
	night   bool
}

func (p *phrase) today() time.Time {
	y, m, d := p.now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.loc)
}

func (p *phrase) setDate(t time.Time) error {
	if p.date != nil {
		if p.date.Equal(t) {
			return nil
		}
		return newError(p.input, "conflicting dates %s and %s", p.date.Format("Mon Jan 2"), t.Format("Mon Jan 2"))
	}
	p.date = &t
	return nil
}

func (p *phrase) setClock(c clock) error {
	if p.clock != nil {
		return newError(p.input, "more than one time given")
	}
	p.clock = &c
	return nil
}

func (p *phrase) peek(i int) string {
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	return ""
}

func (p *phrase) scan() error {
	for i := 0; i < len(p.tokens); i++ {
		tok := p.tokens[i]

		switch {
		case tok == "today":
			if err := p.setDate(p.today()); err != nil {
				return err
			}
		case tok == "tonight":
			if err := p.setDate(p.today()); err != nil {
				return err
			}
			p.tonight = true
		case tok == "tomorrow" || tok == "tmrw" || tok == "tomorrow's":
			if err := p.setDate(p.today().AddDate(0, 0, 1)); err != nil {
				return err
			}
		case tok == "overmorrow":
			if err := p.setDate(p.today().AddDate(0, 0, 2)); err != nil {
				return err
			}
		case tok == "noon" || tok == "midday":
			if err := p.setClock(clock{hour: 12, explicit24: true}); err != nil {
				return err
			}
		case tok == "midnight":
			if err := p.setClock(clock{hour: 0, explicit24: true}); err != nil {
				return err
			}
		case tok == "morning":
			p.hint = meridiemAM
		case tok == "afternoon" || tok == "evening":
			p.hint = meridiemPM
		case tok == "night":
			p.hint = meridiemPM
			p.night = true
		case tok == "am" || tok == "pm":
			// Only valid directly after a bare hour; handled there.
			return newError(p.input, "%q without an hour", tok)
		case tok == "in":
			n, err := p.scanIn(i)
			if err != nil {
				return err
			}
			i = n
		case tok == "this" && isDayPart(p.peek(i+1)):
			if err := p.setDate(p.today()); err != nil {
				return err
			}
		case tok == "next" || tok == "this" || tok == "coming":
			wd, ok := weekdays[p.peek(i+1)]
			if !ok {
				return newError(p.input, "expected a weekday after %q", tok)
			}
			if err := p.setDate(p.weekday(wd, tok == "next")); err != nil {
				return err
			}
			i++
		case fillers[tok]:
			continue
		default:
			n, err := p.scanValue(i)
			if err != nil {
				return err
			}
			i = n
		}
	}
	return nil
}

// scanIn handles "in the morning" style qualifiers and "in 3 days".
func (p *phrase) scanIn(i int) (int, error) {
	next := p.peek(i + 1)
	if next == "the" {
		return i + 1, nil
	}

	n, ok := parseCount(next)
	if !ok {
		return i, newError(p.input, "unexpected %q after \"in\"", next)
	}
	switch p.peek(i + 2) {
	case "day", "days":
		return i + 2, p.setDate(p.today().AddDate(0, 0, n))
	case "week", "weeks":
		return i + 2, p.setDate(p.today().AddDate(0, 0, 7*n))
	}
	return i, newError(p.input, "unsupported relative phrase after \"in %s\"", next)
}

// scanValue handles weekdays, month names, numbers, clocks and dates.
func (p *phrase) scanValue(i int) (int, error) {
	tok := p.tokens[i]

	if wd, ok := weekdays[tok]; ok {
		return i, p.setDate(p.weekday(wd, false))
	}

	if mon, ok := months[tok]; ok {
		day, ok := parseDay(p.peek(i + 1))
		if !ok {
			return i, newError(p.input, "expected a day after %q", tok)
		}
		next := i + 1
		year := 0
		if reYear.MatchString(p.peek(next + 1)) {
			year, _ = strconv.Atoi(p.peek(next + 1))
			next++
		}
		d, err := p.monthDay(mon, day, year)
		if err != nil {
			return i, err
		}
		return next, p.setDate(d)
	}

	if m := reSlash.FindStringSubmatch(tok); m != nil {
		mon, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := 0
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		if mon < 1 || mon > 12 {
			return i, newError(p.input, "month %d out of range", mon)
		}
		d, err := p.monthDay(time.Month(mon), day, year)
		if err != nil {
			return i, err
		}
		return i, p.setDate(d)
	}

	if m := reISODate.FindStringSubmatch(tok); m != nil {
		year, _ := strconv.Atoi(m[1])
		mon, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if mon < 1 || mon > 12 {
			return i, newError(p.input, "month %d out of range", mon)
		}
		d, err := p.monthDay(time.Month(mon), day, year)
		if err != nil {
			return i, err
		}
		return i, p.setDate(d)
	}

	// A day number followed by a month: "11 june", "11th of june".
	if day, ok := parseDay(tok); ok {
		j := i + 1
		if p.peek(j) == "of" {
			j++
		}
		if mon, ok := months[p.peek(j)]; ok {
			year := 0
			if reYear.MatchString(p.peek(j + 1)) {
				year, _ = strconv.Atoi(p.peek(j + 1))
				j++
			}
			d, err := p.monthDay(mon, day, year)
			if err != nil {
				return i, err
			}
			return j, p.setDate(d)
		}
		if reOrdinal.MatchString(tok) {
			d, err := p.dayOfMonth(day)
			if err != nil {
				return i, err
			}
			return i, p.setDate(d)
		}
	}

	if c, ok := parseClock(tok); ok {
		next := i
		if c.suffix == meridiemNone && !c.explicit24 {
			switch p.peek(i + 1) {
			case "am":
				c.suffix = meridiemAM
				next++
			case "pm":
				c.suffix = meridiemPM
				next++
			}
		}
		if c.suffix != meridiemNone && (c.hour < 1 || c.hour > 12) {
			return i, newError(p.input, "hour %d cannot be combined with am/pm", c.hour)
		}
		return next, p.setClock(c)
	}

	return i, newError(p.input, "unknown word %q", tok)
}

func (p *phrase) weekday(wd time.Weekday, strictlyNext bool) time.Time {
	today := p.today()
	delta := (int(wd) - int(today.Weekday()) + 7) % 7
	if delta == 0 && strictlyNext {
		delta = 7
	}
	return today.AddDate(0, 0, delta)
}

// monthDay builds a date; without a year it picks the next such date on or
// after today.
func (p *phrase) monthDay(mon time.Month, day, year int) (time.Time, error) {
	explicitYear := year != 0
	if !explicitYear {
		year = p.now.Year()
	}
	d, err := p.validDate(year, mon, day)
	if err != nil {
		return time.Time{}, err
	}
	if !explicitYear && d.Before(p.today()) {
		return p.validDate(year+1, mon, day)
	}
	return d, nil
}

// dayOfMonth resolves "the 11th" to this month, or next month once passed.
func (p *phrase) dayOfMonth(day int) (time.Time, error) {
	y, m, _ := p.now.Date()
	d, err := p.validDate(y, m, day)
	if err == nil && !d.Before(p.today()) {
		return d, nil
	}
	first := time.Date(y, m, 1, 0, 0, 0, 0, p.loc).AddDate(0, 1, 0)
	return p.validDate(first.Year(), first.Month(), day)
}

func (p *phrase) validDate(year int, mon time.Month, day int) (time.Time, error) {
	d := time.Date(year, mon, day, 0, 0, 0, 0, p.loc)
	if d.Day() != day || d.Month() != mon {
		return time.Time{}, newError(p.input, "%s has no day %d", mon, day)
	}
	return d, nil
}

func (p *phrase) resolve() (time.Time, error) {
	if p.date == nil && p.clock == nil {
		return time.Time{}, newError(p.input, "no date or time given")
	}
	if p.clock == nil {
		return time.Time{}, newError(p.input, "no time of day given")
	}

	hint := p.hint
	if p.tonight && hint == meridiemNone {
		hint = meridiemPM
	}
	hour := p.clock.hour24(hint)

	// "12 at night" and "tonight at 12" mean the midnight that ends the day.
	rollover := 0
	if (p.night || p.tonight) && p.clock.hour == 12 && p.clock.suffix == meridiemNone && !p.clock.explicit24 {
		hour = 0
		rollover = 1
	}

	if p.date != nil {
		y, m, d := p.date.Date()
		return time.Date(y, m, d+rollover, hour, p.clock.minute, 0, 0, p.loc), nil
	}

	y, m, d := p.now.Date()
	candidate := time.Date(y, m, d, hour, p.clock.minute, 0, 0, p.loc)
	if !candidate.After(p.now) {
		candidate = time.Date(y, m, d+1, hour, p.clock.minute, 0, 0, p.loc)
	}
	return candidate, nil
}

// hour24 resolves the clock to a 0-23 hour. Ambiguous bare hours 1-7 are
// read as afternoon and 8-11 as morning, unless a qualifier says otherwise.
func (c clock) hour24(hint meridiem) int {
	h := c.hour
	if c.explicit24 {
		return h
	}

	suffix := c.suffix
	if suffix == meridiemNone {
		suffix = hint
	}

	switch suffix {
	case meridiemAM:
		if h == 12 {
			return 0
		}
		return h
	case meridiemPM:
		if h == 12 {
			return 12
		}
		return h + 12
	}

	if h >= 1 && h <= 7 {
		return h + 12
	}
	return h
}

func parseClock(tok string) (clock, bool) {
	if n, ok := numberWords[tok]; ok && n <= 12 && tok != "a" && tok != "an" {
		return clock{hour: n}, true
	}
	m := reClock.FindStringSubmatch(tok)
	if m == nil {
		return clock{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour > 23 || minute > 59 {
		return clock{}, false
	}

	c := clock{hour: hour, minute: minute}
	switch m[3] {
	case "am":
		c.suffix = meridiemAM
	case "pm":
		c.suffix = meridiemPM
	}
	if c.suffix == meridiemNone && (hour == 0 || hour > 12 || (m[2] != "" && strings.HasPrefix(m[1], "0"))) {
		c.explicit24 = true
	}
	return c, true
}

func isDayPart(tok string) bool {
	return tok == "morning" || tok == "afternoon" || tok == "evening"
}

func parseDay(tok string) (int, bool) {
	if m := reOrdinal.FindStringSubmatch(tok); m != nil {
		tok = m[1]
	}
	day, err := strconv.Atoi(tok)
	if err != nil || day < 1 || day > 31 {
		return 0, false
	}
	return day, true
}

func parseCount(tok string) (int, bool) {
	if n, err := strconv.Atoi(tok); err == nil && n > 0 {
		return n, true
	}
	n, ok := numberWords[tok]
	return n, ok && n > 0
}
