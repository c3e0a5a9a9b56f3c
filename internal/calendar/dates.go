package calendar

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	KeyLayout   = "2006-01-02"
	clockLayout = "15:04"
)

var dmyRx = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{4})$`)

var weekdays = [...]string{"Pazar", "Pazartesi", "Salı", "Çarşamba", "Perşembe", "Cuma", "Cumartesi"}

var months = [...]string{"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık"}

// DateKey formats t as YYYY-MM-DD in its own location.
func DateKey(t time.Time) string {
	return t.Format(KeyLayout)
}

// ParseKey parses a YYYY-MM-DD key as midnight in loc.
func ParseKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(KeyLayout, strings.TrimSpace(key), loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "bad date key %q", key)
	}
	return t, nil
}

// ParseDMY parses "D.M.YYYY" (separators . / -) into midnight of that day.
// Day/month combinations that do not exist (31.02.2025) are rejected.
func ParseDMY(text string, loc *time.Location) (time.Time, bool) {
	m := dmyRx.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return time.Time{}, false
	}
	d, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
	if t.Day() != d || int(t.Month()) != mo || t.Year() != y {
		return time.Time{}, false
	}
	return t, true
}

// Instant combines a date key and an HH:MM wall clock into a point in time.
func Instant(date, hm string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(KeyLayout+" "+clockLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(hm), loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "bad date/time %q %q", date, hm)
	}
	return t, nil
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekBounds returns Monday and Sunday of the week containing t.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	day := StartOfDay(t)
	offset := int(day.Weekday()) - 1
	if offset < 0 {
		offset = 6 // Sunday
	}
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

func WeekdayName(t time.Time) string {
	return weekdays[t.Weekday()]
}

func MonthName(m time.Month) string {
	return months[m-1]
}

// FormatDMY renders 05.03.2025.
func FormatDMY(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatLong renders "5 Mart Çarşamba".
func FormatLong(t time.Time) string {
	return strconv.Itoa(t.Day()) + " " + MonthName(t.Month()) + " " + WeekdayName(t)
}

// FormatShort renders "5 Mar Çarşamba".
func FormatShort(t time.Time) string {
	month := []rune(MonthName(t.Month()))
	if len(month) > 3 {
		month = month[:3]
	}
	return strconv.Itoa(t.Day()) + " " + string(month) + " " + WeekdayName(t)
}

// FormatDayMonth renders "5 Mart".
func FormatDayMonth(t time.Time) string {
	return strconv.Itoa(t.Day()) + " " + MonthName(t.Month())
}
