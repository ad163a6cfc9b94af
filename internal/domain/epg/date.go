package epg

import "time"

const dateLayout = "2006-01-02"

// ParseDate turns the raw date parameter into YYYY-MM-DD. Non digits are
// dropped; fewer than eight digits or an impossible calendar date yield today.
func ParseDate(raw string, now time.Time, loc *time.Location) string {
	digits := make([]rune, 0, len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	today := now.In(loc).Format(dateLayout)
	if len(digits) < 8 {
		return today
	}
	t, err := time.ParseInLocation("20060102", string(digits[:8]), loc)
	if err != nil {
		return today
	}
	return t.Format(dateLayout)
}
