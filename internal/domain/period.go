package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// period is an ISO-8601 duration such as P1D, PT6H or P1Y2M3DT4H5M6.5S.
// Calendar fields are applied with AddDate so months and years keep their
// calendar length.
type period struct {
	years, months, days int
	clock               time.Duration
}

func parsePeriod(value string) (period, error) {
	rest, ok := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(value)), "P")
	if !ok || rest == "" {
		return period{}, fmt.Errorf("unsupported period %q", value)
	}
	var p period
	inTime := false
	seen := false
	for rest != "" {
		if rest[0] == 'T' {
			if inTime || len(rest) == 1 {
				return period{}, fmt.Errorf("unsupported period %q", value)
			}
			inTime = true
			rest = rest[1:]
			continue
		}
		end := strings.IndexFunc(rest, func(r rune) bool {
			return (r < '0' || r > '9') && r != '.'
		})
		if end <= 0 {
			return period{}, fmt.Errorf("unsupported period %q", value)
		}
		number, unit := rest[:end], rest[end]
		rest = rest[end+1:]
		seen = true

		if inTime {
			n, err := strconv.ParseFloat(number, 64)
			if err != nil {
				return period{}, fmt.Errorf("unsupported period %q", value)
			}
			switch unit {
			case 'H':
				p.clock += time.Duration(n * float64(time.Hour))
			case 'M':
				p.clock += time.Duration(n * float64(time.Minute))
			case 'S':
				p.clock += time.Duration(n * float64(time.Second))
			default:
				return period{}, fmt.Errorf("unsupported period %q", value)
			}
			continue
		}

		n, err := strconv.Atoi(number)
		if err != nil {
			return period{}, fmt.Errorf("unsupported period %q", value)
		}
		switch unit {
		case 'Y':
			p.years += n
		case 'M':
			p.months += n
		case 'W':
			p.days += 7 * n
		case 'D':
			p.days += n
		default:
			return period{}, fmt.Errorf("unsupported period %q", value)
		}
	}
	if !seen {
		return period{}, fmt.Errorf("unsupported period %q", value)
	}
	return p, nil
}

func (p period) addTo(t time.Time) time.Time {
	return t.AddDate(p.years, p.months, p.days).Add(p.clock)
}

func (p period) subtractFrom(t time.Time) time.Time {
	return t.AddDate(-p.years, -p.months, -p.days).Add(-p.clock)
}

func isPeriod(value string) bool {
	value = strings.TrimSpace(value)
	return len(value) > 0 && (value[0] == 'P' || value[0] == 'p')
}
