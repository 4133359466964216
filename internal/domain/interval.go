package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// IntervalTimeFormat is the wire format of interval endpoints and segment identifiers.
const IntervalTimeFormat = "2006-01-02T15:04:05.000Z07:00"

var intervalParseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Interval is a half-open UTC time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) (Interval, error) {
	in := Interval{Start: start.UTC(), End: end.UTC()}
	if err := in.Validate(); err != nil {
		return Interval{}, err
	}
	return in, nil
}

// ParseInterval parses the ISO-8601 "start/end", "start/period" and
// "period/end" forms.
func ParseInterval(value string) (Interval, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Interval{}, errors.New("interval is empty")
	}
	startRaw, endRaw, ok := strings.Cut(value, "/")
	if !ok {
		return Interval{}, fmt.Errorf("interval %q must be of the form start/end", value)
	}
	if isPeriod(startRaw) && isPeriod(endRaw) {
		return Interval{}, fmt.Errorf("interval %q needs at least one timestamp", value)
	}

	if isPeriod(startRaw) {
		p, err := parsePeriod(startRaw)
		if err != nil {
			return Interval{}, fmt.Errorf("interval %q start: %w", value, err)
		}
		end, err := parseIntervalTime(endRaw)
		if err != nil {
			return Interval{}, fmt.Errorf("interval %q end: %w", value, err)
		}
		return NewInterval(p.subtractFrom(end), end)
	}

	start, err := parseIntervalTime(startRaw)
	if err != nil {
		return Interval{}, fmt.Errorf("interval %q start: %w", value, err)
	}
	if isPeriod(endRaw) {
		p, err := parsePeriod(endRaw)
		if err != nil {
			return Interval{}, fmt.Errorf("interval %q end: %w", value, err)
		}
		return NewInterval(start, p.addTo(start))
	}
	end, err := parseIntervalTime(endRaw)
	if err != nil {
		return Interval{}, fmt.Errorf("interval %q end: %w", value, err)
	}
	return NewInterval(start, end)
}

func MustParseInterval(value string) Interval {
	in, err := ParseInterval(value)
	if err != nil {
		panic(err)
	}
	return in
}

func parseIntervalTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range intervalParseLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", value)
}

func (in Interval) Validate() error {
	if in.Start.IsZero() && in.End.IsZero() {
		return errors.New("interval is required")
	}
	if in.Start.After(in.End) {
		return fmt.Errorf("interval start %s is after end %s", in.Start.Format(IntervalTimeFormat), in.End.Format(IntervalTimeFormat))
	}
	return nil
}

func (in Interval) IsZero() bool {
	return in.Start.IsZero() && in.End.IsZero()
}

// Overlaps reports whether the two half-open intervals share any instant.
func (in Interval) Overlaps(other Interval) bool {
	return in.Start.Before(other.End) && other.Start.Before(in.End)
}

func (in Interval) String() string {
	return in.Start.UTC().Format(IntervalTimeFormat) + "/" + in.End.UTC().Format(IntervalTimeFormat)
}

func (in Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(in.String())
}

func (in *Interval) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("interval must be a string: %w", err)
	}
	parsed, err := ParseInterval(raw)
	if err != nil {
		return err
	}
	*in = parsed
	return nil
}
