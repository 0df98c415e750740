package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeString строка не в формате HH:MM (00:00-23:59)
var ErrInvalidTimeString = errors.New("invalid time string format")

const timeLayout = "15:04"

// TimeString время суток в формате HH:MM без даты и часового пояса.
type TimeString string

// NewTimeStringFromString разбирает и нормализует строку HH:MM (допускается HH:MM:SS).
func NewTimeStringFromString(s string) (TimeString, error) {
	for _, layout := range []string{timeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimeString(t), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeString, s)
}

// NewTimeString берёт часы и минуты из t.
func NewTimeString(t time.Time) TimeString {
	return TimeString(t.Format(timeLayout))
}

// FromMinutes строит время из количества минут от полуночи.
func FromMinutes(minutes int) (TimeString, error) {
	if minutes < 0 || minutes >= 24*60 {
		return "", fmt.Errorf("%w: %d minutes is out of day range", ErrInvalidTimeString, minutes)
	}
	return TimeString(fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)), nil
}

func (t TimeString) String() string { return string(t) }

func (t TimeString) IsZero() bool { return t == "" }

// Validate проверяет формат HH:MM.
func (t TimeString) Validate() error {
	if _, err := time.Parse(timeLayout, string(t)); err != nil || len(t) != len(timeLayout) {
		return fmt.Errorf("%w: %q", ErrInvalidTimeString, string(t))
	}
	return nil
}

// Minutes количество минут от полуночи. Для невалидного значения -1.
func (t TimeString) Minutes() int {
	parsed, err := time.Parse(timeLayout, string(t))
	if err != nil {
		return -1
	}
	return parsed.Hour()*60 + parsed.Minute()
}

// AddMinutes сдвигает время; результат не может выйти за пределы суток.
func (t TimeString) AddMinutes(n int) (TimeString, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	return FromMinutes(t.Minutes() + n)
}

// Sub разница t - other в минутах.
func (t TimeString) Sub(other TimeString) int {
	return t.Minutes() - other.Minutes()
}

func (t TimeString) IsBefore(other TimeString) bool { return t.Minutes() < other.Minutes() }

func (t TimeString) IsAfter(other TimeString) bool { return t.Minutes() > other.Minutes() }

// On возвращает момент времени t в день date в часовом поясе loc.
func (t TimeString) On(date time.Time, loc *time.Location) time.Time {
	m := t.Minutes()
	y, mo, d := date.Date()
	return time.Date(y, mo, d, m/60, m%60, 0, 0, loc)
}

// Scan поддерживает TIME из postgres (lib/pq отдаёт time.Time) и текстовые значения.
func (t *TimeString) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = ""
		return nil
	case time.Time:
		*t = NewTimeString(v)
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidTimeString, src)
	}
}

func (t *TimeString) scanString(s string) error {
	parsed, err := NewTimeStringFromString(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value пишет время как строку HH:MM, postgres приводит её к TIME.
func (t TimeString) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return string(t), nil
}
