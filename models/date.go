package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout - формат календарной даты в базе и в API
const DateLayout = "2006-01-02"

// Date - календарная дата без времени суток.
// В базу пишется строкой ГГГГ-ММ-ДД, поэтому сравнения одинаково работают в postgres и sqlite.
type Date struct {
	time.Time
}

// NewDate отбрасывает время суток и часовой пояс
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate разбирает дату ГГГГ-ММ-ДД
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Value() (driver.Value, error) {
	return d.Format(DateLayout), nil
}

func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v)
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("неподдерживаемый тип даты %T", value)
	}
	return nil
}

func (d *Date) parse(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
