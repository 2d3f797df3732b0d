package trigger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// fieldCount is the number of segments in an expression with seconds.
const fieldCount = 6

// ErrMalformedExpression is returned when an expression is not a time-of-day trigger.
var ErrMalformedExpression = errors.New("malformed trigger expression")

// Encode renders the time of day as "sec min hour * * *".
func Encode(c domain.ClockTime) string {
	return fmt.Sprintf("%d %d %d * * *", c.Second, c.Minute, c.Hour)
}

// Decode parses an expression produced by Encode back into a time of day.
func Decode(expr string) (domain.ClockTime, error) {
	fields := strings.Fields(expr)
	if len(fields) != fieldCount {
		return domain.ClockTime{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedExpression, fieldCount, len(fields))
	}

	for _, f := range fields[3:] {
		if f != "*" {
			return domain.ClockTime{}, fmt.Errorf("%w: calendar fields must be wildcards", ErrMalformedExpression)
		}
	}

	values := make([]int, 3)

	for i, f := range fields[:3] {
		v, err := strconv.Atoi(f)
		if err != nil {
			return domain.ClockTime{}, fmt.Errorf("%w: field %q: %w", ErrMalformedExpression, f, err)
		}

		values[i] = v
	}

	clock := domain.ClockTime{
		Second: values[0],
		Minute: values[1],
		Hour:   values[2],
	}

	if err := clock.Validate(); err != nil {
		return domain.ClockTime{}, fmt.Errorf("%w: %w", ErrMalformedExpression, err)
	}

	return clock, nil
}

// Next returns the first occurrence of expr strictly after the reference time.
func Next(expr string, after time.Time) (time.Time, error) {
	if !gronx.IsValid(expr) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedExpression, expr)
	}

	next, err := gronx.NextTickAfter(expr, after, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("next occurrence of %q: %w", expr, err)
	}

	return next, nil
}
