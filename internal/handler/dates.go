package handler

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/gin-gonic/gin"
)

const (
	dateOnly     = "2006-01-02"
	dateTimeNoTZ = "2006-01-02T15:04:05"
)

// Reads startDate and endDate, either flat or nested under
// filterCreationDateRange[...]. A date without a time makes endDate cover
// that whole day.
func parseDateRange(c *gin.Context) (repository.DateRange, error) {
	nested := c.QueryMap("filterCreationDateRange")

	start := c.Query("startDate")
	if start == "" {
		start = nested["startDate"]
	}
	end := c.Query("endDate")
	if end == "" {
		end = nested["endDate"]
	}

	var r repository.DateRange
	if start != "" {
		from, _, err := parseDate(start)
		if err != nil {
			return r, errors.New("startDate must be a valid date")
		}
		r.From = &from
	}
	if end != "" {
		to, dayOnly, err := parseDate(end)
		if err != nil {
			return r, errors.New("endDate must be a valid date")
		}
		if dayOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		r.To = &to
	}
	return r, nil
}

// Accepts RFC3339, a date-time without offset (read as UTC), a plain date or
// a unix timestamp
func parseDate(value string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse(dateTimeNoTZ, value); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse(dateOnly, value); err == nil {
		return t, true, nil
	}
	if ts, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(ts, 0).UTC(), false, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date: %q", value)
}
