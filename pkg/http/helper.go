package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Maghvendra09/appointment-booking/pkg/config"
	apperrors "github.com/Maghvendra09/appointment-booking/pkg/errors"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractTimeRange reads the mandatory from/to query parameters. Both RFC3339
// timestamps and plain dates (YYYY-MM-DD) are accepted; a plain "to" date
// covers the whole day.
func ExtractTimeRange(r *http.Request) (time.Time, time.Time, error) {
	query := r.URL.Query()
	fromStr, toStr := query.Get("from"), query.Get("to")

	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, apperrors.New(
			apperrors.CodeMissingDates,
			"Both 'from' and 'to' dates are required",
			http.StatusBadRequest,
		)
	}

	from, _, err := parseTime(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("invalid 'from' parameter, must be RFC3339 or YYYY-MM-DD")
	}
	to, dateOnly, err := parseTime(toStr)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("invalid 'to' parameter, must be RFC3339 or YYYY-MM-DD")
	}
	if dateOnly {
		to = to.Add(24*time.Hour - time.Millisecond)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("'to' must not be before 'from'")
	}

	return from, to, nil
}

func parseTime(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}
