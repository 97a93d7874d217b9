package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"flighttracker/internal/flight/service"
	"flighttracker/pkg/domain"
	dErrors "flighttracker/pkg/domain-errors"
)

const dateOnly = "2006-01-02"

// ParseQueryRequest reads scope, status, from, to and limit query parameters.
func ParseQueryRequest(r *http.Request) (service.QueryRequest, error) {
	return ParseQueryValues(r.URL.Query())
}

// ParseQueryValues builds a query from string parameters. from and to accept
// RFC 3339 instants or YYYY-MM-DD dates; a to date covers the whole UTC day.
func ParseQueryValues(q url.Values) (service.QueryRequest, error) {
	var req service.QueryRequest

	if v := strings.TrimSpace(q.Get("scope")); v != "" {
		scope, err := domain.ParseScope(strings.ToLower(v))
		if err != nil {
			return req, err
		}
		req.Scope = scope
	}

	if v := strings.TrimSpace(q.Get("status")); v != "" {
		status, err := domain.ParseFlightStatus(strings.ToLower(v))
		if err != nil {
			return req, err
		}
		req.Status = status
	}

	from, err := parseBound("from", q.Get("from"), false)
	if err != nil {
		return req, err
	}
	to, err := parseBound("to", q.Get("to"), true)
	if err != nil {
		return req, err
	}
	req.From, req.To = from, to

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return req, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer")
		}
		req.Limit = limit
	}
	return req, nil
}

func parseBound(name, value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(dateOnly, value)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, name+" must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}
