package handler

import (
	"flighttracker/internal/flight/eventlog"
	"flighttracker/internal/flight/models"
	"flighttracker/internal/flight/service"
)

// AppendResponse is the HTTP response for POST /flights.
type AppendResponse struct {
	ID           string `json:"id"`
	PartitionKey string `json:"partition_key"`
}

// QueryResponse is the HTTP response for GET /flights.
type QueryResponse struct {
	Records []models.Flight `json:"records"`
	Skipped int             `json:"skipped"`
	Matched int             `json:"matched"`
}

// StatsResponse is the HTTP response for GET /flights/stats.
type StatsResponse struct {
	ByStatus map[string]int `json:"by_status"`
	Total    int            `json:"total"`
	Skipped  int            `json:"skipped"`
}

// FromQueryResult converts a query result to an HTTP response.
func FromQueryResult(res *eventlog.QueryResult) *QueryResponse {
	records := res.Flights
	if records == nil {
		records = []models.Flight{}
	}
	return &QueryResponse{Records: records, Skipped: res.Skipped, Matched: res.Matched}
}

// FromStats converts service stats to an HTTP response.
func FromStats(stats *service.Stats) *StatsResponse {
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, n := range stats.ByStatus {
		byStatus[string(status)] = n
	}
	return &StatsResponse{ByStatus: byStatus, Total: stats.Total, Skipped: stats.Skipped}
}
