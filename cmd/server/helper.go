package main

import (
	"net/http"
	"strconv"
)

// Query parameter helpers shared by the market handlers.

// queryInt parses an integer query parameter or returns the default.
func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// queryFloat parses a float query parameter or returns the default.
func queryFloat(r *http.Request, key string, defaultValue float64) float64 {
	if value := r.URL.Query().Get(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
