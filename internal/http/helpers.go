package http

import (
	"net/http"
	"strings"

	"tradedash/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sectionErrorStatus maps a failed section to a status code. Bad data in
// the dataset is 422; anything else is a server fault.
func sectionErrorStatus(err error) int {
	if core.IsDataTypeError(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
