package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a prefixed random ID such as "report_3f2a...".
func GenerateID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// GenerateReportID generates a unique health report ID
func GenerateReportID() string {
	return GenerateID("report")
}

// GenerateAlertID generates a unique alert ID
func GenerateAlertID() string {
	return GenerateID("alert")
}

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return GenerateID("req")
}
