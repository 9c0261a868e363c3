package validation

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
)

var (
	// ReportIDRegex matches generated report ids and hand-picked ones
	ReportIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// AlertKeyRegex matches kebab-case alert keys
	AlertKeyRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

const (
	maxReportIDLength = 100
	maxAlertKeyLength = 64
	// MaxBitrate is the highest manual bitrate accepted, in kbps
	MaxBitrate = 100000
)

// ValidateReportID validates a stored report id
func ValidateReportID(id string) error {
	if id == "" {
		return fmt.Errorf("report id is required")
	}
	if len(id) > maxReportIDLength {
		return fmt.Errorf("report id is too long (max %d characters)", maxReportIDLength)
	}
	if !ReportIDRegex.MatchString(id) {
		return fmt.Errorf("invalid report id format")
	}
	return nil
}

// ValidateAlertKey checks the key format only. Well-formed keys that match no
// alert are accepted.
func ValidateAlertKey(key string) error {
	if key == "" {
		return fmt.Errorf("alert key is required")
	}
	if len(key) > maxAlertKeyLength {
		return fmt.Errorf("alert key is too long (max %d characters)", maxAlertKeyLength)
	}
	if !AlertKeyRegex.MatchString(key) {
		return fmt.Errorf("invalid alert key format")
	}
	return nil
}

// ValidateBitrate validates a manual bitrate in kbps
func ValidateBitrate(kbps float64) error {
	if math.IsNaN(kbps) || math.IsInf(kbps, 0) {
		return fmt.Errorf("bitrate must be a finite number")
	}
	if kbps <= 0 {
		return fmt.Errorf("bitrate must be positive")
	}
	if kbps > MaxBitrate {
		return fmt.Errorf("bitrate is too high (max %d kbps)", MaxBitrate)
	}
	return nil
}

// ParseLimit parses a list limit query value. Empty input yields 0.
func ParseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return n, nil
}

// ValidateServerURL validates a streampulse base URL
func ValidateServerURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme (must be http or https)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
