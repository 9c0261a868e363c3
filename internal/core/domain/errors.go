package domain

import "errors"

var (
	ErrInvalidInterval = errors.New("tick interval must be positive")
	ErrInvalidBitrate  = errors.New("bitrate must be positive")
	ErrReportNotFound  = errors.New("report not found")
)
