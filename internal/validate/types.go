// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"github.com/rs/zerolog"
)

// Accepted values for enumerated settings.
var (
	LogFormats     = []string{"console", "json"}
	TraceExporters = []string{"grpc", "http"}
)

// LogLevel accepts the zerolog level names from trace through error.
func (v *Validator) LogLevel(field, value string) {
	lvl, err := zerolog.ParseLevel(value)
	if err != nil || value == "" || lvl < zerolog.TraceLevel || lvl > zerolog.ErrorLevel {
		v.AddError(field, "invalid log level (must be: trace, debug, info, warn, error)", value)
	}
}
