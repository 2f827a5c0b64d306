// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldSessionID = "session_id"
	FieldComponent = "component"
	FieldEvent     = "event"

	// Stream fields
	FieldTrack         = "track"
	FieldSegment       = "segment"
	FieldDiscontinuity = "discontinuity"
	FieldMediaSequence = "media_sequence"
	FieldFormat        = "format"
	FieldBandwidth     = "bandwidth"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath = "path"
	FieldURL  = "url"

	// Process fields
	FieldTool     = "tool"
	FieldExitCode = "exit_code"
)
