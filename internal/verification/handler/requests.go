package handler

import (
	"strings"

	dErrors "worklink/pkg/domain-errors"
)

// DecideRequest is the JSON body for approve and deny. Notes are optional on
// approve; deny enforces them at the service layer so the rule holds for
// every caller.
type DecideRequest struct {
	Notes string `json:"notes"`
}

// Validate trims the notes and accepts the body as-is.
func (r *DecideRequest) Validate() error {
	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > maxNotesLen {
		return dErrors.Newf(dErrors.CodeValidation, "notes must be at most %d characters", maxNotesLen)
	}
	return nil
}

const maxNotesLen = 2000
