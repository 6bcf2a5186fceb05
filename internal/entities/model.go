package entities

import (
	"errors"
	"fmt"
	"strings"

	"github.com/youruser/distintivos/internal/overlay"
)

var ErrInvalidRecord = errors.New("invalid record")

// Record is one row of batch input.
type Record struct {
	// Row is the 1-based file line the record starts on (sheet row for XLSX).
	Row           int           `json:"row"`
	Name          string        `json:"name"`
	LogoReference string        `json:"logo_reference"`
	InfoPayload   string        `json:"info_payload,omitempty"`
	Override      *overlay.Rect `json:"override,omitempty"`

	// overrideErr keeps a malformed coordinate override so the record is
	// rejected instead of silently using the template box.
	overrideErr error
}

// Validate rejects records that must never reach the file system.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.LogoReference) == "" {
		return fmt.Errorf("%w: logo reference is empty", ErrInvalidRecord)
	}
	if r.Name == "." || r.Name == ".." || strings.ContainsAny(r.Name, `/\`) || strings.ContainsRune(r.Name, 0) {
		return fmt.Errorf("%w: name %q is not usable as a file name", ErrInvalidRecord, r.Name)
	}
	if r.overrideErr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, r.overrideErr)
	}
	if r.Override != nil {
		if err := r.Override.Validate(); err != nil {
			return fmt.Errorf("%w: override box: %v", ErrInvalidRecord, err)
		}
	}
	return nil
}
