package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique harvest run ID with the "run_" prefix
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewObjectID generates a unique harvest object ID with the "obj_" prefix
// Format: obj_<uuid>
func NewObjectID() string {
	return "obj_" + uuid.New().String()
}
