package controlplane

import "errors"

// Sentinel errors for control plane operations. A blocked routing decision
// is not an error; it is a normal policy outcome carried in the Decision.
var (
	ErrUnknownCapability = errors.New("unknown capability")
	ErrBackendNotFound   = errors.New("no backend for server")
)
