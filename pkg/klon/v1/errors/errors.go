package errors

import (
	"errors"
	"fmt"
)

// --- KLON Core Error Types ---

// ConfigError represents an error encountered during the loading, parsing,
// or validation of the engine configuration or engine options.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that some input (e.g., config structure or
// schema version) failed validation checks.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// UncopyableError signifies that an object cannot be cloned: it has no
// override hook, no usable decomposition, and no generic field-copy path.
// It is distinct from generic failures so callers can branch on it.
type UncopyableError struct {
	TypeName string
}

func NewUncopyableError(typeName string) *UncopyableError {
	return &UncopyableError{TypeName: typeName}
}
func (e *UncopyableError) Error() string {
	return fmt.Sprintf("uncopyable object of type %s (no copy or reduce protocol)", e.TypeName)
}

// IsUncopyable checks if an error is an UncopyableError using errors.As.
func IsUncopyable(err error) bool {
	var ue *UncopyableError
	return errors.As(err, &ue)
}

// ProtocolViolationError reports a malformed decomposition: a tuple whose
// arity exceeds the maximum the reduce protocol supports. It is fatal for
// the whole operation.
type ProtocolViolationError struct {
	TypeName string
	Arity    int
}

func NewProtocolViolationError(typeName string, arity int) *ProtocolViolationError {
	return &ProtocolViolationError{TypeName: typeName, Arity: arity}
}
func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("decomposition of %s has %d elements, exceeding the maximum supported arity of 5", e.TypeName, e.Arity)
}

// ReconstructionError wraps a failure raised by a decomposition's
// constructor. The constructor's error is propagated verbatim via Unwrap,
// never swallowed.
type ReconstructionError struct {
	TypeName string
	Cause    error
}

func NewReconstructionError(typeName string, cause error) *ReconstructionError {
	return &ReconstructionError{TypeName: typeName, Cause: cause}
}
func (e *ReconstructionError) Error() string {
	return fmt.Sprintf("reconstruction of %s failed: %v", e.TypeName, e.Cause)
}
func (e *ReconstructionError) Unwrap() error { return e.Cause }

// DecompositionError wraps a substantive failure raised by a decomposition
// hook itself, as opposed to the hook merely being absent (which triggers
// fallback to the next protocol tier instead).
type DecompositionError struct {
	TypeName string
	Cause    error
}

func NewDecompositionError(typeName string, cause error) *DecompositionError {
	return &DecompositionError{TypeName: typeName, Cause: cause}
}
func (e *DecompositionError) Error() string {
	return fmt.Sprintf("decomposition of %s failed: %v", e.TypeName, e.Cause)
}
func (e *DecompositionError) Unwrap() error { return e.Cause }

// DepthExceededError indicates the walk exceeded the configured recursion
// limit, typically on pathologically deep or adversarial graphs.
type DepthExceededError struct {
	Limit int
}

func NewDepthExceededError(limit int) *DepthExceededError {
	return &DepthExceededError{Limit: limit}
}
func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("maximum clone depth exceeded (%d)", e.Limit)
}

// IsDepthExceeded checks if an error is a DepthExceededError using errors.As.
func IsDepthExceeded(err error) bool {
	var de *DepthExceededError
	return errors.As(err, &de)
}

// HookError represents a failure inside a user-supplied hook (override
// copy hook or state-restore hook) that must abort the operation. The
// hook's error is available via Unwrap.
type HookError struct {
	Hook     string // e.g., "DeepCopy", "SetState"
	TypeName string
	Cause    error
}

func NewHookError(hook, typeName string, cause error) *HookError {
	return &HookError{Hook: hook, TypeName: typeName, Cause: cause}
}
func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook of %s failed: %v", e.Hook, e.TypeName, e.Cause)
}
func (e *HookError) Unwrap() error { return e.Cause }
