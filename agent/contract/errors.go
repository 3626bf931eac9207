package contract

import "errors"

var (
	ErrPromptMissing   = errors.New("no prompt provided")
	ErrValidation      = errors.New("validation failed")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrDuplicateTool   = errors.New("tool already registered")
	ErrUnknownTool     = errors.New("unknown tool")
	ErrSchemaViolation = errors.New("tool arguments violate schema")
)
