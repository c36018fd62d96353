package shoal

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by shoal matches exactly one of these
// with errors.Is.
var (
	// ErrInvalidArgument reports a bad value passed by the caller.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIllegalState reports a call that is not allowed in the receiver's
	// current state.
	ErrIllegalState = errors.New("illegal state")
)

// Invalid-argument conditions.
var (
	ErrNilNode            = fmt.Errorf("%w: nil node", ErrInvalidArgument)
	ErrCycle              = fmt.Errorf("%w: node would become its own ancestor", ErrInvalidArgument)
	ErrNotChild           = fmt.Errorf("%w: node is not a child of the receiver", ErrInvalidArgument)
	ErrIndexOutOfRange    = fmt.Errorf("%w: index out of range", ErrInvalidArgument)
	ErrNegativeSize       = fmt.Errorf("%w: negative size", ErrInvalidArgument)
	ErrNegativeDelay      = fmt.Errorf("%w: negative frame delay", ErrInvalidArgument)
	ErrFrameIndex         = fmt.Errorf("%w: frame index out of range", ErrInvalidArgument)
	ErrUnknownFrameName   = fmt.Errorf("%w: unknown frame name", ErrInvalidArgument)
	ErrDuplicateFrameName = fmt.Errorf("%w: frame name already in use", ErrInvalidArgument)
	ErrFrameRate          = fmt.Errorf("%w: frame rate must be positive", ErrInvalidArgument)
)

// Illegal-state conditions.
var (
	ErrAtBoundary      = fmt.Errorf("%w: animation is at its last frame", ErrIllegalState)
	ErrNotOnStage      = fmt.Errorf("%w: node is not attached to a root stage", ErrIllegalState)
	ErrRootStageChild  = fmt.Errorf("%w: a root stage cannot be added as a child", ErrIllegalState)
	ErrRootStageHidden = fmt.Errorf("%w: a root stage cannot be hidden", ErrIllegalState)
)
