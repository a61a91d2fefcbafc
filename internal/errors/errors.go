package errors

import (
	stderrors "errors"
	"fmt"
)

type Kind string

const (
	InvalidConfig    Kind = "invalid_config"
	ConfigMismatch   Kind = "config_mismatch"
	NotFound         Kind = "not_found"
	MetadataFailure  Kind = "metadata_failure"
	DiscoveryFailure Kind = "discovery_failure"
	PlanFailure      Kind = "plan_failure"
	TransferFailure  Kind = "transfer_failure"
	ExifFailure      Kind = "exif_failure"
	Internal         Kind = "internal"
)

type AppError struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *AppError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Kind: kind,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// KindOf returns the kind of the outermost AppError in err's chain, or
// Internal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Is reports whether any AppError in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Kind == kind {
			return true
		}
		err = appErr.Err
	}
	return false
}

func UserMessage(err error) string {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return err.Error()
	}
	switch appErr.Kind {
	case InvalidConfig:
		return fmt.Sprintf("Invalid configuration: %v", appErr.Err)
	case ConfigMismatch:
		return fmt.Sprintf("Configuration mismatch: %v", appErr.Err)
	case NotFound:
		return fmt.Sprintf("Path not found: %s", appErr.Path)
	case MetadataFailure:
		return fmt.Sprintf("Unreadable session metadata: %s: %v", appErr.Path, appErr.Err)
	case DiscoveryFailure:
		return fmt.Sprintf("Cannot scan source: %s: %v", appErr.Path, appErr.Err)
	case PlanFailure:
		return fmt.Sprintf("Cannot plan session: %s: %v", appErr.Path, appErr.Err)
	case TransferFailure:
		return fmt.Sprintf("Transfer failed: %s: %v", appErr.Path, appErr.Err)
	case ExifFailure:
		return fmt.Sprintf("EXIF read failed: %s", appErr.Path)
	default:
		return fmt.Sprintf("Unexpected error: %v", appErr.Err)
	}
}
