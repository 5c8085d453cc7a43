package router

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidArgument marks a nil or invalid argument passed to a
	// public entry point.
	TextCodeInvalidArgument = "INVALID_ARGUMENT"
	// TextCodeStaticConfiguration marks a static route that could not be
	// resolved, e.g. no file system is available.
	TextCodeStaticConfiguration = "STATIC_CONFIGURATION"
)

func newArgumentError(argument, message string) error {
	return goerrors.New(message, goerrors.HTTPStatusToCategory(http.StatusBadRequest)).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeInvalidArgument).
		WithMetadata(map[string]any{
			"argument": argument,
		})
}

func newConfigurationError(message string, metadata map[string]any) error {
	return goerrors.New(message, goerrors.HTTPStatusToCategory(http.StatusInternalServerError)).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeStaticConfiguration).
		WithMetadata(metadata)
}

// IsArgumentError reports whether err was raised for a nil or invalid argument.
func IsArgumentError(err error) bool {
	return hasTextCode(err, TextCodeInvalidArgument)
}

// IsConfigurationError reports whether err was raised while resolving
// a static route configuration.
func IsConfigurationError(err error) bool {
	return hasTextCode(err, TextCodeStaticConfiguration)
}

func hasTextCode(err error, code string) bool {
	var gerr *goerrors.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.TextCode == code
}
