package carrier

import (
	"errors"
	"fmt"
)

const (
	CategoryMetadata   = "metadata"
	CategoryStore      = "store"
	CategoryDecode     = "decode"
	CategoryActivation = "activation"
	CategoryDispose    = "dispose"
)

var (
	ErrNilTransaction = errors.New("carrier: nil transaction")
	ErrRootType       = errors.New("carrier: root has unexpected type")
)

type (
	baseError struct {
		category    string
		message     string
		previousErr error
	}

	marshalError struct {
		baseError
	}

	unmarshalError struct {
		baseError
	}

	errorFactory func(category string, message string, previousErr error) error
)

func newMarshalError(category string, message string, previousErr error) error {
	return &marshalError{
		baseError: baseError{
			category:    category,
			message:     message,
			previousErr: previousErr,
		},
	}
}

func newUnmarshalError(category string, message string, previousErr error) error {
	return &unmarshalError{
		baseError: baseError{
			category:    category,
			message:     message,
			previousErr: previousErr,
		},
	}
}

func (e baseError) Error() string {
	return fmt.Sprintf("%s (%s)", e.message, e.previousErr.Error())
}

func (e baseError) Unwrap() error {
	return e.previousErr
}

func (e baseError) Category() string {
	return e.category
}

// Category returns the stage at which a marshal or unmarshal call failed, or
// an empty string when err did not come from one.
func Category(err error) string {
	var categorized interface{ Category() string }
	if errors.As(err, &categorized) {
		return categorized.Category()
	}
	return ""
}

// IsMarshalError reports whether err was raised while marshalling a graph.
func IsMarshalError(err error) bool {
	var marshalErr *marshalError
	return errors.As(err, &marshalErr)
}

// IsUnmarshalError reports whether err was raised while unmarshalling a graph.
func IsUnmarshalError(err error) bool {
	var unmarshalErr *unmarshalError
	return errors.As(err, &unmarshalErr)
}
