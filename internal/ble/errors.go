package ble

import "errors"

// deviceNotFoundError signals an unknown device name or ordinal, for 404
// mapping at the HTTP layer.
type deviceNotFoundError struct{ id string }

func (e deviceNotFoundError) Error() string { return "device not found: " + e.id }

// ErrDeviceNotFound constructs a deviceNotFoundError.
func ErrDeviceNotFound(id string) error { return deviceNotFoundError{id: id} }

// IsDeviceNotFound reports whether err indicates an unknown device.
func IsDeviceNotFound(err error) bool {
	var e deviceNotFoundError
	return errors.As(err, &e)
}

// deviceNotConnectedError signals that no device is currently available to
// take a command (return 503).
type deviceNotConnectedError struct{ msg string }

func (e deviceNotConnectedError) Error() string { return e.msg }

// ErrDeviceNotConnected constructs a deviceNotConnectedError.
func ErrDeviceNotConnected(msg string) error { return deviceNotConnectedError{msg: msg} }

// IsDeviceNotConnected reports whether err indicates no live connection.
func IsDeviceNotConnected(err error) bool {
	var e deviceNotConnectedError
	return errors.As(err, &e)
}

// connectionFailedError signals that establishing a link failed after all
// retry attempts.
type connectionFailedError struct {
	name string
	err  error
}

func (e connectionFailedError) Error() string {
	if e.err != nil {
		return "connection failed: " + e.name + ": " + e.err.Error()
	}
	return "connection failed: " + e.name
}

func (e connectionFailedError) Unwrap() error { return e.err }

// ErrConnectionFailed constructs a connectionFailedError wrapping the last
// underlying attempt error.
func ErrConnectionFailed(name string, err error) error {
	return connectionFailedError{name: name, err: err}
}

// IsConnectionFailed reports whether err indicates an exhausted connect.
func IsConnectionFailed(err error) bool {
	var e connectionFailedError
	return errors.As(err, &e)
}

// transportError signals a write or characteristic failure on an
// established link.
type transportError struct {
	name string
	err  error
}

func (e transportError) Error() string {
	return "transport error: " + e.name + ": " + e.err.Error()
}

func (e transportError) Unwrap() error { return e.err }

// ErrTransport constructs a transportError.
func ErrTransport(name string, err error) error {
	return transportError{name: name, err: err}
}

// IsTransport reports whether err indicates a link-level send failure.
func IsTransport(err error) bool {
	var e transportError
	return errors.As(err, &e)
}

// timeoutError signals that an operation ran out of time before the link
// delivered a result (return 504).
type timeoutError struct {
	name string
	err  error
}

func (e timeoutError) Error() string {
	if e.err != nil {
		return "timeout: " + e.name + ": " + e.err.Error()
	}
	return "timeout: " + e.name
}

func (e timeoutError) Unwrap() error { return e.err }

// ErrTimeout constructs a timeoutError wrapping the underlying context or
// deadline error.
func ErrTimeout(name string, err error) error {
	return timeoutError{name: name, err: err}
}

// IsTimeout reports whether err indicates an expired deadline.
func IsTimeout(err error) bool {
	var e timeoutError
	return errors.As(err, &e)
}
