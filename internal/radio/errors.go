package radio

import "errors"

// Result codes surfaced by the driver's syscall surface and carried through
// completion callbacks. A nil error is success.
var (
	// ErrBusy means a previously accepted transmit has not completed yet.
	ErrBusy = errors.New("radio: transmit in flight")

	// ErrOff means the transceiver is not powered or not ready.
	ErrOff = errors.New("radio: transceiver not ready")

	// ErrNoMem means the driver has no kernel frame buffer configured.
	ErrNoMem = errors.New("radio: no kernel buffer")

	// ErrInvalidSize means a requested length does not fit the granted
	// buffer.
	ErrInvalidSize = errors.New("radio: length exceeds granted buffer")

	// ErrUnsupported means an unknown or unimplemented selector.
	ErrUnsupported = errors.New("radio: unsupported operation")

	// ErrPending marks an operation that has been accepted but whose
	// outcome has not arrived yet. It is a status value for journaling,
	// never a syscall result.
	ErrPending = errors.New("radio: operation pending")
)
