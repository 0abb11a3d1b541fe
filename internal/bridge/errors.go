package bridge

import "errors"

// Sentinel errors forming the bridge error taxonomy. Every failure returned
// by this package wraps exactly one of these, so callers can classify with
// errors.Is and the protocol layer can attach the taxonomy kind to a
// rejected call. Engine messages are passed through verbatim in the wrapped
// error text.
var (
	// ErrOpenFailed indicates the database file could not be created or
	// opened (bad path, permissions, invalid name).
	ErrOpenFailed = errors.New("bridge: open failed")

	// ErrNotOpen indicates an operation on a logical name with no live
	// database handle.
	ErrNotOpen = errors.New("bridge: database not open")

	// ErrNotConnected indicates a data operation on a database that is
	// open but has no active connection.
	ErrNotConnected = errors.New("bridge: database not connected")

	// ErrAlreadyConnected is reserved for hosts that treat a redundant
	// connect as a failure. Connect itself returns the live connection
	// instead of raising it.
	ErrAlreadyConnected = errors.New("bridge: database already connected")

	// ErrStaleHandle indicates a statement or payload id that has been
	// released (or never existed). Stale ids fail lookup; they are never
	// dereferenced.
	ErrStaleHandle = errors.New("bridge: stale handle")

	// ErrIndexOutOfRange indicates a bind index outside 1..N for a
	// statement with N declared parameters.
	ErrIndexOutOfRange = errors.New("bridge: bind index out of range")

	// ErrUnboundParameter indicates ExecutePrepared was invoked while at
	// least one declared parameter slot was still unset.
	ErrUnboundParameter = errors.New("bridge: unbound parameter")

	// ErrSql carries an engine-reported parse or execution failure.
	ErrSql = errors.New("bridge: sql error")

	// ErrUnsupportedType indicates a value that has no safe encoding in
	// the marshalling table.
	ErrUnsupportedType = errors.New("bridge: unsupported type")

	// ErrActivationFailed indicates a statically-linked engine module
	// could not be activated or verified.
	ErrActivationFailed = errors.New("bridge: extension activation failed")

	// ErrDeleteFailed indicates the database file could not be removed.
	ErrDeleteFailed = errors.New("bridge: delete failed")

	// ErrPayloadReleased indicates a payload was released more than once.
	ErrPayloadReleased = errors.New("bridge: payload already released")
)

// kinds maps sentinels to the wire-level taxonomy names used by both
// protocol adapters.
var kinds = []struct {
	err  error
	name string
}{
	{ErrOpenFailed, "OpenFailed"},
	{ErrNotOpen, "NotOpen"},
	{ErrNotConnected, "NotConnected"},
	{ErrAlreadyConnected, "AlreadyConnected"},
	{ErrStaleHandle, "StaleHandle"},
	{ErrIndexOutOfRange, "IndexOutOfRange"},
	{ErrUnboundParameter, "UnboundParameter"},
	{ErrSql, "SqlError"},
	{ErrUnsupportedType, "UnsupportedType"},
	{ErrActivationFailed, "ActivationFailed"},
	{ErrDeleteFailed, "DeleteFailed"},
	{ErrPayloadReleased, "PayloadReleased"},
}

// Kind returns the taxonomy name for err, or "Internal" if err does not
// wrap a bridge sentinel.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
