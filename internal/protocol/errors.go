package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// World state.
	ErrWorldBusy     = "E_WORLD_BUSY"
	ErrNoContainer   = "E_NO_CONTAINER"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrNotCollector  = "E_NOT_COLLECTOR"
	ErrNoReceiver    = "E_NO_RECEIVER"
	ErrReceiverFull  = "E_RECEIVER_FULL"
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrNoPermission  = "E_NO_PERMISSION"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrWorldBusy:       {},
	ErrNoContainer:     {},
	ErrInvalidTarget:   {},
	ErrNotCollector:    {},
	ErrNoReceiver:      {},
	ErrReceiverFull:    {},
	ErrBadRequest:      {},
	ErrNoPermission:    {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
