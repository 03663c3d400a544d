package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Session.
	ErrHostBusy  = "E_HOST_BUSY"
	ErrNoSession = "E_NO_SESSION"
	ErrRateLimit = "E_RATE_LIMIT"

	// Engine/admin layer.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrDisabled   = "E_DISABLED"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrHostBusy:        {},
	ErrNoSession:       {},
	ErrRateLimit:       {},
	ErrBadRequest:      {},
	ErrDisabled:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
