package arcanet

// Reply status codes shared with the transport layer.
const (
	StatusSuccess      = 0
	StatusNoProfile    = 109
	StatusCreateFailed = 110
	StatusDeadline     = 122
	StatusMalformed    = 200
)
