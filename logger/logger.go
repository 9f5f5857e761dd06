package logger

// Logger receives a message followed by optional key/value pairs.
type Logger interface {
	Info(...any)
	Debug(...any)
	Error(...any)
}
