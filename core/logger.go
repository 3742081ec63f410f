package core

// Logger is implemented by the app's logging services.
// Implementations are expected to accept an optional user value among args
// in order to attach the acting user to the report.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
