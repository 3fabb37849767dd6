package core

// Logger is any leveled logging sink.
// expected args fmt: error, map[string]interface{}, principal email string
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
