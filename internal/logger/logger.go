package logger

// Logger is the logging interface used across the application. The
// component string identifies the subsystem emitting the event.
type Logger interface {
	Debug(component, message string, fields map[string]interface{})
	Info(component, message string, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
}

// Nop discards all log events. Used in tests.
type Nop struct{}

func (Nop) Debug(component, message string, fields map[string]interface{})   {}
func (Nop) Info(component, message string, fields map[string]interface{})    {}
func (Nop) Warning(component, message string, fields map[string]interface{}) {}
func (Nop) Error(component string, err error, fields map[string]interface{}) {}
