package notification

// Kind selects how a notification is styled.
type Kind string

// Kind constants
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is a transient, one-shot message shown on the next rendered page.
type Notification struct {
	Kind    Kind
	Message string
}

// Success builds a success notification.
func Success(msg string) Notification { return Notification{Kind: KindSuccess, Message: msg} }

// Error builds an error notification.
func Error(msg string) Notification { return Notification{Kind: KindError, Message: msg} }

// Info builds an informational notification.
func Info(msg string) Notification { return Notification{Kind: KindInfo, Message: msg} }
