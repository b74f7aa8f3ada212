package models

import "github.com/nimbusframework/nimbus-go/internal/annotations"

// Annotation is a parsed marker together with the declaration it was attached to
type Annotation struct {
	*annotations.ParsedAnnotation
	FileName string
	Line     int
}

// TriggerKind identifies the event source that invokes a function
type TriggerKind int

const (
	NoTrigger TriggerKind = iota
	HTTPTrigger
	QueueTrigger
	DocumentStoreTrigger
	NotificationTrigger
	BasicTrigger
)

func (k TriggerKind) String() string {
	switch k {
	case HTTPTrigger:
		return "http"
	case QueueTrigger:
		return "queue"
	case DocumentStoreTrigger:
		return "document_store"
	case NotificationTrigger:
		return "notification"
	case BasicTrigger:
		return "basic"
	default:
		return "none"
	}
}

// TriggerKindOf maps a trigger marker type to its kind
func TriggerKindOf(t annotations.AnnotationType) TriggerKind {
	switch t {
	case annotations.HTTPAnnotation:
		return HTTPTrigger
	case annotations.QueueAnnotation:
		return QueueTrigger
	case annotations.DocumentStoreAnnotation:
		return DocumentStoreTrigger
	case annotations.NotificationAnnotation:
		return NotificationTrigger
	case annotations.BasicAnnotation:
		return BasicTrigger
	default:
		return NoTrigger
	}
}
