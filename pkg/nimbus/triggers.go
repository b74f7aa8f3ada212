package nimbus

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultTimeout = 10
	DefaultMemory  = 1024
)

// Kind identifies the event source that invokes a function
type Kind string

const (
	HTTPKind          Kind = "http"
	QueueKind         Kind = "queue"
	DocumentStoreKind Kind = "document_store"
	NotificationKind  Kind = "notification"
	BasicKind         Kind = "basic"
)

// Trigger is one trigger configuration of a function. A function takes any
// number of triggers of its kind, each optionally limited to some stages.
type Trigger interface {
	Kind() Kind
	// Settings returns the trigger's timeout and memory with defaults applied
	Settings() (timeout, memory int)
	AppliesTo(stage string) bool
}

// HTTPTrigger invokes a function for requests matching a method and path.
// Path parameters use the {name} form.
type HTTPTrigger struct {
	Method            string `validate:"required,oneof=GET POST PUT DELETE PATCH HEAD OPTIONS ANY"`
	Path              string `validate:"required,startswith=/"`
	Timeout           int    `validate:"omitempty,min=1,max=900"`
	Memory            int    `validate:"omitempty,min=128,max=10240"`
	AllowedCorsOrigin string
	Stages            []string `validate:"dive,stage"`
}

// QueueTrigger invokes a function with batches of queue messages. BatchSize has no default.
type QueueTrigger struct {
	Queue     string   `validate:"required"`
	BatchSize int      `validate:"required,min=1,max=10000"`
	Timeout   int      `validate:"omitempty,min=1,max=900"`
	Memory    int      `validate:"omitempty,min=128,max=10240"`
	Stages    []string `validate:"dive,stage"`
}

// DocumentStoreTrigger invokes a function when a document of DataModel is inserted, modified or removed
type DocumentStoreTrigger struct {
	DataModel string         `validate:"required"`
	Method    StoreEventType `validate:"required,oneof=INSERT MODIFY REMOVE"`
	Timeout   int            `validate:"omitempty,min=1,max=900"`
	Memory    int            `validate:"omitempty,min=128,max=10240"`
	Stages    []string       `validate:"dive,stage"`
}

// NotificationTrigger invokes a function for every message published to a topic
type NotificationTrigger struct {
	Topic   string   `validate:"required"`
	Timeout int      `validate:"omitempty,min=1,max=900"`
	Memory  int      `validate:"omitempty,min=128,max=10240"`
	Stages  []string `validate:"dive,stage"`
}

// BasicTrigger deploys a directly invokable function, optionally on a cron schedule
type BasicTrigger struct {
	Cron    string
	Timeout int      `validate:"omitempty,min=1,max=900"`
	Memory  int      `validate:"omitempty,min=128,max=10240"`
	Stages  []string `validate:"dive,stage"`
}

func (t HTTPTrigger) Kind() Kind          { return HTTPKind }
func (t QueueTrigger) Kind() Kind         { return QueueKind }
func (t DocumentStoreTrigger) Kind() Kind { return DocumentStoreKind }
func (t NotificationTrigger) Kind() Kind  { return NotificationKind }
func (t BasicTrigger) Kind() Kind         { return BasicKind }

func (t HTTPTrigger) Settings() (int, int)          { return settings(t.Timeout, t.Memory) }
func (t QueueTrigger) Settings() (int, int)         { return settings(t.Timeout, t.Memory) }
func (t DocumentStoreTrigger) Settings() (int, int) { return settings(t.Timeout, t.Memory) }
func (t NotificationTrigger) Settings() (int, int)  { return settings(t.Timeout, t.Memory) }
func (t BasicTrigger) Settings() (int, int)         { return settings(t.Timeout, t.Memory) }

func (t HTTPTrigger) AppliesTo(stage string) bool          { return appliesTo(t.Stages, stage) }
func (t QueueTrigger) AppliesTo(stage string) bool         { return appliesTo(t.Stages, stage) }
func (t DocumentStoreTrigger) AppliesTo(stage string) bool { return appliesTo(t.Stages, stage) }
func (t NotificationTrigger) AppliesTo(stage string) bool  { return appliesTo(t.Stages, stage) }
func (t BasicTrigger) AppliesTo(stage string) bool         { return appliesTo(t.Stages, stage) }

func settings(timeout, memory int) (int, int) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if memory == 0 {
		memory = DefaultMemory
	}
	return timeout, memory
}

// appliesTo treats an empty stage list as every stage
func appliesTo(stages []string, stage string) bool {
	if len(stages) == 0 || stage == "" {
		return true
	}
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}

var (
	validate     *validator.Validate
	validateOnce sync.Once

	stagePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*$`)
)

func validStage(fl validator.FieldLevel) bool {
	return stagePattern.MatchString(fl.Field().String())
}

// ValidateTrigger checks a trigger configuration against its constraints
func ValidateTrigger(t Trigger) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterValidation("stage", validStage)
	})

	if err := validate.Struct(t); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return fmt.Errorf("invalid %s trigger: %s", t.Kind(), strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid %s trigger: %w", t.Kind(), err)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", fe.Field(), fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param(), fe.Value())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", fe.Field(), fe.Param())
	case "stage":
		return fmt.Sprintf("%s %q is not a stage name: letters, digits and dashes, not starting with a dash", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
