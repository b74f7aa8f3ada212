package parser

import (
	"github.com/nimbusframework/nimbus-go/internal/models"
	"github.com/nimbusframework/nimbus-go/internal/utils"
)

const (
	// GeneratedFileName is the handler registration file written into each package
	GeneratedFileName = utils.GeneratedFileName

	// ConstructorPrefix marks zero-argument constructors used to build receivers
	ConstructorPrefix = "New"
)

// handlerSignature describes the parameter and result counts a trigger kind requires
type handlerSignature struct {
	Params   int
	Results  int
	Expected string
	Example  string
}

var handlerSignatures = map[models.TriggerKind]handlerSignature{
	models.HTTPTrigger: {
		Params:   1,
		Results:  1,
		Expected: "func(c nimbus.RequestContext) error",
		Example:  "func (h *Handlers) GetUser(c nimbus.RequestContext) error",
	},
	models.QueueTrigger: {
		Params:   2,
		Results:  1,
		Expected: "func(ctx context.Context, msg *nimbus.QueueMessage) error",
		Example:  "func (h *Handlers) ProcessOrder(ctx context.Context, msg *nimbus.QueueMessage) error",
	},
	models.DocumentStoreTrigger: {
		Params:   2,
		Results:  1,
		Expected: "func(ctx context.Context, event *nimbus.StoreEvent) error",
		Example:  "func (h *Handlers) OnUserChanged(ctx context.Context, event *nimbus.StoreEvent) error",
	},
	models.NotificationTrigger: {
		Params:   2,
		Results:  1,
		Expected: "func(ctx context.Context, msg *nimbus.NotificationMessage) error",
		Example:  "func (h *Handlers) OnSignup(ctx context.Context, msg *nimbus.NotificationMessage) error",
	},
	models.BasicTrigger: {
		Params:   2,
		Results:  2,
		Expected: "func(ctx context.Context, payload json.RawMessage) (interface{}, error)",
		Example:  "func (h *Handlers) BuildReport(ctx context.Context, payload json.RawMessage) (interface{}, error)",
	},
}
