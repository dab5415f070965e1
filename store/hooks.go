package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/satishbabariya/seedgraph/schema"
)

// SaveContext is passed to save hooks around a non-raw Create.
type SaveContext struct {
	Context context.Context
	Model   *schema.Model
	PK      any
	Values  []Value

	Result    Object // set for AfterSave
	Error     error  // set for AfterSave
	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// Get returns the value assigned to field, if any.
func (sc *SaveContext) Get(field string) (any, bool) {
	for _, v := range sc.Values {
		if v.Field.Name == field {
			return v.Value, true
		}
	}
	return nil, false
}

// Set assigns field, appending it when it has no value yet. Unknown fields
// are ignored and reported as false.
func (sc *SaveContext) Set(field string, value any) bool {
	for i, v := range sc.Values {
		if v.Field.Name == field {
			sc.Values[i].Value = value
			return true
		}
	}
	f, ok := sc.Model.Field(field)
	if !ok || f.IsMulti() {
		return false
	}
	sc.Values = append(sc.Values, Value{Field: f, Value: value})
	return true
}

// SaveHook runs before or after an object is written.
type SaveHook func(sc *SaveContext) error

// Hook binds save hooks to a model. An empty Model matches every model.
type Hook struct {
	Name       string
	Model      string
	BeforeSave SaveHook
	AfterSave  SaveHook
}

func (h Hook) matches(model string) bool {
	return h.Model == "" || h.Model == model
}

// HookChain runs hooks around Create in registration order; AfterSave hooks
// run in reverse.
type HookChain struct {
	hooks []Hook
}

// NewHookChain creates a chain holding hooks.
func NewHookChain(hooks ...Hook) *HookChain {
	return &HookChain{hooks: append([]Hook(nil), hooks...)}
}

// Add appends a hook to the chain.
func (hc *HookChain) Add(h Hook) {
	hc.hooks = append(hc.hooks, h)
}

// Len returns the number of registered hooks.
func (hc *HookChain) Len() int {
	if hc == nil {
		return 0
	}
	return len(hc.hooks)
}

// Save runs exec through the chain. exec receives the values as possibly
// rewritten by BeforeSave hooks. A nil chain runs exec directly.
func (hc *HookChain) Save(ctx context.Context, model *schema.Model, pk any, values []Value, exec func([]Value) (Object, error)) (Object, error) {
	if hc.Len() == 0 {
		return exec(values)
	}

	sc := &SaveContext{
		Context:   ctx,
		Model:     model,
		PK:        pk,
		Values:    append([]Value(nil), values...),
		StartTime: time.Now(),
	}

	for _, h := range hc.hooks {
		if h.BeforeSave != nil && h.matches(model.Name) {
			if err := h.BeforeSave(sc); err != nil {
				return nil, err
			}
		}
	}

	result, err := exec(sc.Values)
	sc.Result = result
	sc.Error = err
	sc.EndTime = time.Now()
	sc.Duration = sc.EndTime.Sub(sc.StartTime)

	for i := len(hc.hooks) - 1; i >= 0; i-- {
		h := hc.hooks[i]
		if h.AfterSave != nil && h.matches(model.Name) {
			if herr := h.AfterSave(sc); herr != nil {
				return result, herr
			}
		}
	}

	return result, err
}

// LoggingHook logs every hooked save.
func LoggingHook(logger *slog.Logger) Hook {
	return Hook{
		Name: "logging",
		BeforeSave: func(sc *SaveContext) error {
			logger.Debug("saving", "model", sc.Model.Name, "pk", sc.PK)
			return nil
		},
		AfterSave: func(sc *SaveContext) error {
			if sc.Error != nil {
				logger.Warn("save failed", "model", sc.Model.Name, "pk", sc.PK, "error", sc.Error, "duration", sc.Duration)
			} else {
				logger.Debug("saved", "model", sc.Model.Name, "pk", sc.PK, "duration", sc.Duration)
			}
			return nil
		},
	}
}
