package actor

import (
	"context"
	"strings"
)

// Actor identifies who performs an operation. It is resolved by the
// session layer and only carried here.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// System is used for work started by the process itself.
var System = Actor{ID: "system", Name: "system", Role: "system"}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(ctxKey{}).(Actor)
	if !ok || a.ID == "" {
		return Actor{}, false
	}
	return a, true
}

// Label is the value stored in settled_by / processed_by columns.
func (a Actor) Label() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return strings.TrimSpace(a.ID)
}

func (a Actor) Valid() bool {
	return strings.TrimSpace(a.ID) != ""
}
