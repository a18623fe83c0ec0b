package registry

import (
	"errors"
	"fmt"

	"easel/internal/artifact"
)

// ActionContext is handed to an action when the user triggers it. Actions
// emit declarative effects; the application shell decides what "copy" or
// "download" physically means on its platform.
type ActionContext struct {
	Document artifact.Plain
	Emit     func(effect string, payload map[string]any) error
}

// Action is one user-triggered operation on an artifact.
type Action struct {
	Label string
	Run   func(ctx ActionContext) error
}

func emit(ctx ActionContext, effect string, payload map[string]any) error {
	if ctx.Emit == nil {
		return errors.New("action context has no effect sink")
	}
	return ctx.Emit(effect, payload)
}

func copyAction() Action {
	return Action{
		Label: "Copy",
		Run: func(ctx ActionContext) error {
			return emit(ctx, "copy", map[string]any{"content": ctx.Document.Content})
		},
	}
}

func downloadAction(extension string) Action {
	return Action{
		Label: "Download",
		Run: func(ctx ActionContext) error {
			name := ctx.Document.Title
			if name == "" {
				name = ctx.Document.ID
			}
			return emit(ctx, "download", map[string]any{
				"filename": fmt.Sprintf("%s.%s", name, extension),
				"content":  ctx.Document.Content,
			})
		},
	}
}

func askAction() Action {
	return Action{
		Label: "Ask about this",
		Run: func(ctx ActionContext) error {
			return emit(ctx, "prompt", map[string]any{
				"prompt": fmt.Sprintf("Tell me more about the %s artifact %q.", ctx.Document.Kind, ctx.Document.Title),
				"id":     ctx.Document.ID,
			})
		},
	}
}
