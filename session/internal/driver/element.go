package driver

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// element is a single-use handle to a resolved DOM node.
type element struct {
	el *rod.Element
}

func (e *element) Click(ctx context.Context) error {
	el := e.el.Context(ctx)
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("driver: scroll into view: %w", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("driver: click: %w", err)
	}
	return nil
}

func (e *element) Input(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := el.Focus(); err != nil {
		return fmt.Errorf("driver: focus: %w", err)
	}
	if err := el.SelectAllText(); err == nil {
		if err := el.Type(input.Backspace); err != nil {
			return fmt.Errorf("driver: clear: %w", err)
		}
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("driver: input: %w", err)
	}
	return nil
}

func (e *element) SelectOptions(ctx context.Context, values []string) error {
	el := e.el.Context(ctx)
	if err := el.Select(values, true, rod.SelectorTypeText); err != nil {
		// Options addressed by value attribute rather than label.
		var sels []string
		for _, v := range values {
			sels = append(sels, fmt.Sprintf(`[value=%q]`, v))
		}
		if err2 := el.Select(sels, true, rod.SelectorTypeCSSSector); err2 != nil {
			return fmt.Errorf("driver: select: %w", err)
		}
	}
	return nil
}

func (e *element) Hover(ctx context.Context) error {
	if err := e.el.Context(ctx).Hover(); err != nil {
		return fmt.Errorf("driver: hover: %w", err)
	}
	return nil
}

// keyMap translates the common key names accepted by the press operation to
// Rod key codes. Single characters are typed directly.
var keyMap = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"Delete":     input.Delete,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"Home":       input.Home,
	"End":        input.End,
	"PageUp":     input.PageUp,
	"PageDown":   input.PageDown,
	"Space":      input.Space,
}

func (e *element) Press(ctx context.Context, key string) error {
	el := e.el.Context(ctx)
	if err := el.Focus(); err != nil {
		return fmt.Errorf("driver: focus: %w", err)
	}

	if k, ok := keyMap[key]; ok {
		if err := el.Type(k); err != nil {
			return fmt.Errorf("driver: press %s: %w", key, err)
		}
		return nil
	}
	if len(key) == 1 {
		if err := el.Type(input.Key(rune(key[0]))); err != nil {
			return fmt.Errorf("driver: press %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("driver: unknown key %q (use Enter, Tab, Escape, ArrowDown, ...)", key)
}
