package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tabctl/tabctl/axtree"
	"github.com/tabctl/tabctl/extract"
)

// captureLocked captures and commits a fresh snapshot. Caller holds t.mu.
// DriverUnavailable is retried exactly once: it means a frame detached or
// navigated mid-walk, and the page usually settles right after.
func (t *Tab) captureLocked(ctx context.Context) (*axtree.Snapshot, error) {
	pc, err := t.cap.Capture(ctx)
	if err != nil && errors.Is(err, axtree.ErrDriverUnavailable) {
		pc, err = t.cap.Capture(ctx)
	}
	if err != nil {
		return nil, err
	}
	return t.store.Commit(pc), nil
}

// pageState renders the standard tail of every action result: tab, location,
// and the fresh snapshot outline.
func (t *Tab) pageState(ctx context.Context, snap *axtree.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tab: %s\n", t.ID)
	if url, title, err := t.page.Info(ctx); err == nil {
		fmt.Fprintf(&b, "Page URL: %s\nPage title: %s\n", url, title)
	}
	fmt.Fprintf(&b, "Page snapshot (generation %d):\n%s", snap.Generation, snap.Text())
	return b.String()
}

// describeRef names the snapshot node behind a token, for result text.
func (t *Tab) describeRef(ref string) string {
	snap, ok := t.store.Current()
	if !ok {
		return ref
	}
	n, ok := snap.Lookup(ref)
	if !ok {
		return ref
	}
	if n.Name != "" {
		return fmt.Sprintf("%s %q (%s)", n.Role, n.Name, ref)
	}
	return fmt.Sprintf("%s (%s)", n.Role, ref)
}

// friendly turns core failures into the instructive text the agent sees.
// Stale and dangling references are never retried automatically: silently
// resolving against a different generation would act on the wrong element.
func friendly(err error) error {
	switch {
	case errors.Is(err, axtree.ErrMalformedToken):
		return fmt.Errorf("%w; refs look like s3e7 or f1s3e7 and come from the latest snapshot", err)
	case errors.Is(err, axtree.ErrEmptyStore):
		return fmt.Errorf("%w; call browser_snapshot first", err)
	case errors.Is(err, axtree.ErrStaleGeneration),
		errors.Is(err, axtree.ErrUnknownFrame),
		errors.Is(err, axtree.ErrDanglingElement):
		return fmt.Errorf("%w; call browser_snapshot and retry with a fresh ref", err)
	case errors.Is(err, axtree.ErrDriverUnavailable):
		return fmt.Errorf("%w; the page navigated mid-operation, retry the action", err)
	}
	return err
}

// mutate runs one page-mutating step under the tab lock, then re-captures
// unless auto-snapshot is disabled. A failed re-capture does not undo the
// action, so it is reported in the result text rather than as an error.
func (s *Session) mutate(ctx context.Context, t *Tab, header string, act func(context.Context) error) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := act(ctx); err != nil {
		return "", friendly(err)
	}
	if s.cfg.DisableAutoSnapshot {
		return header, nil
	}

	snap, err := t.captureLocked(ctx)
	if err != nil {
		s.log.Warn("session: post-action snapshot failed", "tab", t.ID, "error", err)
		return header + "\n\nPost-action snapshot failed: " + err.Error() +
			"\nCall browser_snapshot to refresh.", nil
	}
	return header + "\n\n" + t.pageState(ctx, snap), nil
}

// Snapshot captures the active tab and returns the referenced outline.
func (s *Session) Snapshot(ctx context.Context) (string, error) {
	t, err := s.ActiveTab()
	if err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	snap, err := t.captureLocked(ctx)
	if err != nil {
		return "", friendly(err)
	}
	return t.pageState(ctx, snap), nil
}

// Navigate loads a URL in the active tab, opening one if none exists, and
// returns the fresh page state.
func (s *Session) Navigate(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	noTabs := s.active == ""
	s.mu.Unlock()

	var t *Tab
	var err error
	if noTabs {
		t, err = s.NewTab(ctx, url)
		if err != nil {
			return "", err
		}
		t.mu.Lock()
		defer t.mu.Unlock()
	} else {
		t, err = s.ActiveTab()
		if err != nil {
			return "", err
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if err := t.page.Navigate(ctx, url); err != nil {
			return "", err
		}
	}

	snap, err := t.captureLocked(ctx)
	if err != nil {
		return "", friendly(err)
	}
	return "Navigated to " + url + "\n\n" + t.pageState(ctx, snap), nil
}

// Click resolves a reference and clicks the element.
func (s *Session) Click(ctx context.Context, ref string) (string, error) {
	t, err := s.ActiveTab()
	if err != nil {
		return "", err
	}
	desc := t.describeRef(ref)
	return s.mutate(ctx, t, "Clicked "+desc, func(ctx context.Context) error {
		node, err := t.res.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		return node.Click(ctx)
	})
}

// Type resolves a reference, replaces its text, and optionally submits with
// Enter.
func (s *Session) Type(ctx context.Context, ref, text string, submit bool) (string, error) {
	t, err := s.ActiveTab()
	if err != nil {
		return "", err
	}
	desc := t.describeRef(ref)
	header := fmt.Sprintf("Typed %q into %s", text, desc)
	if submit {
		header += " and submitted"
	}
	return s.mutate(ctx, t, header, func(ctx context.Context) error {
		node, err := t.res.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		if err := node.Input(ctx, text); err != nil {
			return err
		}
		if submit {
			return node.Press(ctx, "Enter")
		}
		return nil
	})
}

// SelectOption resolves a reference and selects the given options by label
// or value.
func (s *Session) SelectOption(ctx context.Context, ref string, values []string) (string, error) {
	t, err := s.ActiveTab()
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", fmt.Errorf("session: no option values given")
	}
	desc := t.describeRef(ref)
	header := fmt.Sprintf("Selected %s in %s", strings.Join(values, ", "), desc)
	return s.mutate(ctx, t, header, func(ctx context.Context) error {
		node, err := t.res.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		return node.SelectOptions(ctx, values)
	})
}

// Hover resolves a reference and hovers it. Hovering can open menus, so the
// result carries a fresh snapshot like any mutating action.
func (s *Session) Hover(ctx context.Context, ref string) (string, error) {
	t, err := s.ActiveTab()
	if err != nil {
		return "", err
	}
	desc := t.describeRef(ref)
	return s.mutate(ctx, t, "Hovered over "+desc, func(ctx context.Context) error {
		node, err := t.res.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		return node.Hover(ctx)
	})
}

// PressKey sends a key to a referenced element, or to the page's focused
// element when ref is empty.
func (s *Session) PressKey(ctx context.Context, key, ref string) (string, error) {
	t, err := s.ActiveTab()
	if err != nil {
		return "", err
	}
	header := "Pressed " + key
	if ref != "" {
		header += " on " + t.describeRef(ref)
	}
	return s.mutate(ctx, t, header, func(ctx context.Context) error {
		if ref == "" {
			return t.drv.PressKey(ctx, key)
		}
		node, err := t.res.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		return node.Press(ctx, key)
	})
}

// WaitFor blocks until text appears, textGone disappears, or the fixed delay
// elapses, then resnapshots. At least one condition is required.
func (s *Session) WaitFor(ctx context.Context, text, textGone string, seconds float64) (string, error) {
	t, err := s.ActiveTab()
	if err != nil {
		return "", err
	}
	if text == "" && textGone == "" && seconds <= 0 {
		return "", fmt.Errorf("session: wait_for needs text, text_gone, or time")
	}

	header := "Waited"
	act := func(ctx context.Context) error {
		if seconds > 0 {
			d := time.Duration(seconds * float64(time.Second))
			if d > s.cfg.WaitTimeout {
				d = s.cfg.WaitTimeout
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
			}
			header = fmt.Sprintf("Waited %.1fs", d.Seconds())
		}
		if text == "" && textGone == "" {
			return nil
		}

		deadline := time.Now().Add(s.cfg.WaitTimeout)
		for {
			body, err := t.drv.VisibleText(ctx)
			if err == nil {
				ok := true
				if text != "" && !strings.Contains(body, text) {
					ok = false
				}
				if textGone != "" && strings.Contains(body, textGone) {
					ok = false
				}
				if ok {
					if text != "" {
						header = fmt.Sprintf("Waited until %q appeared", text)
					} else {
						header = fmt.Sprintf("Waited until %q disappeared", textGone)
					}
					return nil
				}
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("session: wait_for timed out after %s", s.cfg.WaitTimeout)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(250 * time.Millisecond):
			}
		}
	}

	res, err := s.mutate(ctx, t, "", act)
	if err != nil {
		return "", err
	}
	return header + res, nil
}

// tabsAction dispatches the browser_tabs tool. list returns structured tab
// info; the other actions return text like every other tool.
func (s *Session) tabsAction(ctx context.Context, r *tabsRequest) (any, error) {
	switch r.Action {
	case "list":
		return s.ListTabs(ctx), nil
	case "new":
		t, err := s.NewTab(ctx, r.URL)
		if err != nil {
			return nil, err
		}
		header := "Opened tab " + t.ID
		if r.URL == "" {
			return header, nil
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		snap, err := t.captureLocked(ctx)
		if err != nil {
			return nil, friendly(err)
		}
		return header + "\n\n" + t.pageState(ctx, snap), nil
	case "select":
		if r.TabID == "" {
			return nil, fmt.Errorf("session: select needs tab_id")
		}
		t, err := s.SelectTab(r.TabID)
		if err != nil {
			return nil, err
		}
		return "Selected tab " + t.ID, nil
	case "close":
		id := r.TabID
		if id == "" {
			t, err := s.ActiveTab()
			if err != nil {
				return nil, err
			}
			id = t.ID
		}
		if err := s.CloseTab(id); err != nil {
			return nil, err
		}
		return "Closed tab " + id, nil
	default:
		return nil, fmt.Errorf("session: unknown tabs action %q (use list, new, select, close)", r.Action)
	}
}

// ExtractContent converts the current page (or one matched region of it) to
// sanitized markdown.
func (s *Session) ExtractContent(ctx context.Context, selector string) (string, error) {
	t, err := s.ActiveTab()
	if err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := t.page.HTML(ctx)
	if err != nil {
		return "", err
	}
	url, _, _ := t.page.Info(ctx)

	res, err := extract.New().FromHTML(raw, extract.Options{
		Selector: selector,
		BaseURL:  url,
		MaxChars: s.cfg.MaxContentChars,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if res.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", res.Title)
	}
	b.WriteString(res.Markdown)
	if res.Truncated {
		b.WriteString("\n\n[content truncated]")
	}
	return b.String(), nil
}
