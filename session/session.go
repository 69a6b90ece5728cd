// Package session is the command layer over referenced accessibility
// snapshots: a registry of browser tabs, per-tab operation sequencing, and
// the MCP tools that let an agent navigate, act on elements by reference
// token, and read back the post-action page state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tabctl/tabctl/axtree"
	"github.com/tabctl/tabctl/idgen"
	"github.com/tabctl/tabctl/observability"
	"github.com/tabctl/tabctl/session/internal/browser"
	"github.com/tabctl/tabctl/session/internal/driver"
)

// Tab is one browser tab with its own snapshot store and generation counter.
// The mutex serializes captures and mutating actions: one outstanding
// browser operation per tab at a time.
type Tab struct {
	ID string

	mu    sync.Mutex
	page  *browser.Tab
	drv   *driver.Driver
	cap   *axtree.Capturer
	store *axtree.Store
	res   *axtree.Resolver
}

// TabInfo is the list-tabs view of a Tab.
type TabInfo struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// Session owns the tab registry and the shared browser process.
type Session struct {
	cfg      Config
	log      *slog.Logger
	mgr      *browser.Manager
	audit    *observability.CommandLog
	newTabID idgen.Generator

	mu     sync.Mutex
	tabs   map[string]*Tab
	order  []string
	active string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithAudit records every tool invocation to the given command log.
func WithAudit(l *observability.CommandLog) SessionOption {
	return func(s *Session) { s.audit = l }
}

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithTabIDGenerator overrides the tab id scheme.
func WithTabIDGenerator(gen idgen.Generator) SessionOption {
	return func(s *Session) { s.newTabID = gen }
}

// New creates a Session. Call Start before registering tools.
func New(cfg Config, opts ...SessionOption) *Session {
	cfg.defaults()
	s := &Session{
		cfg:      cfg,
		log:      slog.Default(),
		newTabID: idgen.Prefixed("tab_", idgen.NanoID(8)),
		tabs:     make(map[string]*Tab),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mgr = browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.RemoteURL,
		MemoryLimit:      int64(cfg.Browser.MemoryLimitMB) << 20,
		RecycleInterval:  cfg.Browser.RecycleInterval,
		NavTimeout:       cfg.NavigateTimeout,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          !cfg.Browser.NoStealth,
		Logger:           s.log,
	})
	// Chrome recycling kills every page; tabs and their references do not
	// survive it.
	s.mgr.SetRecycleCallback(&browser.RecycleCallback{
		BeforeRecycle: s.dropAllTabs,
	})
	return s
}

// Start launches (or connects to) Chrome.
func (s *Session) Start(ctx context.Context) error {
	_, err := s.mgr.Start(ctx)
	return err
}

// Close shuts down all tabs and the browser.
func (s *Session) Close() error {
	s.dropAllTabs()
	return s.mgr.Close()
}

func (s *Session) dropAllTabs() {
	s.mu.Lock()
	tabs := s.tabs
	s.tabs = make(map[string]*Tab)
	s.order = nil
	s.active = ""
	s.mu.Unlock()

	for _, t := range tabs {
		t.store.Drop()
		if err := t.page.Close(); err != nil {
			s.log.Debug("session: close tab", "tab", t.ID, "error", err)
		}
	}
}

// NewTab opens a tab, optionally navigates it, and makes it active.
func (s *Session) NewTab(ctx context.Context, url string) (*Tab, error) {
	id := s.newTabID()

	page, err := browser.OpenTab(ctx, s.mgr, url, id)
	if err != nil {
		return nil, fmt.Errorf("session: open tab: %w", err)
	}

	drv := driver.New(page.Page, s.log)
	store := axtree.NewStore()
	t := &Tab{
		ID:    id,
		page:  page,
		drv:   drv,
		cap:   axtree.NewCapturer(drv, s.log),
		store: store,
		res:   axtree.NewResolver(store, drv),
	}

	s.mu.Lock()
	s.tabs[id] = t
	s.order = append(s.order, id)
	s.active = id
	s.mu.Unlock()

	s.log.Info("session: tab opened", "tab", id, "url", url)
	return t, nil
}

// ActiveTab returns the currently selected tab.
func (s *Session) ActiveTab() (*Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == "" {
		return nil, fmt.Errorf("session: no open tabs; use browser_navigate or browser_tabs action=new first")
	}
	return s.tabs[s.active], nil
}

// SelectTab makes a tab active.
func (s *Session) SelectTab(id string) (*Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[id]
	if !ok {
		return nil, fmt.Errorf("session: unknown tab %q", id)
	}
	s.active = id
	return t, nil
}

// CloseTab closes a tab and discards its snapshot store. Closing the active
// tab promotes the most recently opened remaining tab.
func (s *Session) CloseTab(id string) error {
	s.mu.Lock()
	t, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("session: unknown tab %q", id)
	}
	delete(s.tabs, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.active == id {
		s.active = ""
		if len(s.order) > 0 {
			s.active = s.order[len(s.order)-1]
		}
	}
	s.mu.Unlock()

	t.store.Drop()
	if err := t.page.Close(); err != nil {
		return fmt.Errorf("session: close tab %s: %w", id, err)
	}
	s.log.Info("session: tab closed", "tab", id)
	return nil
}

// ListTabs returns every open tab in open order.
func (s *Session) ListTabs(ctx context.Context) []TabInfo {
	s.mu.Lock()
	order := append([]string(nil), s.order...)
	tabs := make(map[string]*Tab, len(s.tabs))
	for id, t := range s.tabs {
		tabs[id] = t
	}
	active := s.active
	s.mu.Unlock()

	infos := make([]TabInfo, 0, len(order))
	for _, id := range order {
		t := tabs[id]
		info := TabInfo{ID: id, Active: id == active}
		url, title, err := t.page.Info(ctx)
		if err != nil {
			s.log.Debug("session: tab info", "tab", id, "error", err)
			info.URL = t.page.PageURL
		} else {
			info.URL = url
			info.Title = title
		}
		infos = append(infos, info)
	}
	return infos
}

// Stats feeds the observability heartbeat.
func (s *Session) Stats() observability.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := observability.Stats{
		Tabs:      len(s.tabs),
		ActiveTab: s.active,
	}
	for _, t := range s.tabs {
		st.Generations += t.store.Generation()
	}
	return st
}

// SnapshotText returns the last committed outline for a tab, for the debug
// endpoint. Empty id means the active tab.
func (s *Session) SnapshotText(id string) (string, error) {
	s.mu.Lock()
	if id == "" {
		id = s.active
	}
	t, ok := s.tabs[id]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("session: unknown tab %q", id)
	}
	snap, ok := t.store.Current()
	if !ok {
		return "", fmt.Errorf("session: tab %s has no snapshot yet", id)
	}
	return snap.Text(), nil
}
