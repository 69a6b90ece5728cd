package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/tabctl/tabctl/axtree"
)

// flakyDriver serves one page but fails the first failures captures with
// DriverUnavailable, the way a frame navigating mid-walk does.
type flakyDriver struct {
	failures int
	captures int
}

func (d *flakyDriver) ListFrames(ctx context.Context) ([]axtree.Frame, error) {
	return []axtree.Frame{{ID: "top"}}, nil
}

func (d *flakyDriver) FrameVisible(ctx context.Context, f axtree.Frame) (bool, error) {
	return true, nil
}

func (d *flakyDriver) CaptureAccessibility(ctx context.Context, id axtree.FrameID) (*axtree.Node, error) {
	d.captures++
	if d.failures > 0 {
		d.failures--
		return nil, fmt.Errorf("frame detached: %w", axtree.ErrDriverUnavailable)
	}
	return &axtree.Node{
		Role:    "document",
		Backend: 1,
		Children: []*axtree.Node{
			{Role: "button", Name: "Go", Backend: 10},
		},
	}, nil
}

func (d *flakyDriver) ResolveNode(ctx context.Context, frame axtree.FrameID, backend int64) (axtree.LiveNode, error) {
	return nil, fmt.Errorf("not live: %w", axtree.ErrDanglingElement)
}

func testTab(drv axtree.Driver) *Tab {
	store := axtree.NewStore()
	return &Tab{
		ID:    "tab_test",
		cap:   axtree.NewCapturer(drv, slog.Default()),
		store: store,
		res:   axtree.NewResolver(store, drv),
	}
}

func TestCaptureLocked_RetriesDriverUnavailableOnce(t *testing.T) {
	drv := &flakyDriver{failures: 1}
	tab := testTab(drv)

	snap, err := tab.captureLocked(context.Background())
	if err != nil {
		t.Fatalf("captureLocked: %v", err)
	}
	if drv.captures != 2 {
		t.Fatalf("captures: got %d, want 2 (one failure, one retry)", drv.captures)
	}
	if snap.Generation != 1 {
		t.Fatalf("generation: got %d, want 1", snap.Generation)
	}
}

func TestCaptureLocked_SecondFailureIsFatal(t *testing.T) {
	drv := &flakyDriver{failures: 2}
	tab := testTab(drv)

	_, err := tab.captureLocked(context.Background())
	if !errors.Is(err, axtree.ErrDriverUnavailable) {
		t.Fatalf("err: got %v, want ErrDriverUnavailable", err)
	}
	if drv.captures != 2 {
		t.Fatalf("captures: got %d, want 2 (no second retry)", drv.captures)
	}
}

func TestFriendly_InstructsResnapshot(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"stale", axtree.ErrStaleGeneration, "browser_snapshot"},
		{"unknown frame", axtree.ErrUnknownFrame, "browser_snapshot"},
		{"dangling", axtree.ErrDanglingElement, "browser_snapshot"},
		{"empty store", axtree.ErrEmptyStore, "browser_snapshot"},
		{"malformed", axtree.ErrMalformedToken, "s3e7"},
		{"driver", axtree.ErrDriverUnavailable, "retry"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := friendly(fmt.Errorf("wrapped: %w", tc.err))
			if !errors.Is(got, tc.err) {
				t.Fatalf("friendly lost the sentinel: %v", got)
			}
			if !strings.Contains(got.Error(), tc.want) {
				t.Fatalf("message %q does not mention %q", got.Error(), tc.want)
			}
		})
	}
}

func TestFriendly_PassesThroughOtherErrors(t *testing.T) {
	err := errors.New("boom")
	if got := friendly(err); got != err {
		t.Fatalf("got %v, want the original error", got)
	}
}

func TestDescribeRef_UsesSnapshotNode(t *testing.T) {
	drv := &flakyDriver{}
	tab := testTab(drv)

	snap, err := tab.captureLocked(context.Background())
	if err != nil {
		t.Fatalf("captureLocked: %v", err)
	}

	var ref string
	for _, n := range snap.Root.Children {
		if n.Role == "button" {
			ref = n.Ref
		}
	}
	if ref == "" {
		t.Fatal("no ref on button node")
	}

	desc := tab.describeRef(ref)
	if !strings.Contains(desc, "button") || !strings.Contains(desc, "Go") {
		t.Fatalf("describeRef: got %q, want role and name", desc)
	}

	if got := tab.describeRef("s9e9"); got != "s9e9" {
		t.Fatalf("unknown ref: got %q, want the bare token", got)
	}
}

func TestTabsAction_UnknownAction(t *testing.T) {
	s := New(Config{})
	_, err := s.tabsAction(context.Background(), &tabsRequest{Action: "destroy"})
	if err == nil || !strings.Contains(err.Error(), "unknown tabs action") {
		t.Fatalf("err: got %v, want unknown action", err)
	}
}

func TestTabsAction_SelectNeedsTabID(t *testing.T) {
	s := New(Config{})
	_, err := s.tabsAction(context.Background(), &tabsRequest{Action: "select"})
	if err == nil || !strings.Contains(err.Error(), "tab_id") {
		t.Fatalf("err: got %v, want tab_id requirement", err)
	}
}

func TestActiveTab_EmptySession(t *testing.T) {
	s := New(Config{})
	_, err := s.ActiveTab()
	if err == nil || !strings.Contains(err.Error(), "no open tabs") {
		t.Fatalf("err: got %v, want no open tabs", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.defaults()
	if cfg.NavigateTimeout <= 0 {
		t.Error("NavigateTimeout not defaulted")
	}
	if cfg.WaitTimeout <= 0 {
		t.Error("WaitTimeout not defaulted")
	}
	if cfg.MaxContentChars <= 0 {
		t.Error("MaxContentChars not defaulted")
	}
	if cfg.Browser.MemoryLimitMB != 1024 {
		t.Errorf("MemoryLimitMB: got %d, want 1024", cfg.Browser.MemoryLimitMB)
	}
}
