package kit

import (
	"context"
	"errors"
	"testing"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	chained := Chain(mw("a"), mw("b"), mw("c"))(base)
	resp, err := chained(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "c_before", "endpoint", "c_after", "b_after", "a_after"}
	if len(order) != len(expected) {
		t.Fatalf("order length: got %d, want %d", len(order), len(expected))
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("order[%d]: got %q, want %q", i, order[i], expected[i])
		}
	}
}

func TestChain_ErrorShortCircuitsInner(t *testing.T) {
	boom := errors.New("boom")
	var afterRan bool

	mw := func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			resp, err := next(ctx, req)
			afterRan = true
			return resp, err
		}
	}

	base := func(_ context.Context, _ any) (any, error) { return nil, boom }

	_, err := Chain(mw)(base)(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("error: got %v, want boom", err)
	}
	if !afterRan {
		t.Fatal("middleware after-phase must still run on error")
	}
}

func TestContext_Accessors(t *testing.T) {
	ctx := context.Background()
	if got := GetTool(ctx); got != "" {
		t.Fatalf("empty context tool: got %q", got)
	}

	ctx = WithTool(ctx, "browser_click")
	ctx = WithTabID(ctx, "tab_1")
	ctx = WithRequestID(ctx, "req_9")

	if got := GetTool(ctx); got != "browser_click" {
		t.Errorf("tool: got %q", got)
	}
	if got := GetTabID(ctx); got != "tab_1" {
		t.Errorf("tab id: got %q", got)
	}
	if got := GetRequestID(ctx); got != "req_9" {
		t.Errorf("request id: got %q", got)
	}
}
