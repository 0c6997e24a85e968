package render

import (
	"errors"
	"testing"
)

func counting(v string, n *int) Provider {
	return func() (string, error) {
		*n++
		return v, nil
	}
}

func TestRenderOnlyReferencedProviders(t *testing.T) {
	t.Parallel()
	var refCalls, unusedCalls int
	fields := Fields{
		"order_reference": counting("ORD-1", &refCalls),
		"country":         counting("Nowhere", &unusedCalls),
	}
	got, err := Render("Order {order_reference} ({order_reference})", fields)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Order ORD-1 (ORD-1)" {
		t.Fatalf("Render = %q", got)
	}
	if refCalls != 1 {
		t.Fatalf("referenced provider ran %d times, want 1", refCalls)
	}
	if unusedCalls != 0 {
		t.Fatalf("unreferenced provider ran %d times, want 0", unusedCalls)
	}
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	t.Parallel()
	got, err := Render("Hi {name}, {unknown} {", Fields{"name": Static("Ann")})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Hi Ann, {unknown} {" {
		t.Fatalf("Render = %q", got)
	}
}

func TestRenderDoesNotRescanValues(t *testing.T) {
	t.Parallel()
	var calls int
	fields := Fields{
		"a": Static("{b}"),
		"b": counting("B", &calls),
	}
	got, err := Render("{a}", fields)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "{b}" || calls != 0 {
		t.Fatalf("Render = %q, b calls = %d", got, calls)
	}
}

func TestRenderNestedBrace(t *testing.T) {
	t.Parallel()
	got, err := Render("{x {name}}", Fields{"name": Static("Ann")})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "{x Ann}" {
		t.Fatalf("Render = %q", got)
	}
}

func TestRenderProviderError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := Render("{ok} {bad}", Fields{
		"ok":  Static("fine"),
		"bad": func() (string, error) { return "", boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}

func TestOnceSharesResult(t *testing.T) {
	t.Parallel()
	var calls int
	ip := Once(counting("10.0.0.1", &calls))
	fields := Fields{
		"ip_address": ip,
		"country": func() (string, error) {
			v, err := ip()
			return "geo(" + v + ")", err
		},
	}
	got, err := Render("{ip_address} {country}", fields)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "10.0.0.1 geo(10.0.0.1)" {
		t.Fatalf("Render = %q", got)
	}
	if calls != 1 {
		t.Fatalf("shared provider ran %d times, want 1", calls)
	}
}
