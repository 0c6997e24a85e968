package shop

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tgnotifier/internal/render"
)

type fakeGeo struct {
	calls int
	name  string
}

func (g *fakeGeo) Country(_ context.Context, ip string) string {
	g.calls++
	return g.name
}

func TestParseEnvelope(t *testing.T) {
	t.Parallel()

	ev, err := ParseEnvelope([]byte(`{"type":"order_placed","occurred_at":"2024-05-01T10:00:00Z","payload":{"reference":"ORD-1","total":"$10.00","products":[{"name":"Mug","quantity":2,"unit_price":3.5}]}}`))
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if ev.Kind != KindOrderPlaced || ev.Order == nil {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Order.Reference != "ORD-1" || ev.Order.Total != "$10.00" || len(ev.Order.Products) != 1 {
		t.Fatalf("order = %+v", ev.Order)
	}
	if !ev.At.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("at = %v", ev.At)
	}

	ev, err = ParseEnvelope([]byte(`{"type":"new_customer","payload":{"firstname":"Ann","lastname":"Lee","email":"a@b.c","newsletter":true}}`))
	if err != nil {
		t.Fatalf("ParseEnvelope customer: %v", err)
	}
	if ev.Customer == nil || ev.Customer.FullName() != "Ann Lee" || !ev.Customer.Newsletter {
		t.Fatalf("customer = %+v", ev.Customer)
	}

	ev, err = ParseEnvelope([]byte(`{"type":"test"}`))
	if err != nil || ev.Kind != KindTest {
		t.Fatalf("test event = %+v, %v", ev, err)
	}
}

func TestParseEnvelopeRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"no type", `{"payload":{}}`},
		{"unknown type", `{"type":"refund"}`},
		{"order without payload", `{"type":"order_placed"}`},
		{"order without reference", `{"type":"order_placed","payload":{"total":"1"}}`},
		{"login without email", `{"type":"admin_login","payload":{"firstname":"x"}}`},
		{"payload not object", `{"type":"test","payload":[1]}`},
		{"bad quantity", `{"type":"order_placed","payload":{"reference":"R","products":[{"name":"a","quantity":"two"}]}}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseEnvelope([]byte(tc.body))
			if !errors.Is(err, ErrBadEnvelope) {
				t.Fatalf("err = %v, want ErrBadEnvelope", err)
			}
		})
	}
}

func TestOrderFields(t *testing.T) {
	t.Parallel()

	geo := &fakeGeo{name: "France"}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := Event{Kind: KindOrderPlaced, Order: &Order{
		Reference:    "ORD-1",
		ShopName:     "Tom & Jerry",
		Customer:     Person{FirstName: "Ann", LastName: "Lee", Email: "a@b.c"},
		ClientIP:     "1.2.3.4",
		TotalPaid:    1234.5,
		CurrencySign: "€",
		ShippingAddress: Address{
			Address1: "1 Main St", Postcode: "75001", City: "Paris", Phone: "111", PhoneMobile: "222",
		},
		Products: []Product{{Name: "Mug <XL>", Link: "https://shop/p?id=1&x=2", Quantity: 2, UnitPrice: 3.5}},
	}}

	fields := Fields(context.Background(), ev, geo, now)
	out, err := render.Render("{shop_name}|{total_paid}|{phone_number}|{date_time}|{country}/{country}", fields)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "Tom &amp; Jerry|€1 234.50|222|2024-01-02 03:04:05|France/France"
	if out != want {
		t.Fatalf("out = %q, want %q", out, want)
	}
	if geo.calls != 1 {
		t.Fatalf("geo calls = %d, want 1", geo.calls)
	}

	out, err = render.Render("{products_list}", fields)
	if err != nil {
		t.Fatalf("Render products: %v", err)
	}
	wantList := `- <a href="https://shop/p?id=1&amp;x=2">Mug &lt;XL&gt;</a> x 2 (€3.50)` + "\n"
	if out != wantList {
		t.Fatalf("products = %q, want %q", out, wantList)
	}
}

func TestCountryNotResolvedWhenUnused(t *testing.T) {
	t.Parallel()

	geo := &fakeGeo{name: "X"}
	ev := Event{Kind: KindAdminLogin, Employee: &Employee{Person: Person{FirstName: "A", LastName: "B"}, ClientIP: "1.1.1.1"}}
	out, err := render.Render("{employee_name} {ip_address}", Fields(context.Background(), ev, geo, time.Now()))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "A B 1.1.1.1" || geo.calls != 0 {
		t.Fatalf("out = %q, calls = %d", out, geo.calls)
	}
}

func TestCustomerFields(t *testing.T) {
	t.Parallel()

	ev := Event{Kind: KindNewCustomer, Customer: &Customer{Birthday: "1990-07-04 00:00:00", Gender: "Mrs", Newsletter: false}}
	out, err := render.Render("{birthday}|{gender}|{newsletter}|{customer_email}", Fields(context.Background(), ev, nil, time.Now()))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "1990-07-04|Mrs|❌|" {
		t.Fatalf("out = %q", out)
	}
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		v    float64
		sign string
		want string
	}{
		{0, "$", "$0.00"},
		{10, "$", "$10.00"},
		{1234.5, "€", "€1 234.50"},
		{1234567.891, "", "1 234 567.89"},
		{-12.3, "$", "$-12.30"},
		{0.005, "$", "$0.01"},
	}
	for _, tc := range cases {
		if got := FormatPrice(tc.v, tc.sign); got != tc.want {
			t.Fatalf("FormatPrice(%v, %q) = %q, want %q", tc.v, tc.sign, got, tc.want)
		}
	}
}

func TestFormatAddress(t *testing.T) {
	t.Parallel()

	got := FormatAddress(Address{Company: "ACME", Address1: "1 Main", Postcode: "75001", City: "Paris", Country: "France"})
	want := strings.Join([]string{"🏢 ACME", "📍 1 Main", "📮 75001 🏙️ Paris", "🌍 France"}, "\n")
	if got != want {
		t.Fatalf("address = %q, want %q", got, want)
	}
	if got := FormatAddress(Address{Postcode: "1000"}); got != "📮 1000" {
		t.Fatalf("postcode only = %q", got)
	}
	if got := FormatAddress(Address{}); got != "" {
		t.Fatalf("empty = %q", got)
	}
}

func TestFormatBirthday(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"":                    "",
		"0000-00-00":          "",
		"1990-07-04":          "1990-07-04",
		"1990-07-04 00:00:00": "1990-07-04",
	} {
		if got := FormatBirthday(in); got != want {
			t.Fatalf("FormatBirthday(%q) = %q, want %q", in, got, want)
		}
	}
}
