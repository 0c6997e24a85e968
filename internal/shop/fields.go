package shop

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"tgnotifier/internal/render"
	"tgnotifier/pkg/tgui"
)

const dateTimeLayout = "2006-01-02 15:04:05"

// Locator resolves an IP to a country name. It never fails.
type Locator interface {
	Country(ctx context.Context, ip string) string
}

// Fields returns the placeholder providers for ev. Every value is HTML
// escaped; product names become links. Providers that touch the network
// (country) only run if their placeholder is used.
func Fields(ctx context.Context, ev Event, geo Locator, now time.Time) render.Fields {
	dateTime := render.Static(now.Format(dateTimeLayout))

	switch ev.Kind {
	case KindOrderPlaced:
		o := ev.Order
		if o == nil {
			o = &Order{}
		}
		ip := o.ClientIP
		return render.Fields{
			"order_reference":  esc(o.Reference),
			"shop_name":        esc(o.ShopName),
			"customer_name":    esc(o.Customer.FullName()),
			"customer_email":   esc(o.Customer.Email),
			"ip_address":       esc(ip),
			"country":          country(ctx, geo, ip),
			"date_time":        dateTime,
			"phone_number":     esc(o.ShippingAddress.PhoneNumber()),
			"total_paid":       esc(o.TotalDisplay()),
			"shipping_address": esc(FormatAddress(o.ShippingAddress)),
			"delivery_method":  esc(o.Carrier),
			"payment_method":   esc(o.Payment),
			"products_list": func() (string, error) {
				return ProductsList(o.Products, o.CurrencySign), nil
			},
			"order_comment": esc(o.Comment),
		}

	case KindAdminLogin:
		e := ev.Employee
		if e == nil {
			e = &Employee{}
		}
		return render.Fields{
			"employee_name":  esc(e.FullName()),
			"employee_email": esc(e.Email),
			"ip_address":     esc(e.ClientIP),
			"country":        country(ctx, geo, e.ClientIP),
			"date_time":      dateTime,
		}

	case KindNewCustomer:
		c := ev.Customer
		if c == nil {
			c = &Customer{}
		}
		return render.Fields{
			"customer_name":  esc(c.FullName()),
			"customer_email": esc(c.Email),
			"ip_address":     esc(c.ClientIP),
			"country":        country(ctx, geo, c.ClientIP),
			"date_time":      dateTime,
			"birthday":       esc(FormatBirthday(c.Birthday)),
			"gender":         esc(c.Gender),
			"newsletter":     render.Static(checkmark(c.Newsletter)),
		}
	}
	return render.Fields{}
}

func esc(s string) render.Provider { return render.Static(tgui.Esc(s).String()) }

func country(ctx context.Context, geo Locator, ip string) render.Provider {
	return render.Once(func() (string, error) {
		if geo == nil {
			return "Unknown", nil
		}
		return tgui.Esc(geo.Country(ctx, ip)).String(), nil
	})
}

func checkmark(b bool) string {
	if b {
		return "✅"
	}
	return "❌"
}

// PhoneNumber prefers the mobile number.
func (a Address) PhoneNumber() string {
	if a.PhoneMobile != "" {
		return a.PhoneMobile
	}
	return a.Phone
}

// TotalDisplay is the preformatted Total if present, else TotalPaid with
// the currency sign.
func (o Order) TotalDisplay() string {
	if o.Total != "" {
		return o.Total
	}
	return FormatPrice(o.TotalPaid, o.CurrencySign)
}

// FormatPrice renders sign + amount with two decimals, '.' as decimal
// separator and ' ' between thousands: FormatPrice(1234.5, "$") = "$1 234.50".
func FormatPrice(v float64, sign string) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var b strings.Builder
	b.WriteString(sign)
	if neg && cents != 0 {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return b.String()
}

var addressLines = []struct {
	prefix string
	get    func(Address) string
}{
	{"🏢 ", func(a Address) string { return a.Company }},
	{"📝 ", func(a Address) string { return a.VATNumber }},
	{"📍 ", func(a Address) string { return a.Address1 }},
	{"📍2️⃣ ", func(a Address) string { return a.Address2 }},
	{"📮 ", func(a Address) string { return a.Postcode }},
	{"🏙️ ", func(a Address) string { return a.City }},
	{"🏛️ ", func(a Address) string { return a.State }},
	{"🌍 ", func(a Address) string { return a.Country }},
}

// FormatAddress prints one emoji-prefixed line per non-empty field. When both
// postcode and city are set they share the city line.
func FormatAddress(a Address) string {
	lines := make([]string, 0, len(addressLines))
	for _, f := range addressLines {
		v := f.get(a)
		if v == "" {
			continue
		}
		line := f.prefix + v
		if f.prefix == "🏙️ " && a.Postcode != "" {
			// postcode line is always the one right before
			lines[len(lines)-1] += " " + line
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// ProductsList renders one line per product:
// - <a href="link">name</a> (attributes) x qty (price)
func ProductsList(products []Product, sign string) string {
	var b strings.Builder
	for _, p := range products {
		b.WriteString("- ")
		b.WriteString(tgui.Link(p.Name, p.Link).String())
		if p.Attributes != "" {
			b.WriteString(" (")
			b.WriteString(tgui.Esc(p.Attributes).String())
			b.WriteString(")")
		}
		b.WriteString(" x ")
		b.WriteString(strconv.Itoa(p.Quantity))
		b.WriteString(" (")
		price := p.Price
		if price == "" {
			price = FormatPrice(p.UnitPrice, sign)
		}
		b.WriteString(tgui.Esc(price).String())
		b.WriteString(")\n")
	}
	return b.String()
}

// FormatBirthday normalizes a date to YYYY-MM-DD. Empty or zero dates give "".
func FormatBirthday(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return ""
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, dateTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
