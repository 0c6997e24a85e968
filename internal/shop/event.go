// Package shop models the store events that trigger notifications and
// exposes their template placeholders.
package shop

import (
	"time"
)

type Kind string

const (
	KindOrderPlaced Kind = "order_placed"
	KindAdminLogin  Kind = "admin_login"
	KindNewCustomer Kind = "new_customer"
	KindTest        Kind = "test"
)

// TestMessage is the fixed text of a test event.
const TestMessage = "This is a test message from your PrestaShop Telegram Notifier."

// Event is one triggering event. Exactly one payload pointer matches Kind
// (none for KindTest).
type Event struct {
	Kind Kind
	At   time.Time

	Order    *Order
	Employee *Employee
	Customer *Customer
}

type Person struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}

type Address struct {
	Company     string `json:"company"`
	VATNumber   string `json:"vat_number"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	Postcode    string `json:"postcode"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	Phone       string `json:"phone"`
	PhoneMobile string `json:"phone_mobile"`
}

type Product struct {
	Name       string  `json:"name"`
	Attributes string  `json:"attributes"`
	Link       string  `json:"link"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	// Price, when set, is shown verbatim instead of UnitPrice.
	Price string `json:"price"`
}

type Order struct {
	Reference string `json:"reference"`
	ShopName  string `json:"shop_name"`
	Customer  Person `json:"customer"`
	ClientIP  string `json:"ip"`

	// Total, when set, is shown verbatim; otherwise TotalPaid is formatted
	// with CurrencySign.
	Total        string  `json:"total"`
	TotalPaid    float64 `json:"total_paid"`
	CurrencySign string  `json:"currency_sign"`

	ShippingAddress Address   `json:"shipping_address"`
	Carrier         string    `json:"carrier"`
	Payment         string    `json:"payment"`
	Products        []Product `json:"products"`
	Comment         string    `json:"comment"`
}

type Employee struct {
	Person
	ClientIP string `json:"ip"`
}

type Customer struct {
	Person
	ClientIP   string `json:"ip"`
	Birthday   string `json:"birthday"`
	Gender     string `json:"gender"`
	Newsletter bool   `json:"newsletter"`
}

// FullName joins first and last name with a single space.
func (p Person) FullName() string { return p.FirstName + " " + p.LastName }
