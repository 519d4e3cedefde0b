package models

import (
	"fmt"
	"strings"
)

// Address is a customer or order address. Only the fields used for phone
// lookup and message rendering are modelled.
type Address struct {
	ID              string   `json:"id,omitempty"`
	FirstName       string   `json:"firstname,omitempty"`
	LastName        string   `json:"lastname,omitempty"`
	Telephone       string   `json:"telephone,omitempty"`
	Street          []string `json:"street,omitempty"`
	City            string   `json:"city,omitempty"`
	Region          string   `json:"region,omitempty"`
	Postcode        string   `json:"postcode,omitempty"`
	CountryID       string   `json:"country_id,omitempty"`
	PrimaryBilling  bool     `json:"default_billing,omitempty"`
	PrimaryShipping bool     `json:"default_shipping,omitempty"`
}

// Name joins first and last name.
func (a *Address) Name() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Phone returns the telephone of a possibly nil address.
func (a *Address) Phone() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.Telephone)
}

// IsPrimary reports whether the address is a default billing or shipping address.
func (a *Address) IsPrimary() bool {
	return a != nil && (a.PrimaryBilling || a.PrimaryShipping)
}

// Format renders the address on one line, skipping empty parts. A nil
// address renders as "N/A".
func (a *Address) Format() string {
	if a == nil {
		return "N/A"
	}
	parts := make([]string, 0, 5)
	if street := strings.Join(nonBlank(a.Street), ", "); street != "" {
		parts = append(parts, street)
	}
	parts = append(parts, nonBlank([]string{a.City, a.Region, a.Postcode, a.CountryID})...)
	return strings.Join(parts, ", ")
}

// Customer is an account holder.
type Customer struct {
	ID        string    `json:"id,omitempty"`
	Scope     string    `json:"scope,omitempty"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"firstname,omitempty"`
	LastName  string    `json:"lastname,omitempty"`
	Telephone string    `json:"telephone,omitempty"`
	Addresses []Address `json:"addresses,omitempty"`
}

// Name joins first and last name.
func (c *Customer) Name() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// PrimaryBilling returns the default billing address, if any.
func (c *Customer) PrimaryBilling() *Address {
	if c == nil {
		return nil
	}
	for i := range c.Addresses {
		if c.Addresses[i].PrimaryBilling {
			return &c.Addresses[i]
		}
	}
	return nil
}

// PrimaryShipping returns the default shipping address, if any.
func (c *Customer) PrimaryShipping() *Address {
	if c == nil {
		return nil
	}
	for i := range c.Addresses {
		if c.Addresses[i].PrimaryShipping {
			return &c.Addresses[i]
		}
	}
	return nil
}

// Order is a placed sales order.
type Order struct {
	ID                string   `json:"id,omitempty"`
	IncrementID       string   `json:"increment_id"`
	Scope             string   `json:"scope,omitempty"`
	Status            string   `json:"status,omitempty"`
	CustomerFirstName string   `json:"customer_firstname,omitempty"`
	CustomerLastName  string   `json:"customer_lastname,omitempty"`
	CustomerEmail     string   `json:"customer_email,omitempty"`
	GrandTotal        float64  `json:"grand_total"`
	CurrencyCode      string   `json:"currency_code,omitempty"`
	PaymentMethod     string   `json:"payment_method,omitempty"`
	ShippingMethod    string   `json:"shipping_method,omitempty"`
	ItemsCount        int      `json:"items_count,omitempty"`
	BillingAddress    *Address `json:"billing_address,omitempty"`
	ShippingAddress   *Address `json:"shipping_address,omitempty"`
}

// Phone returns the billing telephone, falling back to the shipping one.
func (o *Order) Phone() string {
	if o == nil {
		return ""
	}
	if phone := o.BillingAddress.Phone(); phone != "" {
		return phone
	}
	return o.ShippingAddress.Phone()
}

// CustomerName returns the customer name on the order, then the billing
// name, then "Customer".
func (o *Order) CustomerName() string {
	if o == nil {
		return "Customer"
	}
	if name := strings.TrimSpace(o.CustomerFirstName + " " + o.CustomerLastName); name != "" {
		return name
	}
	if name := o.BillingAddress.Name(); name != "" {
		return name
	}
	return "Customer"
}

// FormattedTotal renders the grand total with the order currency.
func (o *Order) FormattedTotal() string {
	if o == nil {
		return ""
	}
	return FormatPrice(o.GrandTotal, o.CurrencyCode)
}

// Shipment is a shipment created for an order.
type Shipment struct {
	IncrementID     string   `json:"increment_id"`
	TrackingNumbers []string `json:"tracking_numbers,omitempty"`
	Order           *Order   `json:"order"`
}

// Tracking joins the tracking numbers, or returns "N/A".
func (s *Shipment) Tracking() string {
	if s == nil {
		return "N/A"
	}
	if joined := strings.Join(nonBlank(s.TrackingNumbers), ", "); joined != "" {
		return joined
	}
	return "N/A"
}

// Invoice is an invoice created for an order.
type Invoice struct {
	IncrementID string  `json:"increment_id"`
	GrandTotal  float64 `json:"grand_total"`
	Order       *Order  `json:"order"`
}

// StatusHistory is a status change recorded on an order.
type StatusHistory struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
	Order   *Order `json:"order"`
}

// OrderStatusComplete is the status that triggers a delivered notification.
const OrderStatusComplete = "complete"

// RegistrationForm is the data submitted when creating an account.
type RegistrationForm struct {
	Scope     string `json:"scope,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Telephone string `json:"telephone,omitempty"`
}

// FormatPrice renders amount with two decimals, prefixed by the currency
// code when one is known.
func FormatPrice(amount float64, currency string) string {
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%s %.2f", strings.ToUpper(currency), amount)
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
