// Package hooks exposes the points at which the surrounding application
// calls into identity bridging and notifications. Each hook is an explicit
// function call; the application decides when to invoke it and owns
// persistence of anything a hook returns.
package hooks

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/phone-mailer/internal/identity"
	"github.com/example/phone-mailer/internal/models"
	"github.com/example/phone-mailer/internal/notify"
)

// Flags is the subset of settings the hooks gate on.
type Flags interface {
	IsEnabled(ctx context.Context, scope string) bool
	IsMessagingEnabled(ctx context.Context, scope string) bool
}

// Notifier sends the lifecycle notifications.
type Notifier interface {
	NotifyWelcome(ctx context.Context, customer *models.Customer, scope string) notify.Attempt
	NotifyOrderPlaced(ctx context.Context, order *models.Order, scope string) notify.Attempt
	NotifyShipmentCreated(ctx context.Context, shipment *models.Shipment, scope string) notify.Attempt
	NotifyInvoiceCreated(ctx context.Context, invoice *models.Invoice, scope string) notify.Attempt
	NotifyOrderDelivered(ctx context.Context, history *models.StatusHistory, scope string) notify.Attempt
}

// AddressSaveResult tells the caller which email the customer should carry
// after an address save. Changed is false when Email equals the current one.
type AddressSaveResult struct {
	Email   string `json:"email"`
	Changed bool   `json:"changed"`
}

// Hooks wires the identity bridge and notifier behind the feature flags.
type Hooks struct {
	flags    Flags
	bridge   *identity.Bridge
	notifier Notifier
	logger   zerolog.Logger
}

// New constructs Hooks.
func New(flags Flags, bridge *identity.Bridge, notifier Notifier, logger zerolog.Logger) (*Hooks, error) {
	if flags == nil {
		return nil, errors.New("hooks: settings dependency is required")
	}
	if bridge == nil {
		return nil, errors.New("hooks: identity bridge dependency is required")
	}
	if notifier == nil {
		return nil, errors.New("hooks: notifier dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Hooks{flags: flags, bridge: bridge, notifier: notifier, logger: logger}, nil
}

// PrepareRegistration fills in a synthetic email when the form has none.
// A form without a usable phone fails with identity.ErrPhoneRequired.
func (h *Hooks) PrepareRegistration(ctx context.Context, form *models.RegistrationForm) error {
	if form == nil {
		return nil
	}
	scope := h.scope(form.Scope)
	if !h.flags.IsEnabled(ctx, scope) || strings.TrimSpace(form.Email) != "" {
		return nil
	}
	email, err := h.bridge.GenerateEmailFromPhone(ctx, form.Telephone, scope)
	if err != nil {
		return err
	}
	form.Email = email
	h.logger.Info().Str("scope", scope).Str("email", email).Msg("generated email for registration form")
	return nil
}

// EnsureCustomerEmail synthesizes an email for a customer about to be saved
// whose email is missing or invalid. Failures are logged; the save goes on.
func (h *Hooks) EnsureCustomerEmail(ctx context.Context, customer *models.Customer) {
	if customer == nil {
		return
	}
	scope := h.scope(customer.Scope)
	if !h.flags.IsEnabled(ctx, scope) || identity.IsValidEmail(customer.Email) {
		return
	}
	phone := customerPhone(customer)
	if phone == "" {
		return
	}
	email, err := h.bridge.GenerateEmailFromPhone(ctx, phone, scope)
	if err != nil {
		h.logger.Error().Err(err).Str("scope", scope).Str("customer_id", customer.ID).Msg("could not generate customer email")
		return
	}
	customer.Email = email
	h.logger.Info().Str("scope", scope).Str("customer_id", customer.ID).Str("email", email).Msg("generated customer email")
}

// PrepareGuestCheckout replaces an invalid guest email with one generated
// from the billing telephone. Without a billing phone the email is
// returned as given.
func (h *Hooks) PrepareGuestCheckout(ctx context.Context, email string, billing *models.Address, scope string) (string, error) {
	scope = h.scope(scope)
	if !h.flags.IsEnabled(ctx, scope) || identity.IsValidEmail(email) {
		return email, nil
	}
	phone := billing.Phone()
	if phone == "" {
		return email, nil
	}
	generated, err := h.bridge.GenerateEmailFromPhone(ctx, phone, scope)
	if err != nil {
		h.logger.Error().Err(err).Str("scope", scope).Msg("could not generate guest checkout email")
		return email, err
	}
	h.logger.Info().Str("scope", scope).Str("email", generated).Msg("generated email for guest checkout")
	return generated, nil
}

// ResolveLogin maps a phone-shaped username to the synthetic email used as
// the account login.
func (h *Hooks) ResolveLogin(ctx context.Context, username string) string {
	if !h.flags.IsEnabled(ctx, h.bridge.DefaultScope()) {
		return username
	}
	resolved := h.bridge.NormalizeLoginIdentifier(ctx, username)
	if resolved != username {
		h.logger.Info().Str("email", resolved).Msg("login with phone number")
	}
	return resolved
}

// ResolvePasswordReset maps a phone-shaped identifier to the synthetic email
// of scope for a password reset request.
func (h *Hooks) ResolvePasswordReset(ctx context.Context, identifier, scope string) string {
	scope = h.scope(scope)
	if !h.flags.IsEnabled(ctx, scope) {
		return identifier
	}
	return h.bridge.NormalizeIdentifier(ctx, identifier, scope)
}

// OnAccountCreated sends the welcome message.
func (h *Hooks) OnAccountCreated(ctx context.Context, customer *models.Customer) notify.Attempt {
	if customer == nil {
		return skipped("no customer")
	}
	scope := h.scope(customer.Scope)
	if !h.messaging(ctx, scope) {
		return skipped(notify.ReasonMessagingDisabled)
	}
	return h.notifier.NotifyWelcome(ctx, customer, scope)
}

// OnOrderPlaced sends the order confirmation.
func (h *Hooks) OnOrderPlaced(ctx context.Context, order *models.Order) notify.Attempt {
	if order == nil || order.IncrementID == "" {
		return skipped("no order")
	}
	scope := h.scope(order.Scope)
	if !h.messaging(ctx, scope) {
		return skipped(notify.ReasonMessagingDisabled)
	}
	return h.notifier.NotifyOrderPlaced(ctx, order, scope)
}

// OnShipmentCreated sends the shipping confirmation.
func (h *Hooks) OnShipmentCreated(ctx context.Context, shipment *models.Shipment) notify.Attempt {
	if shipment == nil || shipment.Order == nil {
		return skipped("no order")
	}
	scope := h.scope(shipment.Order.Scope)
	if !h.messaging(ctx, scope) {
		return skipped(notify.ReasonMessagingDisabled)
	}
	return h.notifier.NotifyShipmentCreated(ctx, shipment, scope)
}

// OnInvoiceCreated sends the invoice confirmation.
func (h *Hooks) OnInvoiceCreated(ctx context.Context, invoice *models.Invoice) notify.Attempt {
	if invoice == nil || invoice.Order == nil {
		return skipped("no order")
	}
	scope := h.scope(invoice.Order.Scope)
	if !h.messaging(ctx, scope) {
		return skipped(notify.ReasonMessagingDisabled)
	}
	return h.notifier.NotifyInvoiceCreated(ctx, invoice, scope)
}

// OnOrderStatusChanged sends the delivered notification for completed orders.
func (h *Hooks) OnOrderStatusChanged(ctx context.Context, history *models.StatusHistory) notify.Attempt {
	if history == nil || history.Order == nil {
		return skipped("no order")
	}
	scope := h.scope(history.Order.Scope)
	if !h.messaging(ctx, scope) {
		return skipped(notify.ReasonMessagingDisabled)
	}
	return h.notifier.NotifyOrderDelivered(ctx, history, scope)
}

// OnAddressSaved recomputes a generated customer email after a primary
// address was saved with a phone number. Errors are logged and the current
// email is kept.
func (h *Hooks) OnAddressSaved(ctx context.Context, customer *models.Customer, address *models.Address) AddressSaveResult {
	if customer == nil {
		return AddressSaveResult{}
	}
	result := AddressSaveResult{Email: customer.Email}
	scope := h.scope(customer.Scope)
	if !h.flags.IsEnabled(ctx, scope) || customer.ID == "" || !address.IsPrimary() || address.Phone() == "" {
		return result
	}

	email, err := h.bridge.RegenerateIfNeeded(ctx, customer.Email, address.Phone(), scope)
	if err != nil {
		h.logger.Error().Err(err).Str("scope", scope).Str("customer_id", customer.ID).Msg("could not regenerate customer email")
		return result
	}
	if email != customer.Email {
		h.logger.Info().
			Str("scope", scope).
			Str("customer_id", customer.ID).
			Str("email", email).
			Msg("customer email follows address phone change")
		result.Email = email
		result.Changed = true
	}
	return result
}

func (h *Hooks) scope(scope string) string {
	if scope = strings.TrimSpace(scope); scope != "" {
		return scope
	}
	return h.bridge.DefaultScope()
}

func (h *Hooks) messaging(ctx context.Context, scope string) bool {
	return h.flags.IsMessagingEnabled(ctx, scope)
}

func skipped(reason string) notify.Attempt {
	return notify.Attempt{Outcome: notify.OutcomeSkipped, Reason: reason}
}

// customerPhone returns the primary billing, primary shipping or attribute
// telephone, without falling back to the email.
func customerPhone(c *models.Customer) string {
	if phone := c.PrimaryBilling().Phone(); phone != "" {
		return phone
	}
	if phone := c.PrimaryShipping().Phone(); phone != "" {
		return phone
	}
	return strings.TrimSpace(c.Telephone)
}
