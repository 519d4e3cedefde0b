package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	common "github.com/example/phone-mailer/internal/adapters/common"
	"github.com/example/phone-mailer/internal/identity"
	"github.com/example/phone-mailer/internal/models"
	"github.com/example/phone-mailer/internal/notify"
	"github.com/example/phone-mailer/internal/settings"
	"github.com/example/phone-mailer/internal/settings/repository"
)

type recordingNotifier struct {
	calls  []string
	scopes []string
}

func (n *recordingNotifier) record(kind, scope string) notify.Attempt {
	n.calls = append(n.calls, kind)
	n.scopes = append(n.scopes, scope)
	return notify.Attempt{Outcome: notify.OutcomeSent, MessageID: kind + "-id"}
}

func (n *recordingNotifier) NotifyWelcome(_ context.Context, _ *models.Customer, scope string) notify.Attempt {
	return n.record("welcome", scope)
}

func (n *recordingNotifier) NotifyOrderPlaced(_ context.Context, _ *models.Order, scope string) notify.Attempt {
	return n.record("order", scope)
}

func (n *recordingNotifier) NotifyShipmentCreated(_ context.Context, _ *models.Shipment, scope string) notify.Attempt {
	return n.record("shipment", scope)
}

func (n *recordingNotifier) NotifyInvoiceCreated(_ context.Context, _ *models.Invoice, scope string) notify.Attempt {
	return n.record("invoice", scope)
}

func (n *recordingNotifier) NotifyOrderDelivered(_ context.Context, _ *models.StatusHistory, scope string) notify.Attempt {
	return n.record("delivered", scope)
}

func newHooks(t *testing.T, values map[string]map[string]string) (*Hooks, *recordingNotifier) {
	t.Helper()
	resolver := settings.NewResolver(repository.NewMemory(values), nil, zerolog.Nop())
	bridge, err := identity.NewBridge(resolver, zerolog.Nop())
	require.NoError(t, err)
	n := &recordingNotifier{}
	h, err := New(resolver, bridge, n, zerolog.Nop())
	require.NoError(t, err)
	return h, n
}

func enabled() map[string]map[string]string {
	return map[string]map[string]string{
		settings.DefaultScope: {
			settings.KeyEnabled:          "1",
			settings.KeyMessagingEnabled: "1",
			settings.KeyBaseURL:          "https://www.example.com/",
		},
		"store-2": {settings.KeyBaseURL: "https://shop.example.org/"},
	}
}

func TestPrepareRegistration(t *testing.T) {
	h, _ := newHooks(t, enabled())
	ctx := context.Background()

	form := &models.RegistrationForm{Telephone: "+1 (234) 567-890"}
	require.NoError(t, h.PrepareRegistration(ctx, form))
	require.Equal(t, "1234567890@example.com", form.Email)

	form = &models.RegistrationForm{Telephone: "555", Email: "jane@example.com"}
	require.NoError(t, h.PrepareRegistration(ctx, form))
	require.Equal(t, "jane@example.com", form.Email)

	form = &models.RegistrationForm{Scope: "store-2"}
	err := h.PrepareRegistration(ctx, form)
	require.True(t, errors.Is(err, identity.ErrPhoneRequired))
	require.True(t, errors.Is(err, common.ErrValidation))
	require.Equal(t, "phone number required", identity.ErrPhoneRequired.Error())
	require.Empty(t, form.Email)
}

func TestPrepareRegistrationDisabled(t *testing.T) {
	h, _ := newHooks(t, nil)
	form := &models.RegistrationForm{Telephone: ""}
	require.NoError(t, h.PrepareRegistration(context.Background(), form))
	require.Empty(t, form.Email)
}

func TestEnsureCustomerEmail(t *testing.T) {
	h, _ := newHooks(t, enabled())
	ctx := context.Background()

	c := &models.Customer{ID: "1", Scope: "store-2", Email: "not-an-email", Addresses: []models.Address{{Telephone: "555 0100", PrimaryBilling: true}}}
	h.EnsureCustomerEmail(ctx, c)
	require.Equal(t, "5550100@shop.example.org", c.Email)

	c = &models.Customer{ID: "2", Email: "jane@example.com", Telephone: "555"}
	h.EnsureCustomerEmail(ctx, c)
	require.Equal(t, "jane@example.com", c.Email)

	c = &models.Customer{ID: "3", Telephone: "n/a"}
	h.EnsureCustomerEmail(ctx, c)
	require.Empty(t, c.Email, "generation errors leave the customer untouched")
}

func TestPrepareGuestCheckout(t *testing.T) {
	h, _ := newHooks(t, enabled())
	ctx := context.Background()

	email, err := h.PrepareGuestCheckout(ctx, "", &models.Address{Telephone: "555-0100"}, "")
	require.NoError(t, err)
	require.Equal(t, "5550100@example.com", email)

	email, err = h.PrepareGuestCheckout(ctx, "jane@example.com", &models.Address{Telephone: "555"}, "")
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", email)

	email, err = h.PrepareGuestCheckout(ctx, "bogus", nil, "")
	require.NoError(t, err)
	require.Equal(t, "bogus", email)

	email, err = h.PrepareGuestCheckout(ctx, "bogus", &models.Address{Telephone: "call me"}, "")
	require.True(t, errors.Is(err, identity.ErrPhoneRequired))
	require.Equal(t, "bogus", email)
}

func TestResolveLogin(t *testing.T) {
	h, _ := newHooks(t, enabled())
	ctx := context.Background()
	require.Equal(t, "1234567890@example.com", h.ResolveLogin(ctx, "(123) 456-7890"))
	require.Equal(t, "jane@example.com", h.ResolveLogin(ctx, "jane@example.com"))

	disabled, _ := newHooks(t, nil)
	require.Equal(t, "1234567890", disabled.ResolveLogin(ctx, "1234567890"))
}

func TestResolvePasswordReset(t *testing.T) {
	h, _ := newHooks(t, enabled())
	ctx := context.Background()
	require.Equal(t, "5550100@shop.example.org", h.ResolvePasswordReset(ctx, "555-0100", "store-2"))
	require.Equal(t, "jane@example.com", h.ResolvePasswordReset(ctx, "jane@example.com", "store-2"))
}

func TestNotificationHooksGateOnMessaging(t *testing.T) {
	ctx := context.Background()
	order := &models.Order{IncrementID: "1", Scope: "store-2"}

	h, n := newHooks(t, enabled())
	require.True(t, h.OnAccountCreated(ctx, &models.Customer{ID: "c"}).Sent())
	require.True(t, h.OnOrderPlaced(ctx, order).Sent())
	require.True(t, h.OnShipmentCreated(ctx, &models.Shipment{Order: order}).Sent())
	require.True(t, h.OnInvoiceCreated(ctx, &models.Invoice{Order: order}).Sent())
	require.True(t, h.OnOrderStatusChanged(ctx, &models.StatusHistory{Order: order}).Sent())
	require.Equal(t, []string{"welcome", "order", "shipment", "invoice", "delivered"}, n.calls)
	require.Equal(t, []string{settings.DefaultScope, "store-2", "store-2", "store-2", "store-2"}, n.scopes)

	values := enabled()
	values["store-2"][settings.KeyMessagingEnabled] = "0"
	h, n = newHooks(t, values)
	attempt := h.OnOrderPlaced(ctx, order)
	require.Equal(t, notify.OutcomeSkipped, attempt.Outcome)
	require.Equal(t, notify.ReasonMessagingDisabled, attempt.Reason)
	require.Equal(t, notify.OutcomeSkipped, h.OnShipmentCreated(ctx, nil).Outcome)
	require.Equal(t, notify.OutcomeSkipped, h.OnOrderPlaced(ctx, &models.Order{}).Outcome)
	require.Empty(t, n.calls)
}

func TestOnAddressSaved(t *testing.T) {
	h, _ := newHooks(t, enabled())
	ctx := context.Background()
	primary := &models.Address{Telephone: "+1 222 333 4444", PrimaryBilling: true}

	res := h.OnAddressSaved(ctx, &models.Customer{ID: "1", Email: "1111111111@example.com"}, primary)
	require.Equal(t, AddressSaveResult{Email: "12223334444@example.com", Changed: true}, res)

	res = h.OnAddressSaved(ctx, &models.Customer{ID: "1", Email: "12223334444@example.com"}, primary)
	require.Equal(t, AddressSaveResult{Email: "12223334444@example.com", Changed: false}, res)

	res = h.OnAddressSaved(ctx, &models.Customer{ID: "1", Email: "jane@example.com"}, primary)
	require.Equal(t, AddressSaveResult{Email: "jane@example.com"}, res, "user supplied emails are never changed")

	res = h.OnAddressSaved(ctx, &models.Customer{ID: "1", Email: "1111111111@example.com"}, &models.Address{Telephone: "555"})
	require.False(t, res.Changed, "non primary addresses are ignored")

	res = h.OnAddressSaved(ctx, &models.Customer{ID: "1", Email: "1111111111@example.com"}, &models.Address{Telephone: "ext.", PrimaryShipping: true})
	require.Equal(t, AddressSaveResult{Email: "1111111111@example.com"}, res, "errors keep the current email")

	require.Equal(t, AddressSaveResult{}, h.OnAddressSaved(ctx, nil, primary))
}

func TestNewValidatesDependencies(t *testing.T) {
	resolver := settings.NewResolver(repository.NewMemory(nil), nil, zerolog.Nop())
	bridge, _ := identity.NewBridge(resolver, zerolog.Nop())
	_, err := New(nil, bridge, &recordingNotifier{}, zerolog.Nop())
	require.Error(t, err)
	_, err = New(resolver, nil, &recordingNotifier{}, zerolog.Nop())
	require.Error(t, err)
	_, err = New(resolver, bridge, nil, zerolog.Nop())
	require.Error(t, err)
}
