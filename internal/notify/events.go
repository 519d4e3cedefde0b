package notify

import (
	"context"

	"github.com/example/phone-mailer/internal/identity"
	"github.com/example/phone-mailer/internal/models"
	"github.com/example/phone-mailer/internal/settings"
)

// NotifyOrderPlaced sends the order confirmation. The phone comes from the
// billing address, then the shipping address; without one the gateway is
// not called. An empty scope falls back to the order's scope.
func (g *Gateway) NotifyOrderPlaced(ctx context.Context, order *models.Order, scope string) Attempt {
	if order == nil {
		return g.record(settings.TemplateOrderConfirmation, Attempt{Outcome: OutcomeSkipped, Reason: "no order"})
	}
	scope = orScope(scope, order.Scope)
	phone := order.Phone()
	if phone == "" {
		g.logger.Warn().Str("scope", scope).Str("order_id", order.IncrementID).Msg("no phone number on order, confirmation not sent")
		return g.record(settings.TemplateOrderConfirmation, Attempt{Outcome: OutcomeSkipped, Reason: ReasonNoPhone})
	}

	params := g.orderParams(ctx, order, scope)
	params["currency"] = order.CurrencyCode
	params["payment_method"] = orDefault(order.PaymentMethod, "Unknown")
	params["items_count"] = order.ItemsCount
	params["shipping_method"] = orDefault(order.ShippingMethod, "Standard Shipping")
	params["shipping_address"] = order.ShippingAddress.Format()

	return g.dispatchLogged(ctx, Request{
		Kind:     settings.TemplateOrderConfirmation,
		Phone:    phone,
		Template: g.settings.Template(ctx, scope, settings.TemplateOrderConfirmation),
		Params:   params,
		Scope:    scope,
		Metadata: map[string]string{"order_id": order.IncrementID},
	}, "order_id", order.IncrementID)
}

// NotifyShipmentCreated sends the shipping confirmation for a shipment.
func (g *Gateway) NotifyShipmentCreated(ctx context.Context, shipment *models.Shipment, scope string) Attempt {
	if shipment == nil || shipment.Order == nil {
		return g.record(settings.TemplateShippingConfirmation, Attempt{Outcome: OutcomeSkipped, Reason: "no order"})
	}
	order := shipment.Order
	scope = orScope(scope, order.Scope)
	phone := order.Phone()
	if phone == "" {
		g.logger.Warn().Str("scope", scope).Str("order_id", order.IncrementID).Msg("no phone number on order, shipment notification not sent")
		return g.record(settings.TemplateShippingConfirmation, Attempt{Outcome: OutcomeSkipped, Reason: ReasonNoPhone})
	}

	params := g.orderParams(ctx, order, scope)
	delete(params, "total")
	params["tracking_number"] = shipment.Tracking()
	params["shipment_id"] = shipment.IncrementID

	return g.dispatchLogged(ctx, Request{
		Kind:     settings.TemplateShippingConfirmation,
		Phone:    phone,
		Template: g.settings.Template(ctx, scope, settings.TemplateShippingConfirmation),
		Params:   params,
		Scope:    scope,
		Metadata: map[string]string{"order_id": order.IncrementID, "shipment_id": shipment.IncrementID},
	}, "order_id", order.IncrementID)
}

// NotifyInvoiceCreated sends the invoice confirmation.
func (g *Gateway) NotifyInvoiceCreated(ctx context.Context, invoice *models.Invoice, scope string) Attempt {
	if invoice == nil || invoice.Order == nil {
		return g.record(settings.TemplateInvoiceConfirmation, Attempt{Outcome: OutcomeSkipped, Reason: "no order"})
	}
	order := invoice.Order
	scope = orScope(scope, order.Scope)
	phone := order.Phone()
	if phone == "" {
		return g.record(settings.TemplateInvoiceConfirmation, Attempt{Outcome: OutcomeSkipped, Reason: ReasonNoPhone})
	}

	params := g.orderParams(ctx, order, scope)
	params["invoice_id"] = invoice.IncrementID
	params["total"] = models.FormatPrice(invoice.GrandTotal, order.CurrencyCode)

	return g.dispatchLogged(ctx, Request{
		Kind:     settings.TemplateInvoiceConfirmation,
		Phone:    phone,
		Template: g.settings.Template(ctx, scope, settings.TemplateInvoiceConfirmation),
		Params:   params,
		Scope:    scope,
		Metadata: map[string]string{"order_id": order.IncrementID, "invoice_id": invoice.IncrementID},
	}, "order_id", order.IncrementID)
}

// NotifyOrderDelivered sends the delivered notification. Only a change to
// the complete status that carries a comment triggers it.
func (g *Gateway) NotifyOrderDelivered(ctx context.Context, history *models.StatusHistory, scope string) Attempt {
	if history == nil || history.Order == nil {
		return g.record(settings.TemplateOrderDelivered, Attempt{Outcome: OutcomeSkipped, Reason: "no order"})
	}
	if history.Comment == "" {
		return g.record(settings.TemplateOrderDelivered, Attempt{Outcome: OutcomeSkipped, Reason: ReasonNoComment})
	}
	if history.Status != models.OrderStatusComplete {
		return g.record(settings.TemplateOrderDelivered, Attempt{Outcome: OutcomeSkipped, Reason: ReasonNotComplete})
	}
	order := history.Order
	scope = orScope(scope, order.Scope)
	phone := order.Phone()
	if phone == "" {
		return g.record(settings.TemplateOrderDelivered, Attempt{Outcome: OutcomeSkipped, Reason: ReasonNoPhone})
	}

	params := g.orderParams(ctx, order, scope)
	delete(params, "total")
	params["order_status"] = history.Status
	params["comment"] = history.Comment

	return g.dispatchLogged(ctx, Request{
		Kind:     settings.TemplateOrderDelivered,
		Phone:    phone,
		Template: g.settings.Template(ctx, scope, settings.TemplateOrderDelivered),
		Params:   params,
		Scope:    scope,
		Metadata: map[string]string{"order_id": order.IncrementID},
	}, "order_id", order.IncrementID)
}

// NotifyWelcome sends the welcome message to a new customer. The phone is
// taken from the primary billing address, the primary shipping address, the
// telephone attribute and finally the local part of a generated email.
func (g *Gateway) NotifyWelcome(ctx context.Context, customer *models.Customer, scope string) Attempt {
	if customer == nil {
		return g.record(settings.TemplateWelcome, Attempt{Outcome: OutcomeSkipped, Reason: "no customer"})
	}
	scope = orScope(scope, customer.Scope)
	phone := CustomerPhone(customer)
	if phone == "" {
		g.logger.Warn().Str("scope", scope).Str("customer_id", customer.ID).Msg("no phone number for customer, welcome message not sent")
		return g.record(settings.TemplateWelcome, Attempt{Outcome: OutcomeSkipped, Reason: ReasonNoPhone})
	}

	return g.dispatchLogged(ctx, Request{
		Kind:     settings.TemplateWelcome,
		Phone:    phone,
		Template: g.settings.Template(ctx, scope, settings.TemplateWelcome),
		Params: map[string]any{
			"customer_name":  customer.Name(),
			"store_name":     g.settings.StoreName(ctx, scope),
			"customer_id":    customer.ID,
			"customer_email": customer.Email,
		},
		Scope:    scope,
		Metadata: map[string]string{"customer_id": customer.ID},
	}, "customer_id", customer.ID)
}

// CustomerPhone finds a phone number for customer, or "".
func CustomerPhone(customer *models.Customer) string {
	if customer == nil {
		return ""
	}
	if phone := customer.PrimaryBilling().Phone(); phone != "" {
		return phone
	}
	if phone := customer.PrimaryShipping().Phone(); phone != "" {
		return phone
	}
	if customer.Telephone != "" {
		return customer.Telephone
	}
	phone, _ := identity.PhoneFromGeneratedEmail(customer.Email)
	return phone
}

func (g *Gateway) orderParams(ctx context.Context, order *models.Order, scope string) map[string]any {
	return map[string]any{
		"order_id":      order.IncrementID,
		"customer_name": order.CustomerName(),
		"total":         order.FormattedTotal(),
		"store_name":    g.settings.StoreName(ctx, scope),
	}
}

func (g *Gateway) dispatchLogged(ctx context.Context, req Request, idField, id string) Attempt {
	attempt := g.Dispatch(ctx, req)
	evt := g.logger.Info()
	if !attempt.Sent() {
		evt = g.logger.Warn()
	}
	evt.Str("scope", req.Scope).
		Str("kind", req.Kind).
		Str(idField, id).
		Str("outcome", string(attempt.Outcome)).
		Str("reason", attempt.Reason).
		Msg("notification dispatched")
	return attempt
}

func orScope(scope, fallback string) string {
	if scope != "" {
		return scope
	}
	return fallback
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
