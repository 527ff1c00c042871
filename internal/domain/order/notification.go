package order

import (
	"fmt"
	"strings"

	"github.com/xenking/sarit-store/internal/domain/notify"
)

func confirmationMessage(o *Order, to string) notify.Message {
	var b strings.Builder
	name := strings.TrimSpace(o.ShippingAddress.FirstName + " " + o.ShippingAddress.LastName)
	fmt.Fprintf(&b, "Hi %s,\n\nThank you for your order %s.\n\n", name, o.ID)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "  %s x%d  %s\n", it.Name, it.Quantity, it.Price.Mul(qty(it)).StringFixed(2))
	}
	t := o.Totals
	fmt.Fprintf(&b, "\nSubtotal: %s\nTaxes: %s\nShipping (%s): %s\n",
		t.Subtotal.StringFixed(2), t.Taxes.StringFixed(2), o.ShippingMethod.Label, t.ShippingCost.StringFixed(2))
	if o.Coupon != nil {
		fmt.Fprintf(&b, "Discount (%s): -%s\n", o.Coupon.Code, t.Discount.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n\nPayment: %s\n", t.Total.StringFixed(2), paymentLabel(o.PaymentMethod))

	return notify.Message{
		Kind:    notify.KindOrderConfirmation,
		To:      to,
		Subject: "Order confirmation " + o.ID,
		OrderID: o.ID,
		Body:    b.String(),
		Fields: map[string]string{
			"total":  t.Total.StringFixed(2),
			"status": string(o.Status),
		},
	}
}

func statusMessage(o *Order) notify.Message {
	return notify.Message{
		Kind:    notify.KindOrderStatus,
		To:      o.Contact.Email,
		Subject: fmt.Sprintf("Order %s is now %s", o.ID, o.Status),
		OrderID: o.ID,
		Body: fmt.Sprintf("Your order %s status changed to %s.\nTotal: %s\n",
			o.ID, o.Status, o.Totals.Total.StringFixed(2)),
		Fields: map[string]string{
			"status": string(o.Status),
		},
	}
}

func paymentLabel(m PaymentMethod) string {
	if m == PaymentCOD {
		return "cash on delivery"
	}
	return "online payment"
}
