package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/sarit-store/internal/domain/coupon"
	"github.com/xenking/sarit-store/internal/domain/order"
	"github.com/xenking/sarit-store/internal/domain/product"
	"github.com/xenking/sarit-store/internal/domain/shipping"
)

// money renders a decimal as a JSON number with two decimal places.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

type productView struct {
	ID                 string   `json:"_id"`
	Title              string   `json:"title"`
	Name               string   `json:"bagName"`
	Description        string   `json:"description"`
	ProductDescription string   `json:"productDescription"`
	Href               string   `json:"href"`
	Type               int      `json:"type"`
	Price              money    `json:"price"`
	CompareAt          money    `json:"compareAt"`
	OnSale             bool     `json:"onSale"`
	Rating             money    `json:"rating"`
	Reviews            int      `json:"reviews"`
	DeliveryCharge     money    `json:"deliveryCharge"`
	Quantity           int      `json:"quantity"`
	Material           string   `json:"material"`
	Colors             []string `json:"colors"`
	Capacity           string   `json:"capacity"`
	Brand              string   `json:"brand"`
	Features           []string `json:"features"`
}

func newProductView(p product.Product) productView {
	return productView{
		ID:                 p.ID,
		Title:              p.Title,
		Name:               p.Name,
		Description:        p.Description,
		ProductDescription: p.ProductDescription,
		Href:               p.Href,
		Type:               int(p.Type),
		Price:              money(p.Price),
		CompareAt:          money(p.CompareAt),
		OnSale:             p.OnSale,
		Rating:             money(p.Rating),
		Reviews:            p.Reviews,
		DeliveryCharge:     money(p.DeliveryCharge),
		Quantity:           p.Quantity,
		Material:           p.Material,
		Colors:             p.Colors,
		Capacity:           p.Capacity,
		Brand:              p.Brand,
		Features:           p.Features,
	}
}

type methodView struct {
	ID    shipping.MethodID `json:"id"`
	Label string            `json:"label"`
	Cost  money             `json:"cost"`
}

func newMethodViews(methods []shipping.Method) []methodView {
	out := make([]methodView, len(methods))
	for i, m := range methods {
		out[i] = methodView{ID: m.ID, Label: m.Label, Cost: money(m.Cost)}
	}
	return out
}

type shippingConfigView struct {
	Methods   []methodView `json:"methods"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func newShippingConfigView(cfg *shipping.Config) shippingConfigView {
	return shippingConfigView{Methods: newMethodViews(cfg.Methods), UpdatedAt: cfg.UpdatedAt}
}

type couponView struct {
	ID            string              `json:"_id"`
	Code          string              `json:"code"`
	DiscountType  coupon.DiscountType `json:"discountType"`
	DiscountValue money               `json:"discountValue"`
	ExpiresAt     *time.Time          `json:"expiresAt"`
	UsageLimit    int                 `json:"usageLimit"`
	UsedCount     int                 `json:"usedCount"`
	Active        bool                `json:"active"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func newCouponView(c *coupon.Coupon) couponView {
	return couponView{
		ID:            c.ID,
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: money(c.DiscountValue),
		ExpiresAt:     c.ExpiresAt,
		UsageLimit:    c.UsageLimit,
		UsedCount:     c.UsedCount,
		Active:        c.Active,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

type totalsView struct {
	Subtotal     money `json:"subtotal"`
	Taxes        money `json:"taxes"`
	ShippingCost money `json:"shippingCost"`
	GrossTotal   money `json:"grossTotal"`
	Discount     money `json:"discount"`
	Total        money `json:"total"`
}

func newTotalsView(t order.Totals) totalsView {
	return totalsView{
		Subtotal:     money(t.Subtotal),
		Taxes:        money(t.Taxes),
		ShippingCost: money(t.ShippingCost),
		GrossTotal:   money(t.GrossTotal),
		Discount:     money(t.Discount),
		Total:        money(t.Total),
	}
}

type receiptView struct {
	OrderID string `json:"orderId"`
	totalsView
}

type itemView struct {
	ProductID string `json:"_id"`
	Name      string `json:"bagName"`
	Price     money  `json:"price"`
	Quantity  int    `json:"quantity"`
}

type appliedCouponView struct {
	Code           string              `json:"code"`
	DiscountType   coupon.DiscountType `json:"discountType"`
	DiscountValue  money               `json:"discountValue"`
	DiscountAmount money               `json:"discountAmount"`
}

type orderView struct {
	OrderID         string              `json:"orderId"`
	Items           []itemView          `json:"items"`
	Contact         order.Contact       `json:"contact"`
	ShippingAddress order.Address       `json:"shippingAddress"`
	BillingAddress  *order.Address      `json:"billingAddress"`
	PaymentMethod   order.PaymentMethod `json:"paymentMethod"`
	ShippingMethod  methodView          `json:"shippingMethod"`
	Coupon          *appliedCouponView  `json:"coupon"`
	totalsView
	Status     order.Status `json:"status"`
	CustomerID string       `json:"customerId,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

func newOrderView(o *order.Order) orderView {
	items := make([]itemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = itemView{ProductID: it.ProductID, Name: it.Name, Price: money(it.Price), Quantity: it.Quantity}
	}
	v := orderView{
		OrderID:         o.ID,
		Items:           items,
		Contact:         o.Contact,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		PaymentMethod:   o.PaymentMethod,
		ShippingMethod: methodView{
			ID:    o.ShippingMethod.ID,
			Label: o.ShippingMethod.Label,
			Cost:  money(o.ShippingMethod.Cost),
		},
		totalsView: newTotalsView(o.Totals),
		Status:     o.Status,
		CustomerID: o.CustomerID,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	if c := o.Coupon; c != nil {
		v.Coupon = &appliedCouponView{
			Code:           c.Code,
			DiscountType:   c.DiscountType,
			DiscountValue:  money(c.DiscountValue),
			DiscountAmount: money(c.DiscountAmount),
		}
	}
	return v
}

func newOrderViews(orders []order.Order) []orderView {
	out := make([]orderView, len(orders))
	for i := range orders {
		out[i] = newOrderView(&orders[i])
	}
	return out
}
