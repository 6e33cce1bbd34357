package dispute

import (
	"strings"

	"chargemind/money"
)

const (
	defaultType     = "chargeback"
	defaultCurrency = "USD"
)

// MapShopifyDispute converts a webhook body into an AppDispute. It never fails:
// absent data degrades to zero amounts, empty collections and nil identity
// fields.
func MapShopifyDispute(raw ShopifyDisputeWebhook) AppDispute {
	order := mapOrder(raw)

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" {
		currency = order.Currency
	}
	if currency == "" {
		currency = defaultCurrency
	}
	if order.Currency == "" {
		order.Currency = currency
	}

	customer := placeholderCustomer()
	switch {
	case raw.Customer != nil:
		customer = mapCustomer(*raw.Customer)
	case raw.Order != nil && raw.Order.Customer != nil:
		customer = mapCustomer(*raw.Order.Customer)
	}

	status := Status(strings.TrimSpace(raw.Status))
	if status == "" {
		status = StatusNeedsResponse
	}
	disputeType := strings.TrimSpace(raw.Type)
	if disputeType == "" {
		disputeType = defaultType
	}

	products := make([]Product, 0, len(raw.Products))
	for _, p := range raw.Products {
		products = append(products, Product{
			Title:    p.Title,
			Quantity: positiveQuantity(p.Quantity),
			Price:    money.ToMoney(p.Price),
		})
	}

	orderID := raw.OrderID.String()
	if orderID == "" {
		orderID = order.ID
	}

	return AppDispute{
		ID:                raw.ID.String(),
		OrderID:           orderID,
		Type:              disputeType,
		Reason:            strings.TrimSpace(raw.Reason),
		NetworkReasonCode: strings.TrimSpace(raw.NetworkReasonCode),
		Status:            status,
		Amount:            money.ToMoney(raw.Amount),
		Currency:          currency,
		EvidenceDueBy:     raw.EvidenceDueBy,
		EvidenceSentOn:    raw.EvidenceSentOn,
		FinalizedOn:       raw.FinalizedOn,
		InitiatedAt:       raw.InitiatedAt,
		Order:             order,
		Customer:          customer,
		Products:          products,
	}
}

func mapOrder(raw ShopifyDisputeWebhook) Order {
	if raw.Order == nil {
		return Order{
			ID:             raw.OrderID.String(),
			TotalPrice:     money.Zero,
			SubtotalPrice:  money.Zero,
			TotalTax:       money.Zero,
			TotalDiscounts: money.Zero,
			TotalShipping:  money.Zero,
			LineItems:      []LineItem{},
			ShippingLines:  []ShippingLine{},
			Fulfillments:   []Fulfillment{},
		}
	}

	order := MapOrder(*raw.Order)
	if order.ID == "" {
		order.ID = raw.OrderID.String()
	}
	return order
}

// MapOrder converts a REST order resource. Money fields are normalized to two
// decimals and collections are never nil.
func MapOrder(src ShopifyOrder) Order {
	order := Order{
		ID:                src.ID.String(),
		Name:              src.Name,
		Email:             strings.TrimSpace(src.Email),
		CreatedAt:         src.CreatedAt,
		Currency:          strings.ToUpper(strings.TrimSpace(src.Currency)),
		TotalPrice:        money.ToMoney(src.TotalPrice),
		SubtotalPrice:     money.ToMoney(src.SubtotalPrice),
		TotalTax:          money.ToMoney(src.TotalTax),
		TotalDiscounts:    money.ToMoney(src.TotalDiscounts),
		Gateway:           src.Gateway,
		BrowserIP:         src.BrowserIP,
		FinancialStatus:   src.FinancialStatus,
		FulfillmentStatus: src.FulfillmentStatus,
		LineItems:         make([]LineItem, 0, len(src.LineItems)),
		ShippingLines:     make([]ShippingLine, 0, len(src.ShippingLines)),
		Fulfillments:      make([]Fulfillment, 0, len(src.Fulfillments)),
	}
	if order.Gateway == "" && len(src.PaymentGatewayNames) > 0 {
		order.Gateway = src.PaymentGatewayNames[0]
	}

	for _, li := range src.LineItems {
		title := li.Title
		if title == "" {
			title = li.Name
		}
		order.LineItems = append(order.LineItems, LineItem{
			ID:           li.ID.String(),
			Title:        title,
			VariantTitle: li.VariantTitle,
			SKU:          li.SKU,
			Quantity:     positiveQuantity(li.Quantity),
			Price:        money.ToMoney(li.Price),
		})
	}

	shipping := make([]string, 0, len(src.ShippingLines))
	for _, sl := range src.ShippingLines {
		price := money.ToMoney(sl.Price)
		order.ShippingLines = append(order.ShippingLines, ShippingLine{Title: sl.Title, Price: price})
		shipping = append(shipping, price)
	}
	order.TotalShipping = money.Format(money.Sum(shipping...))

	for _, f := range src.Fulfillments {
		order.Fulfillments = append(order.Fulfillments, Fulfillment{
			ID:              f.ID.String(),
			Status:          f.Status,
			ShipmentStatus:  f.ShipmentStatus,
			TrackingCompany: f.TrackingCompany,
			TrackingNumber:  strings.TrimSpace(f.TrackingNumber),
			TrackingURL:     f.TrackingURL,
			CreatedAt:       f.CreatedAt,
		})
	}

	order.ShippingAddress = mapAddress(src.ShippingAddress)
	order.BillingAddress = mapAddress(src.BillingAddress)
	return order
}

func mapAddress(a *ShopifyAddress) Address {
	if a == nil {
		return Address{}
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
	}
	return Address{
		Name:     name,
		Address1: strings.TrimSpace(a.Address1),
		Address2: strings.TrimSpace(a.Address2),
		City:     strings.TrimSpace(a.City),
		Province: strings.TrimSpace(a.Province),
		Zip:      strings.TrimSpace(a.Zip),
		Country:  strings.TrimSpace(a.Country),
		Phone:    strings.TrimSpace(a.Phone),
	}
}

func mapCustomer(c ShopifyCustomer) Customer {
	out := Customer{
		FirstName:   nonEmpty(c.FirstName),
		LastName:    nonEmpty(c.LastName),
		Email:       nonEmpty(c.Email),
		Phone:       nonEmpty(c.Phone),
		OrdersCount: c.OrdersCount,
		CreatedAt:   c.CreatedAt,
	}
	if id := c.ID.String(); id != "" {
		out.ID = &id
	}
	return out
}

func placeholderCustomer() Customer {
	return Customer{}
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func positiveQuantity(q int) int {
	if q <= 0 {
		return 1
	}
	return q
}
