package invoices

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// priceLine computes net = qty x price and vat = net x rate / 100, each
// rounded half away from zero to two places.
func priceLine(item *Item) {
	item.Net = item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)).Round(2)
	item.Vat = item.Net.Mul(item.VatRate).Div(hundred).Round(2)
	item.Total = item.Net.Add(item.Vat)
}

func sumTotals(items []Item) (net, vat, grand decimal.Decimal) {
	for _, item := range items {
		net = net.Add(item.Net)
		vat = vat.Add(item.Vat)
	}
	return net, vat, net.Add(vat)
}
