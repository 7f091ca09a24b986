package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/listing-scraper/internal/models"
)

// Tier is one named way of resolving a value from a card.
type Tier[T any] struct {
	Name    string
	Resolve func(card *goquery.Selection) (T, bool)
}

// FirstOf tries tiers in order and stops at the first that resolves. It
// returns the winning tier's name.
func FirstOf[T any](card *goquery.Selection, tiers ...Tier[T]) (T, string, bool) {
	for _, tier := range tiers {
		if v, ok := tier.Resolve(card); ok {
			return v, tier.Name, true
		}
	}
	var zero T
	return zero, "", false
}

// TextTier resolves the trimmed text of the first element matching selector.
func TextTier(selector string) Tier[string] {
	return Tier[string]{
		Name: selector,
		Resolve: func(card *goquery.Selection) (string, bool) {
			text := clean(card.Find(selector).First().Text())
			return text, text != ""
		},
	}
}

// AttrTier resolves a non-empty attribute of the first element matching selector.
func AttrTier(selector, attr string) Tier[string] {
	return Tier[string]{
		Name: selector + "@" + attr,
		Resolve: func(card *goquery.Selection) (string, bool) {
			v, ok := card.Find(selector).First().Attr(attr)
			v = clean(v)
			return v, ok && v != ""
		},
	}
}

// MoneyTier resolves the amount in the text of the first element matching
// one of selectors, tried in order.
func MoneyTier(selectors ...string) Tier[float64] {
	name := selectors[0]
	if len(selectors) > 1 {
		name += "|" + selectors[len(selectors)-1]
	}
	return Tier[float64]{
		Name: name,
		Resolve: func(card *goquery.Selection) (float64, bool) {
			for _, sel := range selectors {
				node := card.Find(sel).First()
				if node.Length() == 0 {
					continue
				}
				return ParseMoney(node.Text())
			}
			return 0, false
		},
	}
}

// Pricing is the current and reference price of a card.
type Pricing struct {
	Price models.Optional[float64]
	MRP   models.Optional[float64]
}

func (p Pricing) Complete() bool {
	return p.Price.Valid() && p.MRP.Valid()
}

// PriceTier fills whichever pricing fields are still missing.
type PriceTier struct {
	Name string
	Fill func(card *goquery.Selection, cur Pricing) Pricing
}

// ResolvePricing runs tiers in order until both fields are known. It
// returns the names of the tiers that contributed a value.
func ResolvePricing(card *goquery.Selection, tiers ...PriceTier) (Pricing, []string) {
	var cur Pricing
	var used []string
	for _, tier := range tiers {
		if cur.Complete() {
			break
		}
		next := tier.Fill(card, cur)
		if !cur.Price.Valid() && next.Price.Valid() || !cur.MRP.Valid() && next.MRP.Valid() {
			used = append(used, tier.Name)
		}
		if !cur.Price.Valid() {
			cur.Price = next.Price
		}
		if !cur.MRP.Valid() {
			cur.MRP = next.MRP
		}
	}
	return cur, used
}

// SelectorPriceTier reads price and mrp from dedicated nodes.
func SelectorPriceTier(name string, price, mrp Tier[float64]) PriceTier {
	return PriceTier{
		Name: name,
		Fill: func(card *goquery.Selection, cur Pricing) Pricing {
			if !cur.Price.Valid() {
				cur.Price = models.FromOK(price.Resolve(card))
			}
			if !cur.MRP.Valid() {
				cur.MRP = models.FromOK(mrp.Resolve(card))
			}
			return cur
		},
	}
}
