package extract

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/maltedev/listing-scraper/internal/models"
)

var (
	moneyPattern = regexp.MustCompile(`₹?\s*(\d[\d,]*(?:\.\d+)?)`)
	rupeePattern = regexp.MustCompile(`₹\s*(\d[\d,]*(?:\.\d+)?)`)
	tokenCleaner = regexp.MustCompile(`[^A-Za-z0-9+]`)
)

var brandAliases = map[string]string{
	"iphone": "Apple",
	"mi":     "Xiaomi",
	"redmi":  "Xiaomi",
	"moto":   "Motorola",
}

var knownBrands = map[string]bool{
	"samsung": true, "apple": true, "xiaomi": true, "oneplus": true,
	"realme": true, "vivo": true, "oppo": true, "iqoo": true,
	"motorola": true, "tecno": true, "infinix": true, "lava": true,
	"nokia": true, "honor": true, "google": true, "acer": true, "poco": true,
}

// brandTokens is how many leading words of a name are inspected.
const brandTokens = 4

// ParseMoney reads the first amount in text, e.g. "₹1,23,999.00".
func ParseMoney(text string) (float64, bool) {
	m := moneyPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return parseAmount(m[1])
}

// RupeeAmounts returns every ₹-prefixed amount in text, unique and in
// descending order.
func RupeeAmounts(text string) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, m := range rupeePattern.FindAllStringSubmatch(text, -1) {
		v, ok := parseAmount(m[1])
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}

func parseAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Discount is the percentage off mrp rounded to one decimal. It is only
// defined when mrp is positive and price does not exceed it.
func Discount(mrp, price float64) (float64, bool) {
	if mrp <= 0 || price < 0 || price > mrp {
		return 0, false
	}
	return round1(100 * (mrp - price) / mrp), true
}

// DiscountOf applies Discount to optional inputs.
func DiscountOf(mrp, price models.Optional[float64]) models.Optional[float64] {
	m, ok := mrp.Get()
	if !ok {
		return models.None[float64]()
	}
	p, ok := price.Get()
	if !ok {
		return models.None[float64]()
	}
	return models.FromOK(Discount(m, p))
}

// GuessBrand looks for a known brand among the first words of name.
func GuessBrand(name string) (string, bool) {
	fields := strings.Fields(name)
	if len(fields) > brandTokens {
		fields = fields[:brandTokens]
	}
	for _, raw := range fields {
		token := strings.ToLower(tokenCleaner.ReplaceAllString(raw, ""))
		if token == "" {
			continue
		}
		if brand, ok := brandAliases[token]; ok {
			return brand, true
		}
		if knownBrands[token] {
			return strings.ToUpper(token[:1]) + token[1:], true
		}
	}
	return "", false
}

// GuessBrandOf applies GuessBrand to an optional name.
func GuessBrandOf(name models.Optional[string]) models.Optional[string] {
	n, ok := name.Get()
	if !ok {
		return models.None[string]()
	}
	return models.FromOK(GuessBrand(n))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
