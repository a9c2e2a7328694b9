package numeric

import (
	"strings"

	"github.com/David-Botos/data-refinery/pkg/formula"
	"github.com/David-Botos/data-refinery/pkg/model"
)

type currencySymbol struct {
	symbol string
	code   string
}

// currencySymbols is ordered so that multi-character symbols match before
// the bare $ they contain
var currencySymbols = []currencySymbol{
	{"NZ$", "NZD"}, {"HK$", "HKD"}, {"US$", "USD"},
	{"R$", "BRL"}, {"A$", "AUD"}, {"C$", "CAD"}, {"S$", "SGD"},
	{"रु", "NPR"}, {"Fr", "CHF"}, {"kr", "SEK"},
	{"$", "USD"}, {"€", "EUR"}, {"£", "GBP"}, {"¥", "JPY"}, {"₹", "INR"},
	{"₨", "PKR"}, {"฿", "THB"}, {"₩", "KRW"}, {"₱", "PHP"}, {"₽", "RUB"},
}

var symbolCodes = func() map[string]string {
	m := make(map[string]string, len(currencySymbols))
	for _, cs := range currencySymbols {
		m[cs.symbol] = cs.code
	}
	return m
}()

// currencyPrefixes are the codes recognized in front of or behind an amount
var currencyPrefixes = []string{
	"USD", "EUR", "GBP", "JPY", "INR", "NPR", "AUD", "CAD", "NZD",
	"CHF", "SEK", "NOK", "DKK", "SGD", "HKD", "CNY", "KRW", "BRL",
	"MXN", "ZAR", "RUB", "TRY", "THB", "PHP", "PKR", "MYR", "IDR",
	"VND", "AED", "SAR", "QAR", "KWD", "BHD", "OMR", "EGP", "NGN",
}

var isoCurrencies = formula.NewSet(
	"USD", "EUR", "GBP", "JPY", "CNY", "INR", "NPR", "AUD", "CAD",
	"NZD", "CHF", "SEK", "NOK", "DKK", "SGD", "HKD", "KRW", "BRL",
	"MXN", "ZAR", "RUB", "TRY", "THB", "PHP", "PKR", "MYR", "IDR",
	"VND", "AED", "SAR", "QAR", "KWD", "BHD", "OMR", "EGP", "NGN",
	"TWD", "ILS", "PLN", "CZK", "HUF", "RON", "BGN", "HRK", "CLP",
	"COP", "PEN", "ARS", "UYU", "VEF", "BOB", "PYG", "GTQ", "HNL",
	"NIO", "CRC", "PAB", "DOP", "JMD", "TTD", "BSD", "BBD", "BZD",
	"XCD", "KYD", "AWG", "ANG", "SRD", "GYD", "FJD", "PGK", "SBD",
	"VUV", "WST", "TOP", "XPF", "LKR", "BDT", "MMK", "KHR", "LAK",
	"MNT", "BND", "MVR", "BTN", "AFN", "IRR", "IQD", "JOD", "LBP",
	"SYP", "YER", "TND", "MAD", "DZD", "LYD", "SDG", "SSP", "ETB",
	"KES", "UGX", "TZS", "RWF", "BIF", "ZMW", "MWK", "MZN", "ZWL",
	"BWP", "LSL", "SZL", "NAD", "SCR", "MUR", "MGA", "KMF", "DJF",
	"SOS", "ERN", "CDF", "AOA", "XAF", "XOF", "GHS", "SLL", "GMD",
	"GNF", "LRD", "CVE", "STN", "XDR",
)

// IsISOCurrency reports whether code is an ISO 4217 currency code
func IsISOCurrency(code string) bool { return isoCurrencies.Has(strings.ToUpper(code)) }

// ExtractCurrency splits a currency symbol or code from an amount. A leading
// minus sign in front of the symbol is kept on the remainder.
func ExtractCurrency(s string) (code, rest string, ok bool) {
	s = strings.TrimSpace(s)
	sign := ""
	body := s
	if strings.HasPrefix(body, "-") {
		sign, body = "-", strings.TrimSpace(body[1:])
	}
	for _, cs := range currencySymbols {
		if strings.HasPrefix(body, cs.symbol) {
			return cs.code, sign + strings.TrimSpace(body[len(cs.symbol):]), true
		}
		if strings.HasSuffix(body, cs.symbol) {
			return cs.code, sign + strings.TrimSpace(body[:len(body)-len(cs.symbol)]), true
		}
	}
	upper := strings.ToUpper(body)
	for _, code := range currencyPrefixes {
		if strings.HasPrefix(upper, code) {
			return code, sign + strings.TrimSpace(body[len(code):]), true
		}
		if strings.HasSuffix(upper, code) {
			return code, sign + strings.TrimSpace(body[:len(body)-len(code)]), true
		}
	}
	return "", s, false
}

func currencySymbolsToCodes(c *formula.Column) formula.Result {
	return c.TransformStrings("CUR-03", "Currency symbol converted to ISO code", func(s string) (interface{}, bool) {
		code, ok := symbolCodes[strings.TrimSpace(s)]
		return code, ok
	})
}

func currencyUppercase(c *formula.Column) formula.Result {
	return c.TransformStrings("CUR-02", "Currency code uppercased", func(s string) (interface{}, bool) {
		upper := strings.ToUpper(strings.TrimSpace(s))
		return upper, upper != s
	})
}

func currencyCodes(c *formula.Column) formula.Result {
	return c.FlagWhere("CUR-01", "invalid_currency_code", "Values that are not ISO 4217 currency codes",
		"Replace with a valid ISO 4217 code", func(v interface{}) bool {
			code := strings.ToUpper(strings.TrimSpace(model.Stringify(v)))
			return code != "" && !isoCurrencies.Has(code)
		})
}
