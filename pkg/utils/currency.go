package utils

import "math"

// CurrencyConverter converts between the local currency and the payment
// provider's settlement currency at a fixed rate (1 local = Rate settlement).
type CurrencyConverter struct {
	Local      string
	Settlement string
	Rate       float64
}

func NewCurrencyConverter(cfg CurrencyConfig) CurrencyConverter {
	return CurrencyConverter{
		Local:      cfg.Local,
		Settlement: cfg.Settlement,
		Rate:       cfg.SettlementRate,
	}
}

func (c CurrencyConverter) ToSettlement(amount float64) float64 {
	return RoundMoney(amount * c.Rate)
}

// RoundMoney rounds half away from zero to two decimals.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}
