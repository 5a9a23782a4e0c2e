package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

// price форматирует цену: округление к шагу цены (если задан) и два знака.
func price(v, tick float64) string {
	d := decimal.NewFromFloat(v)
	if tick > 0 {
		t := decimal.NewFromFloat(tick)
		d = d.Div(t).Round(0).Mul(t)
	}
	return d.StringFixed(2)
}

func pct(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

// shortSymbol: "NSE_EQ|INE467B01029" -> "INE467B01029".
func shortSymbol(key string) string {
	if i := strings.LastIndexByte(key, '|'); i >= 0 {
		return key[i+1:]
	}
	return key
}
