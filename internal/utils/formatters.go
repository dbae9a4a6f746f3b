package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period - отчетный период "YYYY-MM".
func Period(t time.Time) string {
	return t.Format("2006-01")
}

// ParsePeriod разбирает "YYYY-MM" и возвращает первый день месяца и первый день следующего.
func ParsePeriod(period string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("период должен быть в формате ГГГГ-ММ: %q", period)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// FormatDateForDisplay - дата "YYYY-MM-DD" в виде "02.01.2006".
func FormatDateForDisplay(dateStr string) (string, error) {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return "", fmt.Errorf("неверный формат даты %q", dateStr)
	}
	return t.Format("02.01.2006"), nil
}

var currencySymbols = map[string]string{
	"EUR": "€",
	"TRY": "₺",
	"CHF": "CHF",
	"USD": "$",
}

// FormatMoney - сумма с двумя знаками и запятой: "12,50 €".
func FormatMoney(amount float64, currency string) string {
	s := decimal.NewFromFloat(amount).StringFixed(2)
	s = strings.Replace(s, ".", ",", 1)
	symbol, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		symbol = currency
	}
	if symbol == "" {
		return s
	}
	return s + " " + symbol
}

// MaskPhone скрывает середину номера для журналов: +49151****678.
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return phone
	}
	return phone[:6] + strings.Repeat("*", len(phone)-9) + phone[len(phone)-3:]
}
