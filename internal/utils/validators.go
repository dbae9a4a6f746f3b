package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultCountryCode - код страны для номеров в национальном формате (0151...).
const DefaultCountryCode = "49"

// Коды стран, которые встречаются в базе: Германия, Турция, Австрия, Швейцария, Нидерланды.
var knownCountryCodes = []string{"49", "90", "43", "41", "31"}

var nonDigitRegex = regexp.MustCompile(`[^\d]`)

// NormalizePhone приводит номер к виду +<код страны><номер>.
// Понимает префиксы "+", "00" и национальный "0".
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	plus := strings.HasPrefix(phone, "+")
	digits := nonDigitRegex.ReplaceAllString(phone, "")
	switch {
	case digits == "":
		return "", fmt.Errorf("пустой номер телефона")
	case plus:
	case strings.HasPrefix(digits, "00"):
		digits = digits[2:]
	case strings.HasPrefix(digits, "0"):
		digits = DefaultCountryCode + digits[1:]
	}
	if len(digits) < 8 || len(digits) > 15 {
		return "", fmt.Errorf("неверный формат номера телефона: %q", phone)
	}
	return "+" + digits, nil
}

// PhoneVariants возвращает варианты записи номера, под которыми он мог быть сохранен:
// +49151..., 0049151..., 49151..., 0151...
func PhoneVariants(phone string) []string {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil
	}
	digits := normalized[1:]
	variants := []string{normalized, "00" + digits, digits}
	for _, code := range knownCountryCodes {
		if strings.HasPrefix(digits, code) && len(digits) > len(code)+6 {
			variants = append(variants, "0"+digits[len(code):])
			break
		}
	}
	return variants
}

// LooksLikePhone - строка поиска похожа на номер телефона.
func LooksLikePhone(q string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return false
	}
	digits := nonDigitRegex.ReplaceAllString(q, "")
	if len(digits) < 6 {
		return false
	}
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "/", "", "+", "").Replace(q)
	return cleaned == digits
}

var postalCodeRegex = regexp.MustCompile(`^\d{4,5}$`)

// LooksLikePostalCode - 4-5 цифр (DE/AT/CH/TR).
func LooksLikePostalCode(q string) bool {
	return postalCodeRegex.MatchString(strings.TrimSpace(q))
}
