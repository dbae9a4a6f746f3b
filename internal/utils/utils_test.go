package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+49 151 1234 5678":  "+4915112345678",
		"0049151-12345678":   "+4915112345678",
		"0151 12345678":      "+4915112345678",
		"+90 (532) 111 2233": "+905321112233",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := NormalizePhone("12")
	assert.Error(t, err)
	_, err = NormalizePhone("   ")
	assert.Error(t, err)
}

func TestPhoneVariants(t *testing.T) {
	variants := PhoneVariants("0151 12345678")
	assert.Equal(t, []string{"+4915112345678", "004915112345678", "4915112345678", "015112345678"}, variants)

	turkish := PhoneVariants("+905321112233")
	assert.Contains(t, turkish, "05321112233")
	assert.Nil(t, PhoneVariants("abc"))
}

func TestLooksLikePhoneAndPostalCode(t *testing.T) {
	assert.True(t, LooksLikePhone("+49 151 1234"))
	assert.True(t, LooksLikePhone("0151-123456"))
	assert.False(t, LooksLikePhone("Ahmet 0151"))
	assert.False(t, LooksLikePhone("123"))

	assert.True(t, LooksLikePostalCode("10115"))
	assert.True(t, LooksLikePostalCode(" 1010 "))
	assert.False(t, LooksLikePostalCode("101155"))
	assert.False(t, LooksLikePostalCode("AB123"))
}

func TestFoldDiacritics(t *testing.T) {
	assert.Equal(t, "sukru ozturk", FoldDiacritics("Şükrü Öztürk"))
	assert.Equal(t, "muller", FoldDiacritics("Müller"))
	assert.Equal(t, "istanbul", FoldDiacritics("İstanbul"))
	assert.Equal(t, "kirmizi", FoldDiacritics("kırmızı"))
	assert.Equal(t, "strasse", FoldDiacritics("Straße"))
	assert.Equal(t, "cagla", FoldDiacritics("Çağla"))
}

func TestNameVariantsAndContainsFolded(t *testing.T) {
	assert.Equal(t, []string{"müller", "muller", "mueller"}, NameVariants("Müller"))
	assert.Nil(t, NameVariants("  "))

	assert.True(t, ContainsFolded("Ayşe Müller", "muller"))
	assert.True(t, ContainsFolded("Ayşe Mueller", "Müller"))
	assert.True(t, ContainsFolded("Ayşe Müller", "ayse"))
	assert.False(t, ContainsFolded("Ayşe Müller", "mehmet"))
	assert.False(t, ContainsFolded("Ayşe", ""))
}

func TestFormatMoneyAndPeriod(t *testing.T) {
	assert.Equal(t, "12,50 €", FormatMoney(12.5, "EUR"))
	assert.Equal(t, "0,96 €", FormatMoney(0.96, "eur"))
	assert.Equal(t, "3,00 XYZ", FormatMoney(3, "XYZ"))

	start, end, err := ParsePeriod("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", start.Format("2006-01-02"))
	assert.Equal(t, "2024-03-01", end.Format("2006-01-02"))
	assert.Equal(t, "2024-02", Period(start))

	_, _, err = ParsePeriod("02/2024")
	assert.Error(t, err)

	display, err := FormatDateForDisplay("2024-02-09")
	require.NoError(t, err)
	assert.Equal(t, "09.02.2024", display)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+49151*****678", MaskPhone("+4915112345678"))
	assert.Equal(t, "+4915", MaskPhone("+4915"))
}

func TestDetectContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	assert.Equal(t, "image/png", DetectContentType("logo.png", png))
	assert.Equal(t, "image/svg+xml", DetectContentType("logo.svg", []byte("<svg xmlns='http://www.w3.org/2000/svg'></svg>")))
	assert.True(t, IsAllowedUpload("image/png"))
	assert.False(t, IsAllowedUpload("text/plain"))
}

func TestGenerateQRCode(t *testing.T) {
	png, err := GenerateQRCode("https://console.example.com/register/abc", 256)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = GenerateQRCode("", 256)
	assert.Error(t, err)
}
