package utils

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// GenerateQRCode кодирует ссылку в PNG заданного размера.
func GenerateQRCode(link string, size int) ([]byte, error) {
	if link == "" {
		return nil, fmt.Errorf("пустая ссылка для QR-кода")
	}
	// qrcode.Medium - уровень коррекции ошибок.
	qrBytes, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("ошибка кодирования QR-кода для ссылки '%s': %w", link, err)
	}
	return qrBytes, nil
}
