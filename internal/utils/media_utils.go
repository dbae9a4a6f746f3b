// internal/utils/media_utils.go
package utils

import (
	"net/http"
	"path"
	"strings"
)

// Типы файлов, которые консоль может загружать (логотипы, фото товаров, документы).
var allowedUploadTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"image/gif":       true,
	"image/svg+xml":   true,
	"application/pdf": true,
}

// DetectContentType определяет тип по содержимому; для SVG, который
// http.DetectContentType видит как текст, учитывается расширение.
func DetectContentType(filename string, data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "text/") && strings.EqualFold(path.Ext(filename), ".svg") {
		return "image/svg+xml"
	}
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// IsAllowedUpload проверяет, можно ли принять файл такого типа.
func IsAllowedUpload(contentType string) bool {
	return allowedUploadTypes[contentType]
}
