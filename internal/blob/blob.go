// Package blob хранит загруженные файлы на локальном диске и отдает их публичные URL.
package blob

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketadmin/internal/config"
)

// Префикс маршрута, по которому API отдает файлы.
const MediaRoute = "/api/media/"

var ErrInvalidPath = errors.New("blob: недопустимый путь файла")

// Store - хранилище файлов: принимает байты и путь, возвращает URL.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Local хранит файлы в каталоге MEDIA_DIR.
type Local struct {
	dir     string
	baseURL string
	log     *logrus.Logger
}

func NewLocal(cfg *config.Config, log *logrus.Logger) (*Local, error) {
	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога медиа %s: %w", cfg.MediaDir, err)
	}
	return &Local{
		dir:     cfg.MediaDir,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		log:     log,
	}, nil
}

// Put сохраняет файл. Пустое имя заменяется на uuid с расширением по типу содержимого;
// имя, оканчивающееся на "/", считается каталогом.
func (l *Local) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || strings.HasSuffix(name, "/") {
		name += uuid.NewString() + extensionFor(contentType)
	}
	rel, err := CleanPath(name)
	if err != nil {
		return "", err
	}

	full := filepath.Join(l.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("ошибка создания каталога для %s: %w", rel, err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("ошибка записи файла %s: %w", rel, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("ошибка сохранения файла %s: %w", rel, err)
	}

	l.log.WithFields(logrus.Fields{"file": rel, "size": len(data)}).Info("Файл сохранен")
	return l.URL(rel), nil
}

// URL - публичная ссылка на файл.
func (l *Local) URL(rel string) string {
	return l.baseURL + MediaRoute + rel
}

// Path возвращает путь к файлу на диске для отдачи через API.
func (l *Local) Path(name string) (string, error) {
	rel, err := CleanPath(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.dir, filepath.FromSlash(rel)), nil
}

// CleanPath нормализует относительный путь и запрещает выход за пределы каталога.
func CleanPath(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "application/pdf":
		return ".pdf"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

var _ Store = (*Local)(nil)
