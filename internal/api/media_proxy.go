package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"marketadmin/internal/apperr"
	"marketadmin/internal/utils"
)

// maxUploadBytes - предел размера загружаемого файла.
const maxUploadBytes = 32 << 20

// ServeMedia отдает файл из хранилища. Ссылки на файлы публичные (QR-коды, логотипы).
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	filePath, err := h.deps.Blobs.Path(name)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSONError(w, http.StatusNotFound, "File not found")
		} else {
			h.log.WithError(err).WithField("file", name).Error("Ошибка доступа к файлу")
			writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	if fileInfo.IsDir() {
		writeJSONError(w, http.StatusBadRequest, "Not a file")
		return
	}

	if ct := utils.DetectContentType(name, nil); ct == "image/svg+xml" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=86400") // Кэшировать на 1 день
	w.Header().Set("Expires", time.Now().Add(24*time.Hour).Format(http.TimeFormat))
	http.ServeFile(w, r, filePath)
}

// UploadMedia принимает файл из поля "media" и возвращает его публичный URL.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	const op = "api.UploadMedia"
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, r, apperr.Validation(op, "не удалось разобрать форму: "+err.Error()))
		return
	}
	file, header, err := r.FormFile("media")
	if err != nil {
		h.writeError(w, r, apperr.ValidationFields(op, map[string]string{"media": "файл не передан"}))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		h.writeError(w, r, apperr.Validation(op, "не удалось прочитать файл"))
		return
	}
	if len(data) > maxUploadBytes {
		h.writeError(w, r, apperr.ValidationFields(op, map[string]string{"media": "файл слишком большой"}))
		return
	}
	contentType := utils.DetectContentType(header.Filename, data)
	if !utils.IsAllowedUpload(contentType) {
		h.writeError(w, r, apperr.ValidationFields(op, map[string]string{"media": "недопустимый тип файла: " + contentType}))
		return
	}

	url, err := h.deps.Blobs.Put(r.Context(), "uploads/", data, contentType)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			return
		}
		h.log.WithError(err).WithField("filename", header.Filename).Error("Не удалось сохранить загруженный файл")
		h.writeError(w, r, apperr.Remote(op, err))
		return
	}
	writeJSONSuccess(w, "File uploaded successfully", UploadFileResponse{URL: url, ContentType: contentType, Size: len(data)})
}
