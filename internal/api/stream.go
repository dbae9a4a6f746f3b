package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// pingInterval - комментарий-пинг, чтобы прокси не закрывали простаивающий поток.
const pingInterval = 25 * time.Second

type subscription interface {
	Unsubscribe()
}

type snapshot struct {
	seq  uint64
	data any
}

// stream отдает снимки подписки как text/event-stream. Медленному клиенту
// достается только последний снимок, промежуточные отбрасываются.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, subscribe func(emit func(seq uint64, data any)) (subscription, error)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	latest := make(chan snapshot, 1)
	emit := func(seq uint64, data any) {
		for {
			select {
			case latest <- snapshot{seq: seq, data: data}:
				return
			default:
			}
			select {
			case <-latest:
			default:
			}
		}
	}

	sub, err := subscribe(emit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap := <-latest:
			payload, err := json.Marshal(snap.data)
			if err != nil {
				h.log.WithError(err).Error("Не удалось сериализовать снимок потока")
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.seq, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
