package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
)

// Cache metadata headers added to every gateway response.
const (
	HeaderCache    = "X-Cache"
	HeaderCacheTTL = "X-Cache-Ttl"
	HeaderCacheExp = "X-Cache-Exp"
)

// Handler returns the HTTP surface of the gateway: GET/POST with the
// upstream route in the "path" query parameter.
func (s *Service) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		path := r.URL.Query().Get("path")

		var body string
		if r.Method == http.MethodPost {
			b, err := io.ReadAll(r.Body)
			if err != nil {
				writeMessage(w, http.StatusBadRequest, "unreadable body")
				return
			}
			body = string(b)
		}

		res, err := s.Handle(r.Context(), r.Method, path, body)
		if err != nil {
			if errors.Is(err, ErrInvalidPath) {
				writeMessage(w, http.StatusBadRequest, "invalid path")
				return
			}
			writeMessage(w, http.StatusBadGateway, err.Error())
			return
		}

		h := w.Header()
		for k, vs := range res.Header {
			for _, v := range vs {
				h.Add(k, v)
			}
		}
		h.Set(HeaderCache, string(res.Cache.Status))
		if res.Cache.Status == CacheHit {
			h.Set(HeaderCacheTTL, strconv.FormatInt(res.Cache.TTLRemaining.Milliseconds(), 10))
		}
		h.Set(HeaderCacheExp, strconv.FormatInt(res.Cache.ExpiresAt.UnixMilli(), 10))

		w.WriteHeader(res.Status)
		w.Write(res.Body)
	})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
