package server

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/log"
)

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "Image URL is required", http.StatusBadRequest)
		return
	}

	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		http.Error(w, "Invalid image URL", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		http.Error(w, "Invalid image URL", http.StatusBadRequest)
		return
	}
	req.Header.Set("User-Agent", constant.UserAgent)
	if s.referer != "" {
		req.Header.Set("Referer", s.referer)
		req.Header.Set("Origin", strings.TrimSuffix(s.referer, "/"))
	}

	resp, err := s.images.Do(req)
	if err != nil {
		log.Errorf("proxy image %s: %v", target.Host, err)
		http.Error(w, "Error proxying image", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		http.Error(w, "Failed to fetch image", resp.StatusCode)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if n := resp.Header.Get("Content-Length"); n != "" {
		w.Header().Set("Content-Length", n)
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Debugf("proxy image %s: %v", target.Host, err)
	}
}
