package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"campwise-data/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeServiceError 把业务错误映射为 HTTP 状态码 + Result 封装
// validation→400, not_found→404, conflict→409, dependency→502
func writeServiceError(w http.ResponseWriter, err error) {
	se := service.AsServiceError(err)
	if se == nil {
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}
	status := http.StatusInternalServerError
	switch se.Kind {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindConflict:
		status = http.StatusConflict
	case service.KindDependency:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, Fail(se.Error()))
}
