package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/snokvist/autod-sub000/internal/udpsend"
)

type udpRequest struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Payload        string `json:"payload,omitempty"`
	PayloadBase64  string `json:"payload_base64,omitempty"`
}

func (s *Server) handleUDP(w http.ResponseWriter, r *http.Request) {
	var req udpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w)
		return
	}

	if req.Host == "" || req.Port < 1 || req.Port > 65535 {
		writeJSON(w, http.StatusBadRequest, envelope{"error": "bad_request"})
		return
	}

	havePlain := req.Payload != ""
	haveB64 := req.PayloadBase64 != ""
	if havePlain == haveB64 {
		writeJSON(w, http.StatusBadRequest, envelope{"error": "bad_request"})
		return
	}

	var payload []byte
	if havePlain {
		payload = []byte(req.Payload)
	} else {
		decoded, err := base64.StdEncoding.DecodeString(req.PayloadBase64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, envelope{"error": "bad_request"})
			return
		}
		payload = decoded
	}

	n, err := udpsend.Send(req.Host, req.Port, payload)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, envelope{"error": "send_failed", "detail": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"status":         "sent",
		"bytes_sent":     n,
		"payload_length": len(payload),
		"host":           req.Host,
		"port":           req.Port,
	})
}
