package httpapi

import (
	"net/http"
	"time"

	"github.com/snokvist/autod-sub000/internal/master"
)

func nowFunc() time.Time { return time.Now() }

func writePushError(w http.ResponseWriter, err error) {
	if perr, ok := err.(*master.PushError); ok {
		writeJSON(w, perr.Status, envelope{"error": perr.Msg})
		return
	}
	writeJSON(w, http.StatusInternalServerError, envelope{"error": err.Error()})
}
