package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/services"
	"gameroom-backend/pkg/utils"
)

type SMSBlastRequest struct {
	Message string `json:"message"`
}

// SMSBlast texts every customer of the owner
// POST /api/sms/blast
func SMSBlast(relay *services.SMSRelay, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		var req SMSBlastRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		result, err := relay.Blast(r.Context(), owner, req.Message)
		if err != nil {
			respondServiceError(w, log, "SMSBlast", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, result)
	}
}
