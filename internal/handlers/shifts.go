package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/services"
	"gameroom-backend/pkg/utils"
)

const maxSnapshotBytes = 10 << 20

// GetCurrentShift returns the caller's draft shift, or null
// GET /api/shift/current
func GetCurrentShift(shifts *services.ShiftService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		draft, err := shifts.Current(r.Context(), owner)
		if err != nil {
			respondServiceError(w, log, "GetCurrentShift", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"shift": draft})
	}
}

type StartShiftRequest struct {
	EmployeeName string `json:"employee_name"`
}

// StartShift opens a draft shift
// POST /api/shift/start
func StartShift(shifts *services.ShiftService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		var req StartShiftRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		draft, err := shifts.Start(r.Context(), owner, req.EmployeeName)
		if err != nil {
			respondServiceError(w, log, "StartShift", err)
			return
		}
		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{"shift": draft})
	}
}

type SetMachineRequest struct {
	In  string `json:"in"`
	Out string `json:"out"`
}

// SetMachine records a machine's in/out amounts on the draft
// PUT /api/shift/machines/{label}
func SetMachine(shifts *services.ShiftService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		var req SetMachineRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		draft, err := shifts.SetMachine(r.Context(), owner, chi.URLParam(r, "label"), req.In, req.Out)
		if err != nil {
			respondServiceError(w, log, "SetMachine", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"shift": draft})
	}
}

// UploadSnapshot attaches the meter photo for a machine (multipart field "photo")
// POST /api/shift/machines/{label}/snapshot
func UploadSnapshot(shifts *services.ShiftService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxSnapshotBytes)
		if err := r.ParseMultipartForm(maxSnapshotBytes); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		file, _, err := r.FormFile("photo")
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "photo is required")
			return
		}
		defer file.Close()

		photo, err := io.ReadAll(file)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Failed to read photo")
			return
		}

		draft, err := shifts.AddSnapshot(r.Context(), owner, chi.URLParam(r, "label"), photo)
		if err != nil {
			respondServiceError(w, log, "UploadSnapshot", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"shift": draft})
	}
}

type SetNotesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// SetShiftNotes replaces the draft's notes
// PUT /api/shift/notes
func SetShiftNotes(shifts *services.ShiftService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		var req SetNotesRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		draft, err := shifts.SetNotes(r.Context(), owner, req.Notes)
		if err != nil {
			respondServiceError(w, log, "SetShiftNotes", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"shift": draft})
	}
}

// FinalizeShift moves the draft to review
// POST /api/shift/finalize
func FinalizeShift(shifts *services.ShiftService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		draft, err := shifts.Finalize(r.Context(), owner)
		if err != nil {
			respondServiceError(w, log, "FinalizeShift", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"shift": draft})
	}
}

// CloseShift commits the reviewed draft as a shift record
// POST /api/shift/close
func CloseShift(shifts *services.ShiftService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		record, err := shifts.Close(r.Context(), owner)
		if err != nil {
			respondServiceError(w, log, "CloseShift", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "shift": record})
	}
}

// DiscardShift drops the draft without writing anything
// DELETE /api/shift
func DiscardShift(shifts *services.ShiftService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		if err := shifts.Discard(r.Context(), owner); err != nil {
			respondServiceError(w, log, "DiscardShift", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// ListShifts returns closed shifts that ended in month (YYYY-MM)
// GET /api/shifts?month=
func ListShifts(shifts *services.ShiftService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		list, err := shifts.ListShifts(r.Context(), owner, r.URL.Query().Get("month"))
		if err != nil {
			respondServiceError(w, log, "ListShifts", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"shifts": list, "count": len(list)})
	}
}

// GetShift returns one closed shift
// GET /api/shifts/{id}
func GetShift(shifts *services.ShiftService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		record, err := shifts.GetShift(r.Context(), owner, chi.URLParam(r, "id"))
		if err != nil {
			respondServiceError(w, log, "GetShift", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, record)
	}
}
