// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"

	"cellvcs/internal/errors"
	"cellvcs/internal/validation"
	"cellvcs/internal/vcs"
)

// Handler exposes the core's operations as JSON endpoints. It is a thin
// wrapper — every method decodes a request, calls the matching *vcs.Repo
// method, and encodes the result or maps the error to an HTTP status.
type Handler struct {
	repo *vcs.Repo
}

func NewHandler(repo *vcs.Repo) *Handler {
	return &Handler{repo: repo}
}

type stageRequest struct {
	WorkbookID string `json:"workbook_id"`
	Sheet      int    `json:"sheet_number"`
	RowLetters string `json:"row_letters"`
	ColNumber  int    `json:"col_number"`
}

func (h *Handler) Stage(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.repo.Stage(req.WorkbookID, req.Sheet, req.RowLetters, req.ColNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req validation.CommitRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validation.ValidateCommitRequest(req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.repo.Commit(req.Message, req.Author, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	res, err := h.repo.Status()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := parsePositiveInt(s); err == nil {
			limit = n
		}
	}

	res, err := h.repo.History(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type targetRequest struct {
	Target string `json:"target"`
}

func (h *Handler) HardReset(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.repo.HardReset(req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) SoftReset(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.repo.SoftReset(req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type commitActionRequest struct {
	Commit string `json:"commit"`
	Author string `json:"author"`
	Email  string `json:"email"`
}

func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	var req commitActionRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.repo.Revert(req.Commit, req.Author, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) CherryPick(w http.ResponseWriter, r *http.Request) {
	var req commitActionRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.repo.CherryPick(req.Commit, req.Author, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) PreviewRollback(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	kindStr := r.URL.Query().Get("kind")

	kind, err := validation.ValidateRollbackKind(kindStr)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.repo.PreviewRollback(target, string(kind))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind, ok := errors.KindOf(err)
	status := http.StatusInternalServerError
	if ok {
		status = errors.HTTPStatus(kind)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errors.InvalidInput("empty integer")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.InvalidInput("malformed integer: " + s)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
