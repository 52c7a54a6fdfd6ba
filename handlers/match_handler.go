package handlers

import (
	"net/http"

	"github.com/Dosada05/tcg-arena/middleware"
	"github.com/Dosada05/tcg-arena/services"
)

type MatchHandler struct {
	resultService services.ResultService
}

func NewMatchHandler(rs services.ResultService) *MatchHandler {
	return &MatchHandler{resultService: rs}
}

type reportResultRequest struct {
	WinnerID *int `json:"winner_id"`
	Draw     bool `json:"draw"`
	P1Games  int  `json:"p1_games"`
	P2Games  int  `json:"p2_games"`
	Version  int  `json:"version"`
}

// ReportResultHandler обрабатывает POST /matches/{matchID}/result
func (h *MatchHandler) ReportResultHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to report a result")
		return
	}

	var input reportResultRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.resultService.ReportResult(r.Context(), services.ReportResultParams{
		MatchID:    matchID,
		ReporterID: currentUserID,
		WinnerID:   input.WinnerID,
		Draw:       input.Draw,
		P1Games:    input.P1Games,
		P2Games:    input.P2Games,
		Version:    input.Version,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type resolveDisputeRequest struct {
	WinnerID int `json:"winner_id"`
}

// ResolveDisputeHandler обрабатывает POST /disputes/{disputeID}/resolve
func (h *MatchHandler) ResolveDisputeHandler(w http.ResponseWriter, r *http.Request) {
	disputeID, err := getIDFromURL(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input resolveDisputeRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.resultService.ResolveDispute(r.Context(), disputeID, currentUserID, input.WinnerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListDisputesHandler обрабатывает GET /tournaments/{tournamentID}/disputes
func (h *MatchHandler) ListDisputesHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	disputes, err := h.resultService.ListOpenDisputes(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"disputes": disputes}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
