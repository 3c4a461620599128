package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type statusResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// AdminLogin exchanges the admin credential for a bearer token
func (h *httpServer) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	token, expires, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.log.WarnContext(r.Context(), "admin login failed", "username", req.Username, "remote", r.RemoteAddr)
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}

// AdminSummary returns the dashboard counters
func (h *httpServer) AdminSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.Summary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// PendingListings returns submissions awaiting review with seller contact
func (h *httpServer) PendingListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.store.PendingListings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]dal.ListingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, listingView(l, true))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetDocument streams an RC book or insurance upload
func (h *httpServer) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	docType := dal.DocumentType(mux.Vars(r)["type"])
	if !docType.Valid() {
		h.fail(w, r, badRequest("unknown document type %q", docType))
		return
	}

	doc, err := h.store.Document(r.Context(), id, docType)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="listing-%d-%s"`, id, docType))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func (h *httpServer) moderate(target dal.ListingStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		status, err := h.store.SetListingStatus(r.Context(), id, target)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.log.InfoContext(r.Context(), "listing moderated", "listing_id", id, "status", status, "admin", adminFrom(r.Context()))
		writeJSON(w, http.StatusOK, statusResponse{ID: id, Status: string(status)})
	}
}

// AdminInquiries lists every buyer inquiry, newest first
func (h *httpServer) AdminInquiries(w http.ResponseWriter, r *http.Request) {
	inquiries, err := h.store.Inquiries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inquiries)
}

// MarkContacted flags an inquiry as followed up
func (h *httpServer) MarkContacted(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status, err := h.store.MarkInquiryContacted(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{ID: id, Status: string(status)})
}
