package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/otp"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/query"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/session"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/valuation"
)

// comparablesLimit caps the listings attached to an estimate.
const comparablesLimit = 5

// Health pings the database
func (h *httpServer) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetCatalog serves the makes, regions and multiplier tables
func (h *httpServer) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog)
}

// GetListings defines a GET handler to search approved listings
func (h *httpServer) GetListings(w http.ResponseWriter, r *http.Request) {
	criteria, err := query.FromValues(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	listings, err := h.store.FindListings(r.Context(), criteria)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Contact details ride along only for sessions that passed the OTP gate.
	withContact := false
	if r.Header.Get(session.HeaderName) != "" {
		if sess, err := h.currentSession(r); err == nil && sess.Verified {
			withContact = true
		}
	}

	resp := dal.ListingsResponse{
		Stats:    query.Stats(listings),
		Listings: make([]dal.ListingView, 0, len(listings)),
	}
	for _, l := range listings {
		resp.Listings = append(resp.Listings, listingView(l, withContact))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetContact reveals the seller of an approved listing to a verified session
func (h *httpServer) GetContact(w http.ResponseWriter, r *http.Request) {
	if _, err := h.verifiedSession(r); err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	l, err := h.store.GetListing(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if l.Status != dal.StatusApproved {
		writeError(w, http.StatusNotFound, fmt.Sprintf("listing %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, l.Seller)
}

type inquiryRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// CreateInquiry records a buyer's interest in an approved listing
func (h *httpServer) CreateInquiry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req inquiryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	email, err := otp.NormalizeEmail(req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	inq := &dal.Inquiry{
		ListingID: id,
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Message:   strings.TrimSpace(req.Message),
	}
	if err := h.store.CreateInquiry(r.Context(), inq); err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.InfoContext(r.Context(), "inquiry received", "inquiry_id", inq.ID, "listing_id", id)
	writeJSON(w, http.StatusCreated, inq)
}

// Estimate prices a car and attaches approved listings in the same price band
func (h *httpServer) Estimate(w http.ResponseWriter, r *http.Request) {
	var in valuation.Input
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.engine.EstimateFor(in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	for _, warning := range res.Warnings {
		h.log.WarnContext(r.Context(), "estimate input not in catalog", "maker", in.Maker, "model", in.Model, "warning", warning)
	}

	comparables, err := h.comparables(r.Context(), res.Price)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dal.EstimateResponse{
		BasePrice:   res.BasePrice,
		Price:       res.Price,
		Adjustments: res.Adjustments,
		Warnings:    res.Warnings,
		Comparables: comparables,
	})
}

// comparables returns approved listings within 10% of price, one per maker
// and model, with image ids but not image bytes.
func (h *httpServer) comparables(ctx context.Context, price int64) ([]dal.Listing, error) {
	if price <= 0 {
		return nil, nil
	}
	candidates, err := h.store.FindListings(ctx, query.FilterCriteria{
		MinPrice: (price*9 + 9) / 10,
		MaxPrice: price * 11 / 10,
	})
	if err != nil {
		return nil, err
	}
	picked := query.Comparables(ctx, candidates, price, comparablesLimit)
	for i := range picked {
		images := make([]dal.Image, len(picked[i].Images))
		for j, img := range picked[i].Images {
			images[j] = dal.Image{ID: img.ID, ListingID: img.ListingID}
		}
		picked[i].Images = images
	}
	return picked, nil
}

func listingView(l dal.Listing, withContact bool) dal.ListingView {
	view := dal.ListingView{Listing: l, Features: l.Features()}
	if withContact {
		contact := l.Seller
		view.Contact = &contact
	}
	return view
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}
