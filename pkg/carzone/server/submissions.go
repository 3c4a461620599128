package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/store"
)

// MinYear is the oldest manufacture year the sell form accepts.
const MinYear = 1990

type submissionResponse struct {
	ID        int64              `json:"id"`
	Status    dal.ListingStatus  `json:"status"`
	Images    int                `json:"images"`
	Documents []dal.DocumentType `json:"documents"`
}

// CreateSubmission stores a seller's car for moderation
func (h *httpServer) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	sess, err := h.verifiedSession(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("submission exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.fail(w, r, badRequest("invalid multipart form: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	sub, err := h.parseSubmission(r.MultipartForm)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sub.Seller.Email = sess.Email

	listing, err := h.store.CreateSubmission(r.Context(), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.sessions.ClearVerification(sess.ID); err != nil {
		h.log.WarnContext(r.Context(), "failed to clear session verification", "error", err)
	}

	h.log.InfoContext(r.Context(), "listing submitted", "listing_id", listing.ID, "maker", listing.Maker, "model", listing.Model)
	writeJSON(w, http.StatusCreated, submissionResponse{
		ID:        listing.ID,
		Status:    listing.Status,
		Images:    len(listing.Images),
		Documents: listing.Documents,
	})
}

func (h *httpServer) parseSubmission(form *multipart.Form) (dal.Submission, error) {
	value := func(key string) string {
		if vs := form.Value[key]; len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
		return ""
	}

	features := append([]string{}, form.Value["features"]...)
	features = append(features, strings.Split(value("extra_features"), ",")...)

	l := dal.Listing{
		Maker:         value("maker"),
		Model:         value("model"),
		FuelType:      value("fuel_type"),
		Transmission:  value("transmission"),
		Variant:       value("variant"),
		Ownership:     value("ownership"),
		State:         value("state"),
		City:          value("city"),
		ExtraFeatures: dal.JoinFeatures(features),
	}

	for _, key := range []string{"maker", "model", "fuel_type", "transmission", "state", "city"} {
		if value(key) == "" {
			return dal.Submission{}, badRequest("%s is required", key)
		}
	}
	if _, ok := h.catalog.BasePrice(l.Maker, l.Model); !ok {
		return dal.Submission{}, badRequest("unknown maker/model %s %s", l.Maker, l.Model)
	}
	if _, ok := h.catalog.FuelTypes[l.FuelType]; !ok {
		return dal.Submission{}, badRequest("unknown fuel type %q", l.FuelType)
	}
	if _, ok := h.catalog.Transmissions[l.Transmission]; !ok {
		return dal.Submission{}, badRequest("unknown transmission %q", l.Transmission)
	}
	if !h.catalog.HasCity(l.State, l.City) {
		return dal.Submission{}, badRequest("city %q is not in state %q", l.City, l.State)
	}

	var err error
	if l.Year, err = strconv.Atoi(value("year")); err != nil {
		return dal.Submission{}, badRequest("invalid year %q", value("year"))
	}
	if current := h.now().Year(); l.Year < MinYear || l.Year > current {
		return dal.Submission{}, badRequest("year must be between %d and %d", MinYear, current)
	}
	if l.KmDriven, err = parseInt("km_driven", value("km_driven")); err != nil {
		return dal.Submission{}, err
	}
	if l.Price, err = parseInt("price", value("price")); err != nil {
		return dal.Submission{}, err
	}
	if raw := value("mileage"); raw != "" {
		if l.Mileage, err = strconv.ParseFloat(raw, 64); err != nil || l.Mileage < 0 {
			return dal.Submission{}, badRequest("mileage must be a non-negative number: %q", raw)
		}
	}

	images := form.File["images"]
	if len(images) == 0 || len(images) > store.MaxImages {
		return dal.Submission{}, badRequest("between 1 and %d images are required", store.MaxImages)
	}
	sub := dal.Submission{
		Seller: dal.Seller{
			Phone: value("phone"),
			State: l.State,
			City:  l.City,
		},
		Listing:   l,
		Documents: make(map[dal.DocumentType][]byte),
	}
	for _, fh := range images {
		data, err := readPart(fh)
		if err != nil {
			return dal.Submission{}, err
		}
		sub.Images = append(sub.Images, data)
	}
	for _, docType := range []dal.DocumentType{dal.DocumentRCBook, dal.DocumentInsurance} {
		files := form.File[string(docType)]
		if len(files) != 1 {
			return dal.Submission{}, badRequest("exactly one %s file is required", docType)
		}
		data, err := readPart(files[0])
		if err != nil {
			return dal.Submission{}, err
		}
		sub.Documents[docType] = data
	}
	return sub, nil
}

func parseInt(key, raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer: %q", key, raw)
	}
	return n, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	if len(data) == 0 {
		return nil, badRequest("upload %s is empty", fh.Filename)
	}
	return data, nil
}
