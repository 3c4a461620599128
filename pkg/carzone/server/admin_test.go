package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	field, name string
	data        []byte
}

func validForm() map[string]string {
	return map[string]string{
		"maker":          "Hyundai",
		"model":          "Creta",
		"fuel_type":      "Diesel",
		"transmission":   "Automatic",
		"variant":        "SX",
		"ownership":      "First Owner",
		"year":           "2021",
		"km_driven":      "42000",
		"mileage":        "17.4",
		"price":          "1250000",
		"state":          "Maharashtra",
		"city":           "Pune",
		"phone":          "9876543210",
		"extra_features": "Sunroof, ABS",
	}
}

func validUploads() []upload {
	return []upload{
		{"images", "front.jpg", []byte("front")},
		{"images", "back.jpg", []byte("back")},
		{"rc_book", "rc.pdf", []byte("%PDF rc")},
		{"insurance", "ins.pdf", []byte("%PDF insurance")},
	}
}

func (e *testEnv) submit(fields map[string]string, uploads []upload, headers map[string]string) (*http.Response, []byte) {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, mw.WriteField(k, v))
	}
	for _, u := range uploads {
		part, err := mw.CreateFormFile(u.field, u.name)
		require.NoError(e.t, err)
		_, err = part.Write(u.data)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.ts.URL+"/submissions", &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, body
}

func TestSellerFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.submit(validForm(), validUploads(), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "no session")

	headers := env.verifiedSession("Seller@Example.com")
	resp, body := env.submit(validForm(), validUploads(), headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created submissionResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, dal.StatusPending, created.Status)
	assert.Equal(t, 2, created.Images)
	assert.Equal(t, []dal.DocumentType{dal.DocumentRCBook, dal.DocumentInsurance}, created.Documents)

	resp, _ = env.submit(validForm(), validUploads(), headers)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "verification is cleared after a submission")

	resp, body = env.do(http.MethodGet, "/listings", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listingsResp dal.ListingsResponse
	require.NoError(t, json.Unmarshal(body, &listingsResp))
	assert.Empty(t, listingsResp.Listings, "pending listings are not public")

	admin := env.adminToken()
	resp, body = env.do(http.MethodGet, "/admin/listings/pending", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var pending []dal.ListingView
	require.NoError(t, json.Unmarshal(body, &pending))
	require.Len(t, pending, 1)
	got := pending[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "seller@example.com", got.Contact.Email)
	assert.Equal(t, "9876543210", got.Contact.Phone)
	assert.Equal(t, 2021, got.Year)
	assert.Equal(t, int64(42000), got.KmDriven)
	assert.Equal(t, 17.4, got.Mileage)
	assert.Equal(t, []string{"Sunroof", "ABS"}, got.Features)
	assert.Len(t, got.Images, 2)
	assert.ElementsMatch(t, []dal.DocumentType{dal.DocumentRCBook, dal.DocumentInsurance}, got.Documents)

	resp, _ = env.do(http.MethodPost, fmt.Sprintf("/admin/listings/%d/approve", created.ID), nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = env.do(http.MethodGet, "/listings?city=Pune", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &listingsResp))
	assert.Equal(t, []int64{created.ID}, listingIDs(listingsResp.Listings))
}

func TestSubmissionValidation(t *testing.T) {
	env := newTestEnv(t)

	manyImages := validUploads()
	for i := 0; i < 7; i++ {
		manyImages = append(manyImages, upload{"images", fmt.Sprintf("%d.jpg", i), []byte("x")})
	}

	tests := []struct {
		name    string
		mutate  func(map[string]string)
		uploads []upload
	}{
		{name: "missing maker", mutate: func(f map[string]string) { delete(f, "maker") }},
		{name: "unknown model", mutate: func(f map[string]string) { f["model"] = "Gypsy" }},
		{name: "unknown fuel", mutate: func(f map[string]string) { f["fuel_type"] = "Steam" }},
		{name: "city outside state", mutate: func(f map[string]string) { f["city"] = "Noida" }},
		{name: "year too old", mutate: func(f map[string]string) { f["year"] = "1989" }},
		{name: "year in future", mutate: func(f map[string]string) { f["year"] = "2027" }},
		{name: "negative price", mutate: func(f map[string]string) { f["price"] = "-1" }},
		{name: "bad km", mutate: func(f map[string]string) { f["km_driven"] = "lots" }},
		{name: "negative mileage", mutate: func(f map[string]string) { f["mileage"] = "-3" }},
		{name: "no images", uploads: validUploads()[2:]},
		{name: "nine images", uploads: manyImages},
		{name: "missing rc book", uploads: []upload{validUploads()[0], validUploads()[3]}},
		{name: "empty insurance", uploads: append(validUploads()[:3], upload{"insurance", "ins.pdf", nil})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			headers := env.verifiedSession("seller@example.com")
			fields := validForm()
			if tc.mutate != nil {
				tc.mutate(fields)
			}
			uploads := tc.uploads
			if uploads == nil {
				uploads = validUploads()
			}
			resp, body := env.submit(fields, uploads, headers)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
		})
	}

	admin := env.adminToken()
	resp, body := env.do(http.MethodGet, "/admin/summary", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum dal.Summary
	require.NoError(t, json.Unmarshal(body, &sum))
	assert.Equal(t, 0, sum.PendingListings, "rejected submissions store nothing")
}

func TestAdminAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(http.MethodPost, "/admin/login", map[string]string{"username": "admin", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	for _, headers := range []map[string]string{
		nil,
		{"Authorization": "Bearer garbage"},
		{"Authorization": "Basic YWRtaW46czNjcmV0"},
	} {
		resp, _ := env.do(http.MethodGet, "/admin/summary", nil, headers)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, headers)
		resp, _ = env.do(http.MethodPost, "/admin/listings/1/approve", nil, headers)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, headers)
	}

	resp, _ = env.do(http.MethodGet, "/admin/summary", nil, env.adminToken())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminModeration(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken()
	first := env.seed("Hyundai", "Creta", 1100000, "Maharashtra", "Pune", dal.StatusPending)
	second := env.seed("Tata", "Nexon", 800000, "Delhi NCR", "Noida", dal.StatusPending)

	post := func(path string) (int, statusResponse) {
		resp, body := env.do(http.MethodPost, path, nil, admin)
		var status statusResponse
		if resp.StatusCode == http.StatusOK {
			require.NoError(t, json.Unmarshal(body, &status))
		}
		return resp.StatusCode, status
	}

	code, status := post(fmt.Sprintf("/admin/listings/%d/approve", first.ID))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, statusResponse{ID: first.ID, Status: "approved"}, status)

	code, status = post(fmt.Sprintf("/admin/listings/%d/approve", first.ID))
	assert.Equal(t, http.StatusOK, code, "re-approving is a no-op")
	assert.Equal(t, "approved", status.Status)

	code, _ = post(fmt.Sprintf("/admin/listings/%d/reject", first.ID))
	assert.Equal(t, http.StatusConflict, code)

	code, status = post(fmt.Sprintf("/admin/listings/%d/reject", second.ID))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "rejected", status.Status)

	code, _ = post("/admin/listings/999/approve")
	assert.Equal(t, http.StatusNotFound, code)

	resp, body := env.do(http.MethodGet, fmt.Sprintf("/admin/listings/%d/documents/rc_book", first.ID), nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rc-Creta", string(body))
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "rc_book")

	resp, _ = env.do(http.MethodGet, fmt.Sprintf("/admin/listings/%d/documents/passport", first.ID), nil, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(http.MethodGet, "/admin/listings/999/documents/insurance", nil, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminInquiries(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken()
	listing := env.seed("Hyundai", "Creta", 1100000, "Maharashtra", "Pune", dal.StatusApproved)

	resp, body := env.do(http.MethodPost, fmt.Sprintf("/listings/%d/inquiries", listing.ID),
		map[string]string{"name": "Asha", "email": "asha@example.com", "message": "Hi"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created dal.Inquiry
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body = env.do(http.MethodGet, "/admin/summary", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum dal.Summary
	require.NoError(t, json.Unmarshal(body, &sum))
	assert.Equal(t, dal.Summary{PendingListings: 0, NewInquiries: 1}, sum)

	resp, body = env.do(http.MethodGet, "/admin/inquiries", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inquiries []dal.Inquiry
	require.NoError(t, json.Unmarshal(body, &inquiries))
	require.Len(t, inquiries, 1)
	assert.Equal(t, "Creta", inquiries[0].Model)
	assert.Equal(t, int64(1100000), inquiries[0].Price)
	assert.Equal(t, "owner@example.com", inquiries[0].SellerEmail)

	for i := 0; i < 2; i++ {
		resp, body = env.do(http.MethodPost, fmt.Sprintf("/admin/inquiries/%d/contacted", created.ID), nil, admin)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		var status statusResponse
		require.NoError(t, json.Unmarshal(body, &status))
		assert.Equal(t, "contacted", status.Status)
	}

	resp, _ = env.do(http.MethodPost, "/admin/inquiries/999/contacted", nil, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
