package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/auth"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/catalog"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/otp"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/query"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/session"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/valuation"
)

// Store is the persistence the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	FindListings(ctx context.Context, criteria query.FilterCriteria) ([]dal.Listing, error)
	GetListing(ctx context.Context, id int64) (dal.Listing, error)
	CreateSubmission(ctx context.Context, sub dal.Submission) (dal.Listing, error)
	CreateInquiry(ctx context.Context, inq *dal.Inquiry) error
	PendingListings(ctx context.Context) ([]dal.Listing, error)
	Document(ctx context.Context, carID int64, docType dal.DocumentType) (dal.Document, error)
	SetListingStatus(ctx context.Context, id int64, target dal.ListingStatus) (dal.ListingStatus, error)
	Inquiries(ctx context.Context) ([]dal.Inquiry, error)
	MarkInquiryContacted(ctx context.Context, id int64) (dal.InquiryStatus, error)
	Summary(ctx context.Context) (dal.Summary, error)
}

// Deps wires the server to its collaborators.
type Deps struct {
	Store    Store
	Catalog  *catalog.Catalog
	Engine   *valuation.Engine
	OTP      *otp.Service
	Sessions *session.Store
	Auth     *auth.Service
	Logger   *slog.Logger

	// MaxUploadBytes caps a submission body.
	MaxUploadBytes int64
	// Now defaults to time.Now.
	Now func() time.Time
}

// Timeouts for the returned http.Server.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

// NewHTTPServer returns a new HTTP server
func NewHTTPServer(addr string, deps Deps, timeouts Timeouts) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(deps),
		ReadTimeout:       timeouts.Read,
		ReadHeaderTimeout: timeouts.Read,
		WriteTimeout:      timeouts.Write,
	}
}

// NewRouter registers every route on a fresh mux router.
func NewRouter(deps Deps) *mux.Router {
	server := newHTTPServer(deps)
	r := mux.NewRouter()
	server.routes(r)
	return r
}

type httpServer struct {
	store     Store
	catalog   *catalog.Catalog
	engine    *valuation.Engine
	otp       *otp.Service
	sessions  *session.Store
	auth      *auth.Service
	log       *slog.Logger
	maxUpload int64
	now       func() time.Time
}

func newHTTPServer(deps Deps) *httpServer {
	h := &httpServer{
		store:     deps.Store,
		catalog:   deps.Catalog,
		engine:    deps.Engine,
		otp:       deps.OTP,
		sessions:  deps.Sessions,
		auth:      deps.Auth,
		log:       deps.Logger,
		maxUpload: deps.MaxUploadBytes,
		now:       deps.Now,
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 32 << 20
	}
	return h
}

func (h *httpServer) routes(r *mux.Router) {
	r.Use(h.requestID, h.logRequests)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/catalog", h.GetCatalog).Methods(http.MethodGet)
	r.HandleFunc("/listings", h.GetListings).Methods(http.MethodGet)
	r.HandleFunc("/listings/{id:[0-9]+}/contact", h.GetContact).Methods(http.MethodGet)
	r.HandleFunc("/listings/{id:[0-9]+}/inquiries", h.CreateInquiry).Methods(http.MethodPost)
	r.HandleFunc("/estimate", h.Estimate).Methods(http.MethodPost)

	r.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions", h.DeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/otp/send", h.SendOTP).Methods(http.MethodPost)
	r.HandleFunc("/otp/verify", h.VerifyOTP).Methods(http.MethodPost)
	r.HandleFunc("/submissions", h.CreateSubmission).Methods(http.MethodPost)

	r.HandleFunc("/admin/login", h.AdminLogin).Methods(http.MethodPost)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireAdmin)
	admin.HandleFunc("/summary", h.AdminSummary).Methods(http.MethodGet)
	admin.HandleFunc("/listings/pending", h.PendingListings).Methods(http.MethodGet)
	admin.HandleFunc("/listings/{id:[0-9]+}/documents/{type}", h.GetDocument).Methods(http.MethodGet)
	admin.HandleFunc("/listings/{id:[0-9]+}/approve", h.moderate(dal.StatusApproved)).Methods(http.MethodPost)
	admin.HandleFunc("/listings/{id:[0-9]+}/reject", h.moderate(dal.StatusRejected)).Methods(http.MethodPost)
	admin.HandleFunc("/inquiries", h.AdminInquiries).Methods(http.MethodGet)
	admin.HandleFunc("/inquiries/{id:[0-9]+}/contacted", h.MarkContacted).Methods(http.MethodPost)
}
