package server

import (
	"fmt"
	"net/http"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/otp"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/session"
)

type sendCodeRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

// CreateSession starts an anonymous session
func (h *httpServer) CreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := h.sessions.Create()
	w.Header().Set(session.HeaderName, sess.ID)
	writeJSON(w, http.StatusCreated, sess)
}

// DeleteSession discards the caller's session
func (h *httpServer) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(session.HeaderName)
	if id == "" {
		h.fail(w, r, badRequest("missing %s header", session.HeaderName))
		return
	}
	h.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// SendOTP mails a one-time code and binds the address to the session
func (h *httpServer) SendOTP(w http.ResponseWriter, r *http.Request) {
	sess, err := h.currentSession(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req sendCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	email, err := otp.NormalizeEmail(req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.otp.SendCode(r.Context(), email); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.sessions.SetEmail(sess.ID, email); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent", "email": email})
}

// VerifyOTP checks the code sent to the session's email
func (h *httpServer) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	sess, err := h.currentSession(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req verifyCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if sess.Email == "" {
		h.fail(w, r, session.ErrNoEmail)
		return
	}

	if err := h.otp.VerifyCode(r.Context(), sess.Email, req.Code); err != nil {
		h.log.InfoContext(r.Context(), "otp verification failed", "email", sess.Email, "error", err)
		h.fail(w, r, err)
		return
	}
	verified, err := h.sessions.MarkVerified(sess.ID, sess.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verified)
}

func (h *httpServer) currentSession(r *http.Request) (session.Session, error) {
	id := r.Header.Get(session.HeaderName)
	if id == "" {
		return session.Session{}, fmt.Errorf("%w: missing %s header", session.ErrNotFound, session.HeaderName)
	}
	return h.sessions.Get(id)
}

func (h *httpServer) verifiedSession(r *http.Request) (session.Session, error) {
	sess, err := h.currentSession(r)
	if err != nil {
		return session.Session{}, err
	}
	if !sess.Verified {
		return session.Session{}, errNotVerified
	}
	return sess, nil
}
