package relaysrv

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veilchat/internal/domain"
)

type credentialsRequest struct {
	Handle string `json:"handle"`
	Secret string `json:"secret"`
}

type authResponse struct {
	Token     string                   `json:"token"`
	Principal domain.PrincipalIdentity `json:"principal"`
}

type addContactRequest struct {
	Handle string `json:"handle"`
}

type exchangeKeysRequest struct {
	ContactID string `json:"contactId"`
}

type exchangeKeysResponse struct {
	RecipientKeys domain.PrekeyBundle `json:"recipientKeys"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, principal, err := s.verifier.Register(r.Context(), req.Handle, req.Secret)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, Principal: principal})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, principal, err := s.verifier.Authenticate(r.Context(), req.Handle, req.Secret)
	if err != nil {
		s.metrics.authFailures.Inc()
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, Principal: principal})
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())
	contacts, err := s.directory.ListContacts(r.Context(), principal.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if contacts == nil {
		contacts = []domain.PrincipalIdentity{}
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (s *Server) handleAddContact(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())
	var req addContactRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	added, err := s.directory.AddContact(r.Context(), principal.ID, req.Handle)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handlePublishKeys(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())
	var bundle domain.PrekeyBundle
	if err := decodeJSON(r, &bundle); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.bundles.Publish(r.Context(), principal.ID, bundle); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.bundlesPublished.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExchangeKeys(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())
	var req exchangeKeysRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	bundle, err := s.bundles.Claim(r.Context(), principal.ID, req.ContactID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(bundle.OneTime) > 0 {
		s.metrics.prekeysClaimed.Inc()
	}
	writeJSON(w, http.StatusOK, exchangeKeysResponse{RecipientKeys: bundle})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())
	contactID := chi.URLParam(r, "contactID")

	envelopes, err := s.messages.History(r.Context(), principal.ID, contactID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if envelopes == nil {
		envelopes = []domain.MessageEnvelope{}
	}
	writeJSON(w, http.StatusOK, envelopes)
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("malformed request body: %w", domain.ErrInvalidInput)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
