package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"referra.org/internal/audit"
	"referra.org/internal/bank"
	"referra.org/internal/obs"
	"referra.org/internal/vault"
)

type createBankAccountRequest struct {
	HolderName string `json:"holderName"`
	BankName   string `json:"bankName"`
	BIC        string `json:"bic"`
	Country    string `json:"country"`
	Currency   string `json:"currency"`
	IBAN       string `json:"iban"`
}

func (a *API) handleBankCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createBankAccount(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleBankSelf(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getOwnBankAccount(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) createBankAccount(w http.ResponseWriter, r *http.Request) {
	ac, ok := requireAuth(w, r)
	if !ok {
		return
	}

	var req createBankAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.IBAN) == "" {
		writeError(w, r, http.StatusBadRequest, "iban is required")
		return
	}

	view, err := a.bank.Create(r.Context(), bank.CreateInput{
		ProfileID:  ac.ProfileID,
		HolderName: req.HolderName,
		BankName:   req.BankName,
		BIC:        req.BIC,
		Country:    req.Country,
		Currency:   req.Currency,
		IBAN:       req.IBAN,
	})
	if err != nil {
		handleBankError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "bank.account.created", map[string]any{
		"account_id": view.ID,
		"profile_id": ac.ProfileID,
	})
	writeJSON(w, http.StatusCreated, view)
}

func (a *API) getOwnBankAccount(w http.ResponseWriter, r *http.Request) {
	ac, ok := requireAuth(w, r)
	if !ok {
		return
	}

	reveal := r.URL.Query().Get("reveal") == "1"
	view, err := a.bank.Current(r.Context(), ac.ProfileID, reveal)
	if err != nil {
		handleBankError(w, r, err)
		return
	}

	if reveal {
		_ = audit.LogEvent(r.Context(), "bank.account.revealed", map[string]any{
			"account_id": view.ID,
			"profile_id": ac.ProfileID,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func handleBankError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, vault.ErrInvalidIBAN):
		writeError(w, r, http.StatusBadRequest, "invalid iban")
	case errors.Is(err, bank.ErrDuplicateIBAN):
		writeError(w, r, http.StatusConflict, "iban already registered")
	case errors.Is(err, bank.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "bank account not found")
	case errors.Is(err, vault.ErrAuthFailed), errors.Is(err, vault.ErrInvalidPayload):
		obs.LogError("bank: payload decryption failed", map[string]any{"err": err.Error()})
		writeError(w, r, http.StatusInternalServerError, "internal error")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
