package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fastprodman/vaultd/internal/repos/accounts"
	"github.com/fastprodman/vaultd/internal/repos/events"
	"github.com/fastprodman/vaultd/internal/repos/vaults"
	"github.com/fastprodman/vaultd/internal/services/custody"
	"github.com/fastprodman/vaultd/internal/vault"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActorHeader carries the caller identity, authenticated upstream.
const ActorHeader = "X-Actor-ID"

const defaultEventsLimit = 50

// Custody is the service surface the handlers depend on.
type Custody interface {
	Open(ctx context.Context, authority vault.Identity) (vault.Vault, error)
	Deposit(ctx context.Context, req custody.Request) (vault.Event, error)
	Withdraw(ctx context.Context, req custody.Request) (vault.Event, error)
	SetLocked(ctx context.Context, vaultID uuid.UUID, caller vault.Identity, locked bool) (vault.Vault, error)
	GetVault(ctx context.Context, id uuid.UUID) (custody.VaultView, error)
	GetAccount(ctx context.Context, id vault.Identity) (vault.Account, error)
	ListEvents(ctx context.Context, vaultID uuid.UUID, limit int) ([]vault.Event, error)
}

// HandlerProvider wraps the custody service and exposes HTTP handlers.
type HandlerProvider struct {
	svc      Custody
	decimals int32
}

// NewHandler returns a new Handler provider. decimals sets the scale of the
// display amounts in responses.
func NewHandler(svc Custody, decimals int32) *HandlerProvider {
	return &HandlerProvider{svc: svc, decimals: decimals}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// writeServiceError maps error kinds to distinct statuses so clients can
// tell "top up and retry" from "give up".
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, vault.ErrVaultLocked):
		writeError(w, http.StatusLocked, "vault_locked", "vault is locked")
	case errors.Is(err, vault.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, "insufficient_balance", "insufficient balance")
	case errors.Is(err, vault.ErrOverflow):
		writeError(w, http.StatusUnprocessableEntity, "overflow", "amount overflows balance")
	case errors.Is(err, vault.ErrUnauthorized), errors.Is(err, custody.ErrBindingMismatch):
		writeError(w, http.StatusForbidden, "unauthorized", "caller is not the vault authority")
	case errors.Is(err, vault.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_amount", "amount must be positive")
	case errors.Is(err, events.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, "duplicate_request", "duplicate request")
	case errors.Is(err, vaults.ErrVaultExists):
		writeError(w, http.StatusConflict, "vault_exists", "vault already exists")
	case errors.Is(err, vaults.ErrVaultNotFound):
		writeError(w, http.StatusNotFound, "vault_not_found", "vault not found")
	case errors.Is(err, accounts.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", "account not found")
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func parseActor(r *http.Request) (vault.Identity, error) {
	raw := strings.TrimSpace(r.Header.Get(ActorHeader))
	if raw == "" {
		return vault.Identity{}, fmt.Errorf("missing %s header", ActorHeader)
	}

	return vault.ParseIdentity(strings.ToLower(raw))
}

func parseVaultID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "vaultId"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid vaultId: %w", err)
	}

	return id, nil
}

type amountRequest struct {
	Amount    string `json:"amount"`
	RequestID string `json:"requestId"`
}

// parseAmount reads an unsigned 64-bit integer sent as a decimal string,
// which survives JSON clients that store numbers as doubles.
func parseAmount(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("amount required")
	}

	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("amount must be an unsigned 64-bit integer")
	}

	return u, nil
}

func (h *HandlerProvider) display(u uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), -h.decimals).StringFixed(h.decimals)
}

type vaultResponse struct {
	ID               string         `json:"id"`
	Authority        vault.Identity `json:"authority"`
	Locked           bool           `json:"locked"`
	Balance          string         `json:"balance"`
	BalanceDisplay   string         `json:"balanceDisplay"`
	ReserveFloor     string         `json:"reserveFloor,omitempty"`
	Available        string         `json:"available,omitempty"`
	AvailableDisplay string         `json:"availableDisplay,omitempty"`
}

func (h *HandlerProvider) vaultBody(v vault.Vault) vaultResponse {
	return vaultResponse{
		ID:             v.ID.String(),
		Authority:      v.Authority,
		Locked:         v.Locked,
		Balance:        strconv.FormatUint(v.Balance, 10),
		BalanceDisplay: h.display(v.Balance),
	}
}

type eventResponse struct {
	ID      string          `json:"id"`
	Kind    vault.EventKind `json:"kind"`
	VaultID string          `json:"vaultId"`
	Actor   vault.Identity  `json:"actor"`
	Amount  string          `json:"amount"`
	At      string          `json:"at"`
}

func eventBody(e vault.Event) eventResponse {
	return eventResponse{
		ID:      e.ID.String(),
		Kind:    e.Kind,
		VaultID: e.VaultID.String(),
		Actor:   e.Actor,
		Amount:  strconv.FormatUint(e.Amount, 10),
		At:      e.At.Format(time.RFC3339Nano),
	}
}

// --- Handlers ---

// OpenVaultHandler handles POST /vaults
func (h *HandlerProvider) OpenVaultHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := parseActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_actor", err.Error())
		return
	}

	v, err := h.svc.Open(r.Context(), actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/vaults/"+v.ID.String())
	writeJSON(w, http.StatusCreated, h.vaultBody(v))
}

// GetVaultHandler handles GET /vaults/{vaultId}
func (h *HandlerProvider) GetVaultHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_vault_id", err.Error())
		return
	}

	view, err := h.svc.GetVault(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	body := h.vaultBody(view.Vault)
	body.ReserveFloor = strconv.FormatUint(view.ReserveFloor, 10)
	body.Available = strconv.FormatUint(view.Available, 10)
	body.AvailableDisplay = h.display(view.Available)

	writeJSON(w, http.StatusOK, body)
}

// ListEventsHandler handles GET /vaults/{vaultId}/events?limit=N
func (h *HandlerProvider) ListEventsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_vault_id", err.Error())
		return
	}

	limit := defaultEventsLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
	}

	list, err := h.svc.ListEvents(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]eventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, eventBody(e))
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

// DepositHandler handles POST /vaults/{vaultId}/deposit
func (h *HandlerProvider) DepositHandler(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, h.svc.Deposit)
}

// WithdrawHandler handles POST /vaults/{vaultId}/withdraw
func (h *HandlerProvider) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, h.svc.Withdraw)
}

func (h *HandlerProvider) transfer(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, custody.Request) (vault.Event, error),
) {
	actor, err := parseActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_actor", err.Error())
		return
	}

	id, err := parseVaultID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_vault_id", err.Error())
		return
	}

	// Limit body size; disallow unknown fields
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	var req amountRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err = dec.Decode(&req)
	if err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_body", "empty body")
			return
		}

		writeError(w, http.StatusBadRequest, "invalid_body", "invalid JSON")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", err.Error())
		return
	}

	e, err := op(r.Context(), custody.Request{
		VaultID:   id,
		Actor:     actor,
		Amount:    amount,
		RequestID: req.RequestID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, eventBody(e))
}

// LockHandler handles POST /vaults/{vaultId}/lock and /unlock.
func (h *HandlerProvider) LockHandler(locked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := parseActor(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_actor", err.Error())
			return
		}

		id, err := parseVaultID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_vault_id", err.Error())
			return
		}

		v, err := h.svc.SetLocked(r.Context(), id, actor, locked)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, h.vaultBody(v))
	}
}

// GetAccountHandler handles GET /accounts/{accountId}
func (h *HandlerProvider) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := vault.ParseIdentity(strings.ToLower(chi.URLParam(r, "accountId")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_account_id", "invalid accountId in path")
		return
	}

	acc, err := h.svc.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":             acc.ID,
		"balance":        strconv.FormatUint(acc.Balance, 10),
		"balanceDisplay": h.display(acc.Balance),
	})
}
