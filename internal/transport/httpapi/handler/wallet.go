package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kislikjeka/zapfeed/internal/module/feed"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	apperrors "github.com/kislikjeka/zapfeed/internal/shared/errors"
	"github.com/kislikjeka/zapfeed/pkg/money"
)

// WalletDirectory lists the live wallets of one user
type WalletDirectory interface {
	ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error)
}

// WalletLogService reads the history of one role wallet
type WalletLogService interface {
	WalletLog(ctx context.Context, aadObjectID string, role wallet.Role, since time.Time) (*feed.WalletLogResult, error)
}

// WalletHandler handles wallet-related HTTP requests
type WalletHandler struct {
	directory WalletDirectory
	logs      WalletLogService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(dir WalletDirectory, logs WalletLogService) *WalletHandler {
	return &WalletHandler{
		directory: dir,
		logs:      logs,
	}
}

// WalletResponse represents a wallet without its keys
type WalletResponse struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	BalanceSats int64    `json:"balance_sats"`
	BalanceMsat int64    `json:"balance_msat"`
}

// WalletsListResponse represents the response for listing wallets
type WalletsListResponse struct {
	Wallets []WalletResponse `json:"wallets"`
}

// LogEntryResponse is one wallet log row
type LogEntryResponse struct {
	CheckingID       string         `json:"checking_id"`
	IsIncoming       bool           `json:"is_incoming"`
	From             *PartyResponse `json:"from"`
	To               *PartyResponse `json:"to"`
	CounterpartyHint string         `json:"counterparty_hint,omitempty"`
	AmountSats       int64          `json:"amount_sats"`
	Memo             string         `json:"memo"`
	Time             int64          `json:"time"`
	TimeInvalid      bool           `json:"time_invalid,omitempty"`
	Pending          bool           `json:"pending"`
}

// WalletLogResponse is the history of one wallet
type WalletLogResponse struct {
	Wallet   WalletResponse     `json:"wallet"`
	Entries  []LogEntryResponse `json:"entries"`
	Warnings []feed.Warning     `json:"warnings"`
}

// GetWallets handles GET /users/{userID}/wallets
func (h *WalletHandler) GetWallets(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	wallets, err := h.directory.ListWallets(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := WalletsListResponse{Wallets: make([]WalletResponse, 0, len(wallets))}
	for i := range wallets {
		resp.Wallets = append(resp.Wallets, toWalletResponse(&wallets[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetWalletLog handles GET /users/{userID}/wallets/{role}/transactions.
// Here userID is the caller's Azure AD object id.
func (h *WalletHandler) GetWalletLog(w http.ResponseWriter, r *http.Request) {
	aad := chi.URLParam(r, "userID")
	role, ok := wallet.ParseRole(chi.URLParam(r, "role"))
	if !ok || (role != wallet.RoleAllowance && role != wallet.RolePrivate) {
		respondError(w, http.StatusBadRequest, apperrors.ErrCodeValidation, "role must be allowance or private")
		return
	}
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		respondError(w, http.StatusBadRequest, apperrors.ErrCodeValidation, err.Error())
		return
	}

	result, err := h.logs.WalletLog(r.Context(), aad, role, since)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	entries := make([]LogEntryResponse, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, LogEntryResponse{
			CheckingID:       e.Transaction.CheckingID,
			IsIncoming:       e.IsIncoming,
			From:             toParty(e.From),
			To:               toParty(e.To),
			CounterpartyHint: e.CounterpartyHint,
			AmountSats:       money.DisplaySats(e.Transaction.Amount),
			Memo:             e.Transaction.Memo,
			Time:             e.Transaction.Time.Unix(),
			TimeInvalid:      e.TimeInvalid,
			Pending:          e.Transaction.Pending,
		})
	}

	respondJSON(w, http.StatusOK, WalletLogResponse{
		Wallet:   toWalletResponse(&result.Wallet),
		Entries:  entries,
		Warnings: result.Warnings,
	})
}

func toWalletResponse(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		ID:          w.ID,
		UserID:      w.UserID,
		Name:        w.Name,
		Roles:       w.Roles().Names(),
		BalanceSats: money.MsatToSats(w.BalanceMsat),
		BalanceMsat: w.BalanceMsat,
	}
}
