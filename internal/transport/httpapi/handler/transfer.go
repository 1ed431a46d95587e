package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kislikjeka/zapfeed/internal/module/transfer"
	apperrors "github.com/kislikjeka/zapfeed/internal/shared/errors"
)

// TransferServiceInterface defines the transfer operations the handler needs
type TransferServiceInterface interface {
	Send(ctx context.Context, req transfer.Request) (*transfer.Result, error)
}

// TransferHandler handles zap transfers
type TransferHandler struct {
	transferService TransferServiceInterface
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(transferService TransferServiceInterface) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

// TransferResponse describes a completed zap
type TransferResponse struct {
	From           *PartyResponse `json:"from"`
	To             *PartyResponse `json:"to"`
	FromWalletID   string         `json:"from_wallet_id"`
	ToWalletID     string         `json:"to_wallet_id"`
	AmountSats     int64          `json:"amount_sats"`
	Memo           string         `json:"memo"`
	PaymentRequest string         `json:"payment_request"`
	PaymentHash    string         `json:"payment_hash"`
	CheckingID     string         `json:"checking_id,omitempty"`
}

// CreateTransfer handles POST /transfers
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transfer.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apperrors.ErrCodeValidation, "invalid request body")
		return
	}

	result, err := h.transferService.Send(r.Context(), req)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, TransferResponse{
		From:           toParty(result.From),
		To:             toParty(result.To),
		FromWalletID:   result.FromWalletID,
		ToWalletID:     result.ToWalletID,
		AmountSats:     result.AmountSats,
		Memo:           result.Memo,
		PaymentRequest: result.PaymentRequest,
		PaymentHash:    result.PaymentHash,
		CheckingID:     result.CheckingID,
	})
}
