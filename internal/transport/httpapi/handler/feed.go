package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kislikjeka/zapfeed/internal/module/feed"
	"github.com/kislikjeka/zapfeed/internal/module/reconcile"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	apperrors "github.com/kislikjeka/zapfeed/internal/shared/errors"
	"github.com/kislikjeka/zapfeed/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/zapfeed/pkg/money"
)

// FeedServiceInterface defines the feed operations the handler needs
type FeedServiceInterface interface {
	Feed(ctx context.Context, key string, q feed.Query) (*feed.Result, error)
}

// FeedHandler serves the zap feed
type FeedHandler struct {
	feedService FeedServiceInterface
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(feedService FeedServiceInterface) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// PartyResponse is one side of a transfer
type PartyResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Type        user.Type `json:"type"`
}

// TransferItemResponse is one feed row
type TransferItemResponse struct {
	CheckingID  string         `json:"checking_id"`
	From        *PartyResponse `json:"from"`
	To          *PartyResponse `json:"to"`
	FromHint    string         `json:"from_hint,omitempty"`
	ToHint      string         `json:"to_hint,omitempty"`
	AmountSats  int64          `json:"amount_sats"`
	Memo        string         `json:"memo"`
	Time        int64          `json:"time"`
	TimeInvalid bool           `json:"time_invalid,omitempty"`
	WalletID    string         `json:"wallet_id"`
}

// FeedResponse is a feed page
type FeedResponse struct {
	FeedID     string                 `json:"feed_id"`
	Items      []TransferItemResponse `json:"items"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
	Total      int                    `json:"total"`
	Warnings   []feed.Warning         `json:"warnings"`
}

// GetFeed handles GET /feed
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	q, err := parseFeedQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, apperrors.ErrCodeValidation, err.Error())
		return
	}

	result, err := h.feedService.Feed(r.Context(), middleware.ClientKey(r), q)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	items := make([]TransferItemResponse, 0, len(result.Page.Items))
	for i := range result.Page.Items {
		items = append(items, toTransferItem(&result.Page.Items[i]))
	}

	respondJSON(w, http.StatusOK, FeedResponse{
		FeedID:     result.FeedID,
		Items:      items,
		Page:       result.Page.Page,
		PageSize:   result.Page.PageSize,
		TotalPages: result.Page.TotalPages,
		Total:      result.Page.Total,
		Warnings:   result.Warnings,
	})
}

func parseFeedQuery(r *http.Request) (feed.Query, error) {
	values := r.URL.Query()
	var q feed.Query
	var err error

	if q.Since, err = parseSince(values.Get("since")); err != nil {
		return q, err
	}
	if q.Sort, err = feed.ParseSortField(values.Get("sort")); err != nil {
		return q, err
	}
	if q.Order, err = feed.ParseSortOrder(values.Get("order")); err != nil {
		return q, err
	}
	if q.Page, err = parsePositive(values.Get("page"), "page", 1); err != nil {
		return q, err
	}
	if q.PageSize, err = parsePositive(values.Get("page_size"), "page_size", feed.DefaultPageSize); err != nil {
		return q, err
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	return q, nil
}

// parseSince accepts epoch seconds or an ISO-8601 time
func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ts := payment.ParseTimeString(s)
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("invalid since %q", s)
	}
	return ts.Time(), nil
}

func parsePositive(s, name string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return n, nil
}

func toParty(u *user.User) *PartyResponse {
	if u == nil {
		return nil
	}
	return &PartyResponse{ID: u.ID, DisplayName: u.Label(), Type: u.Type}
}

func toTransferItem(rt *reconcile.ReconciledTransfer) TransferItemResponse {
	return TransferItemResponse{
		CheckingID:  rt.Transaction.CheckingID,
		From:        toParty(rt.From),
		To:          toParty(rt.To),
		FromHint:    rt.FromHint,
		ToHint:      rt.ToHint,
		AmountSats:  money.DisplaySats(rt.Transaction.Amount),
		Memo:        rt.Transaction.Memo,
		Time:        rt.Transaction.Time.Unix(),
		TimeInvalid: rt.TimeInvalid,
		WalletID:    rt.Transaction.WalletID,
	}
}
