package payment

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/tersane/ferry-reservation-system/internal/domain"
)

// Result is everything a callback payload can tell us about a session.
type Result struct {
	Outcome          domain.PaymentOutcome
	GatewaySessionID string
	OrderID          string
	TransactionID    string
	BookingID        string
}

// Parse extracts a definitive payment result from a raw callback payload.
// A structured parse (JSON message, redirect URL, bare query string) is
// attempted first; only when that yields nothing definitive does the
// heuristic substring scan run. Payloads with no definitive result return
// ErrCallbackUnparseable.
func Parse(raw string) (*Result, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrCallbackUnparseable
	}

	if r := parseStructured(raw); r != nil {
		return r, nil
	}

	if outcome, ok := scanOutcome(raw); ok {
		return &Result{Outcome: outcome}, nil
	}

	return nil, domain.ErrCallbackUnparseable
}

func parseStructured(raw string) *Result {
	if strings.HasPrefix(raw, "{") {
		return parseMessage(raw)
	}

	if strings.Contains(raw, "://") || strings.HasPrefix(raw, "/") {
		u, err := url.Parse(raw)
		if err != nil {
			return nil
		}
		return fromValues(u.Query())
	}

	if strings.ContainsRune(raw, '=') {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return nil
		}
		return fromValues(values)
	}

	return nil
}

// parseMessage handles the structured JSON message posted by the hosted
// checkout page and the equivalent payload relayed by the deep link paths.
func parseMessage(raw string) *Result {
	var msg struct {
		Result          string `json:"result"`
		ResultIndicator string `json:"resultIndicator"`
		OrderID         string `json:"orderId"`
		TransactionID   string `json:"transactionId"`
		BookingID       string `json:"bookingId"`
		SessionID       string `json:"sessionId"`
		Session         struct {
			ID string `json:"id"`
		} `json:"session"`
	}

	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil
	}

	r := &Result{
		GatewaySessionID: msg.Session.ID,
		OrderID:          msg.OrderID,
		TransactionID:    msg.TransactionID,
		BookingID:        msg.BookingID,
	}
	if r.GatewaySessionID == "" {
		r.GatewaySessionID = msg.SessionID
	}

	if outcome, ok := normalizeOutcome(msg.Result); ok {
		r.Outcome = outcome
		return r
	}

	// Some gateway responses omit the result word and signal success with
	// a bare result indicator.
	if msg.ResultIndicator != "" {
		r.Outcome = domain.OutcomeSuccess
		return r
	}

	return nil
}

func fromValues(values url.Values) *Result {
	r := &Result{
		GatewaySessionID: values.Get("session.id"),
		OrderID:          values.Get("orderId"),
		TransactionID:    values.Get("transactionId"),
		BookingID:        values.Get("bookingId"),
	}

	if outcome, ok := normalizeOutcome(values.Get("result")); ok {
		r.Outcome = outcome
		return r
	}

	if values.Get("resultIndicator") != "" {
		r.Outcome = domain.OutcomeSuccess
		return r
	}

	return nil
}

func normalizeOutcome(s string) (domain.PaymentOutcome, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESS", "CAPTURED", "APPROVED":
		return domain.OutcomeSuccess, true
	case "CANCELLED", "CANCELED", "CANCEL":
		return domain.OutcomeCancelled, true
	case "FAILURE", "FAILED", "FAIL", "DECLINED", "ERROR":
		return domain.OutcomeFailure, true
	}

	return "", false
}

// scanOutcome is the last-resort heuristic over malformed payloads. Negative
// and failure tokens are checked before success so text like "unsuccessful"
// cannot read as a success.
func scanOutcome(raw string) (domain.PaymentOutcome, bool) {
	upper := strings.ToUpper(raw)

	for _, token := range []string{"UNSUCCESS", "FAIL", "DECLIN", "ERROR"} {
		if strings.Contains(upper, token) {
			return domain.OutcomeFailure, true
		}
	}

	if strings.Contains(upper, "CANCEL") {
		return domain.OutcomeCancelled, true
	}

	if strings.Contains(upper, "SUCCESS") {
		return domain.OutcomeSuccess, true
	}

	return "", false
}
