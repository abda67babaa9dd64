package resourceserver

import (
	"encoding/json"
	"net/http"
	"strings"
)

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("msg")
	info := introspectionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"echo":  msg,
		"user":  info.Sub,
		"scope": info.Scope,
	})
}

func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tickets": []map[string]string{
			{"id": "t-1", "subject": "printer jam", "status": "open"},
			{"id": "t-2", "subject": "vpn access", "status": "closed"},
		},
	})
}

// handlePay simulates charging an order. It honors the wallet
// payment-method token the gateway injects for payment calls, but never
// reports its value back -- the RS only confirms its presence.
func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/orders/"), "/pay")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request", "detail": "missing orderId"})
		return
	}

	var body struct {
		AmountCents int    `json:"amount_cents"`
		MerchantID  string `json:"merchant_id"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	hasWalletToken := r.Header.Get("X-Wallet-PM-Token") != ""

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id":         orderID,
		"status":           "paid",
		"amount_cents":     body.AmountCents,
		"merchant_id":      body.MerchantID,
		"wallet_pm_used":   hasWalletToken,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
