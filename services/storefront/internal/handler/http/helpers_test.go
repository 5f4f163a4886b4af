package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
)

func doRequest(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %s", rec.Body.String())
	return errBody
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func welcome10() *domain.Coupon {
	now := time.Now().UTC()
	return &domain.Coupon{
		ID:                "cpn-welcome",
		Code:              "WELCOME10",
		DiscountType:      domain.DiscountTypePercentage,
		DiscountValue:     dec("10"),
		MinOrderAmount:    decimal.NewNullDecimal(dec("500")),
		MaxDiscountAmount: decimal.NewNullDecimal(dec("300")),
		ValidFrom:         now.AddDate(0, -1, 0),
		ValidUntil:        now.AddDate(1, 0, 0),
		IsActive:          true,
	}
}

const checkoutBody = `{
	"userId": "user-42",
	"customerInfo": {
		"firstName": "Nusrat",
		"lastName": "Jahan",
		"email": "nusrat@example.com",
		"phone": "017 1234 5678",
		"address": "House 12, Road 5, Dhanmondi",
		"division": "Dhaka",
		"district": "Dhaka City"
	},
	"items": [
		{"id": "kibble-1", "name": "Adult Cat Kibble", "unitPrice": 650, "quantity": 2, "maxStock": 10, "weightKg": 1.5},
		{"id": "litter-5", "name": "Clumping Litter", "unitPrice": 400, "quantity": 1, "maxStock": 4, "weight": "5kg"}
	],
	"subtotal": 1700,
	"discount": 170,
	"deliveryFee": 200,
	"total": 1730,
	"totalWeight": 8,
	"discountCode": "WELCOME10",
	"paymentMethod": "cod"
}`
