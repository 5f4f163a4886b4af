package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/httpclient"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
)

// StockChecker confirms that every item can be supplied in the requested
// quantity. A shortfall is reported as an INSUFFICIENT_STOCK error.
type StockChecker interface {
	CheckStock(ctx context.Context, items []domain.CartItem) error
}

// CatalogUnavailableFallback replaces the raw breaker error while the
// catalog circuit is open.
func CatalogUnavailableFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable(stockUnconfirmed)
}

const stockUnconfirmed = "stock could not be confirmed right now, please retry shortly"

type stockRequestItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type stockResponse struct {
	Items []struct {
		ProductID string `json:"productId"`
		Available int    `json:"available"`
	} `json:"items"`
}

// CatalogClient asks the catalog service for live stock levels.
type CatalogClient struct {
	http    httpclient.Doer
	baseURL string
	logger  *slog.Logger
}

// NewCatalogClient creates a catalog stock client. With an empty baseURL
// every check passes.
func NewCatalogClient(doer httpclient.Doer, baseURL string, logger *slog.Logger) *CatalogClient {
	return &CatalogClient{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// CheckStock posts the requested quantities to the catalog.
func (c *CatalogClient) CheckStock(ctx context.Context, items []domain.CartItem) error {
	if c.baseURL == "" || len(items) == 0 {
		return nil
	}

	requested := make(map[string]int, len(items))
	body := struct {
		Items []stockRequestItem `json:"items"`
	}{Items: make([]stockRequestItem, 0, len(items))}
	for _, item := range items {
		if _, seen := requested[item.ID]; !seen {
			body.Items = append(body.Items, stockRequestItem{ProductID: item.ID})
		}
		requested[item.ID] += item.Quantity
	}
	for i := range body.Items {
		body.Items[i].Quantity = requested[body.Items[i].ProductID]
	}

	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, c.baseURL+"/api/products/stock", body)
	if err != nil {
		return fmt.Errorf("create stock request: %w", err)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Message == stockUnconfirmed {
			return err
		}
		c.logger.ErrorContext(ctx, "catalog stock check failed", slog.String("error", err.Error()))
		return apperrors.ServiceUnavailable(stockUnconfirmed)
	}
	if resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, "catalog")
	}
	defer resp.Body.Close()

	var stock stockResponse
	if err := json.NewDecoder(resp.Body).Decode(&stock); err != nil {
		return fmt.Errorf("decode stock response: %w", err)
	}

	available := make(map[string]int, len(stock.Items))
	for _, s := range stock.Items {
		available[s.ProductID] = s.Available
	}

	shortages := make(map[string]string)
	for id, qty := range requested {
		have, known := available[id]
		switch {
		case !known:
			shortages[id] = "product is no longer available"
		case have < qty:
			shortages[id] = fmt.Sprintf("only %d left in stock, %d requested", have, qty)
		}
	}
	if len(shortages) > 0 {
		c.logger.InfoContext(ctx, "stock check rejected order", slog.Int("short_items", len(shortages)))
		return apperrors.StockInsufficient(shortages)
	}
	return nil
}
