package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// BalanceBatchSize is the most addresses one batch request may carry
const BalanceBatchSize = 100

// BalanceClient reads subscription balances, expressed in days, from the
// payments service
type BalanceClient struct {
	http *resty.Client
}

func NewBalanceClient(baseURL string) *BalanceClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(5).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
	return &BalanceClient{http: client}
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type balancesRequest struct {
	Addresses []string `json:"addresses"`
	Currency  string   `json:"currency"`
}

type balancesResponse struct {
	Balances map[string]decimal.Decimal `json:"balances"`
}

func (c *BalanceClient) Balance(ctx context.Context, address, currency string) (decimal.Decimal, error) {
	var out balanceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("address", address).
		SetQueryParam("currency", currency).
		SetResult(&out).
		Get("/balance/{address}")
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch balance: %w", err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("balance service returned %d", resp.StatusCode())
	}
	return out.Balance, nil
}

// Balances resolves many addresses, BalanceBatchSize per request, concurrently.
// Addresses missing from the answer are absent from the map.
func (c *BalanceClient) Balances(ctx context.Context, addresses []string, currency string) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(addresses))
	if len(addresses) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(addresses); start += BalanceBatchSize {
		end := min(start+BalanceBatchSize, len(addresses))
		batch := addresses[start:end]
		g.Go(func() error {
			var out balancesResponse
			resp, err := c.http.R().
				SetContext(ctx).
				SetBody(balancesRequest{Addresses: batch, Currency: currency}).
				SetResult(&out).
				Post("/balances")
			if err != nil {
				return fmt.Errorf("failed to fetch balances: %w", err)
			}
			if resp.IsError() {
				return fmt.Errorf("balance service returned %d", resp.StatusCode())
			}
			mu.Lock()
			defer mu.Unlock()
			for address, balance := range out.Balances {
				result[address] = balance
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
