// Package gateway реализует HTTP-клиент внешнего платёжного шлюза.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/magabrotheeeer/billing-engine/internal/dispatch"
	"github.com/magabrotheeeer/billing-engine/internal/models"
)

type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент платёжного шлюза.
func NewClient(apiURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Pay отправляет запрос на перевод и возвращает его исход.
// Реализует контракт dispatch.Gateway.
func (c *Client) Pay(ctx context.Context, payment dispatch.PaymentRequest) (dispatch.PaymentResult, error) {
	req, err := c.newRequest(ctx, "POST", "/payments", PayRequest{
		Payer:            payment.Payer,
		Payee:            payment.Payee,
		Amount:           payment.Amount,
		Currency:         string(payment.Rail),
		PriceHint:        payment.PriceHint,
		ChargeFullAmount: payment.ChargeFullAmount,
		AllowFallback:    payment.AllowFallback,
	})
	if err != nil {
		return dispatch.PaymentResult{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dispatch.PaymentResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return dispatch.PaymentResult{}, errors.New("unexpected status: " + resp.Status)
	}

	var payResp PayResponse
	if err := json.NewDecoder(resp.Body).Decode(&payResp); err != nil {
		return dispatch.PaymentResult{}, err
	}
	return dispatch.PaymentResult{
		Success:      payResp.Success,
		CurrencyUsed: models.Currency(payResp.CurrencyUsed),
	}, nil
}
