package banktransfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bondfyr/party-service/internal/entity"
)

// Client is an HTTP client for the bank transfer provider
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type transferRequest struct {
	RecipientID string  `json:"recipient_id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Method      string  `json:"method"`
}

type transferResponse struct {
	TransferID string `json:"transfer_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// Transfer sends money to a host and returns the provider transfer id
func (c *Client) Transfer(ctx context.Context, hostID string, amount float64, method entity.PayoutMethod) (string, error) {
	payload := transferRequest{
		RecipientID: hostID,
		Amount:      amount,
		Currency:    "USD",
		Method:      string(method),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transfer request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build transfer request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transfer response: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: provider returned %s: %s",
			entity.ErrTransferFailed, resp.Status, string(respBody))
	}

	var result transferResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse transfer response: %v", err)
	}

	if result.Status == "failed" {
		return "", fmt.Errorf("%w: %s", entity.ErrTransferFailed, result.Message)
	}

	return result.TransferID, nil
}
