package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"agritrace/internal/domain"
)

// Client talks to the ledger gateway, the HTTP facade in front of the
// permissioned ledger that mints compliance certificates and notarizes
// traceability events. It implements domain.Ledger and
// domain.AccountProvisioner.
type Client struct {
	baseURL string
	apiKey  string
	httpDo  func(*http.Request) (*http.Response, error)
}

const maxResponseBytes = 256 * 1024

func NewClient(baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("ledger gateway base url is required")
	}
	doer := http.DefaultClient.Do
	if httpClient != nil {
		doer = httpClient.Do
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpDo:  doer,
	}, nil
}

type recordEventRequest struct {
	WorkflowID string  `json:"workflow_id"`
	Kind       string  `json:"kind"`
	EventID    string  `json:"event_id"`
	QuantityKG float64 `json:"quantity_kg"`
	OccurredAt string  `json:"occurred_at"`
}

type recordEventResponse struct {
	TxID string `json:"tx_id"`
}

func (c *Client) RecordEvent(ctx context.Context, event domain.LedgerEvent) (string, error) {
	body := recordEventRequest{
		WorkflowID: event.WorkflowID,
		Kind:       string(event.Kind),
		EventID:    event.EventID,
		QuantityKG: event.QuantityKG,
		OccurredAt: event.OccurredAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	var out recordEventResponse
	if err := c.post(ctx, "/api/v1/events", body, &out); err != nil {
		return "", err
	}
	if out.TxID == "" {
		return "", errors.New("ledger gateway returned no tx id")
	}
	return out.TxID, nil
}

type mintRequest struct {
	OwnerAccount string                  `json:"owner_account"`
	Compliance   domain.ComplianceResult `json:"compliance"`
}

type mintResponse struct {
	TxID         string `json:"tx_id"`
	SerialNumber int64  `json:"serial_number"`
	AssetID      string `json:"asset_id"`
	Account      string `json:"account"`
}

func (c *Client) MintCertificate(ctx context.Context, ownerAccount string, compliance domain.ComplianceResult) (domain.MintResult, error) {
	body := mintRequest{OwnerAccount: ownerAccount, Compliance: compliance}
	var out mintResponse
	if err := c.post(ctx, "/api/v1/certificates", body, &out); err != nil {
		return domain.MintResult{}, err
	}
	if out.TxID == "" || out.AssetID == "" {
		return domain.MintResult{}, errors.New("ledger gateway returned an incomplete mint result")
	}
	account := out.Account
	if account == "" {
		account = ownerAccount
	}
	return domain.MintResult{
		TxID:         out.TxID,
		SerialNumber: out.SerialNumber,
		AssetID:      out.AssetID,
		Account:      account,
	}, nil
}

type transferRequest struct {
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	AssetID     string `json:"asset_id"`
}

func (c *Client) TransferAsset(ctx context.Context, fromAccount, toAccount, assetID string) error {
	body := transferRequest{FromAccount: fromAccount, ToAccount: toAccount, AssetID: assetID}
	return c.post(ctx, "/api/v1/transfers", body, nil)
}

type ensureAccountRequest struct {
	PartyID string `json:"party_id"`
}

type ensureAccountResponse struct {
	Account string `json:"account"`
}

func (c *Client) EnsureAccount(ctx context.Context, partyID string) (string, error) {
	if partyID == "" {
		return "", errors.New("party id is required")
	}
	var out ensureAccountResponse
	if err := c.post(ctx, "/api/v1/accounts", ensureAccountRequest{PartyID: partyID}, &out); err != nil {
		return "", err
	}
	if out.Account == "" {
		return "", errors.New("ledger gateway returned no account")
	}
	return out.Account, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpDo(req)
	if err != nil {
		return fmt.Errorf("ledger gateway %s: %w", path, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("ledger gateway %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ledger gateway %s: status %d: %s", path, resp.StatusCode, gatewayError(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("ledger gateway %s: decoding response: %w", path, err)
	}
	return nil
}

func gatewayError(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}
