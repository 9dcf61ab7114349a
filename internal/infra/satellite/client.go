package satellite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agritrace/internal/domain"
	"agritrace/internal/usecase"
)

// Client queries the vegetation-index service that backs deforestation
// screening. The service aggregates satellite scenes over a geometry and
// date range and returns a mean index per window.
type Client struct {
	baseURL string
	httpDo  func(*http.Request) (*http.Response, error)
}

const maxResponseBytes = 64 * 1024

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("satellite base url is required")
	}
	doer := http.DefaultClient.Do
	if httpClient != nil {
		doer = httpClient.Do
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpDo:  doer,
	}, nil
}

type indexWindow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type indexRequest struct {
	Geometry json.RawMessage `json:"geometry"`
	Before   indexWindow     `json:"before"`
	After    indexWindow     `json:"after"`
}

type indexResponse struct {
	MeanIndexBefore float64 `json:"mean_index_before"`
	MeanIndexAfter  float64 `json:"mean_index_after"`
}

func (c *Client) QueryVegetationIndex(ctx context.Context, geometry string, before, after usecase.DateRange) (domain.VegetationIndexStats, error) {
	body := indexRequest{
		Geometry: json.RawMessage(geometry),
		Before:   window(before),
		After:    window(after),
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return domain.VegetationIndexStats{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/vegetation-index", bytes.NewReader(encoded))
	if err != nil {
		return domain.VegetationIndexStats{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpDo(req)
	if err != nil {
		return domain.VegetationIndexStats{}, fmt.Errorf("vegetation index query: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.VegetationIndexStats{}, fmt.Errorf("vegetation index query: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.VegetationIndexStats{}, fmt.Errorf("vegetation index query: status %d", resp.StatusCode)
	}
	var out indexResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return domain.VegetationIndexStats{}, fmt.Errorf("vegetation index query: decoding response: %w", err)
	}
	return domain.VegetationIndexStats{
		MeanIndexBefore: out.MeanIndexBefore,
		MeanIndexAfter:  out.MeanIndexAfter,
	}, nil
}

func window(r usecase.DateRange) indexWindow {
	return indexWindow{
		From: r.From.UTC().Format(time.DateOnly),
		To:   r.To.UTC().Format(time.DateOnly),
	}
}
