package client

import (
	"context"
	"fmt"
	"time"

	"voucherdesk/pkg/model"
)

const (
	CheckPath    = "/api/check"
	GeneratePath = "/api/generate"
)

// VoucherClient talks to the voucher backend. Response bodies are read
// whatever the HTTP status: the backend answers a refused generation with a
// 409 carrying a regular {"success": false} document.
type VoucherClient struct {
	httpClient *HttpClient
}

func NewVoucherClient(baseUrl string, timeout time.Duration) *VoucherClient {
	return &VoucherClient{
		httpClient: NewHttpClient(baseUrl, timeout),
	}
}

func (c *VoucherClient) BaseURL() string {
	return c.httpClient.BaseURL
}

func (c *VoucherClient) Check(ctx context.Context, req model.CheckRequest) (*model.CheckResponse, error) {
	resp, err := c.httpClient.POST(ctx, CheckPath, req)
	if err != nil {
		return nil, err
	}
	if err := validateBody(checkSchema, resp.Body); err != nil {
		return nil, fmt.Errorf("check %s: %w", resp.Status, err)
	}

	var out model.CheckResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("could not decode check response:\n%s\n%w", resp.ToString(), ErrMalformedResponse)
	}
	return &out, nil
}

func (c *VoucherClient) Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResponse, error) {
	resp, err := c.httpClient.POST(ctx, GeneratePath, req)
	if err != nil {
		return nil, err
	}
	if err := validateBody(generateSchema, resp.Body); err != nil {
		return nil, fmt.Errorf("generate %s: %w", resp.Status, err)
	}

	var out model.GenerateResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("could not decode generate response:\n%s\n%w", resp.ToString(), ErrMalformedResponse)
	}
	return &out, nil
}

func (c *VoucherClient) Ping(ctx context.Context) error {
	return c.httpClient.Ping(ctx)
}
