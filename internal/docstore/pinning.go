package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"landledger/pkg/platform/sentinel"
)

// PinningClient pins documents to a Pinata-style IPFS pinning endpoint and
// resolves references through a public gateway.
type PinningClient struct {
	endpoint   string
	gatewayURL string
	apiKey     string
	client     *http.Client
}

func NewPinningClient(endpoint, gatewayURL, apiKey string, timeout time.Duration) *PinningClient {
	return &PinningClient{
		endpoint:   endpoint,
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		apiKey:     apiKey,
		client:     &http.Client{Timeout: timeout},
	}
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
	PinSize  int64  `json:"PinSize"`
}

func (c *PinningClient) Put(ctx context.Context, name string, content io.Reader) (*Pinned, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		fw, err := form.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(fw, content); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("build pin request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call pinning provider: %w", sentinel.ErrUnavailable)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("pinning provider returned %d: %w", res.StatusCode, sentinel.ErrUnavailable)
	}

	var parsed pinResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode pin response: %w", err)
	}
	if parsed.IpfsHash == "" {
		return nil, fmt.Errorf("pinning provider returned no hash")
	}

	return &Pinned{Ref: parsed.IpfsHash, Size: parsed.PinSize, URL: c.ResolveURL(parsed.IpfsHash)}, nil
}

func (c *PinningClient) ResolveURL(ref string) string {
	return c.gatewayURL + "/" + ref
}
