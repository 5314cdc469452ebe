package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// Reply is the raw HTTP outcome of a submission.
type Reply struct {
	StatusCode int
	Body       []byte
}

// Sender issues exactly one request per call.
type Sender interface {
	Send(ctx context.Context, p Payload) (Reply, error)
}

// Client posts payloads to {BaseURL}/upload.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient uses hc for transport (cookie jar or bearer round tripper); nil gets a plain client.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), httpClient: hc}
}

// Send encodes p as multipart/form-data with fields catalog, mapping (JSON) and repeated files.
// Any error returned is a *NetworkError; HTTP status handling is left to the Machine.
func (c *Client) Send(ctx context.Context, p Payload) (Reply, error) {
	body, contentType, err := EncodeMultipart(p)
	if err != nil {
		return Reply{}, &NetworkError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", body)
	if err != nil {
		return Reply{}, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, &NetworkError{Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return Reply{StatusCode: resp.StatusCode, Body: data}, nil
}

// EncodeMultipart renders the request body and its Content-Type.
func EncodeMultipart(p Payload) (*bytes.Buffer, string, error) {
	mapping, err := json.Marshal(p.Mapping)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode mapping: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("catalog", p.Catalog); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("mapping", string(mapping)); err != nil {
		return nil, "", err
	}
	for _, f := range p.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		ct := f.MediaType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Catalogs fetches the backend's catalog options from {BaseURL}/catalogs.
func (c *Client) Catalogs(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/catalogs", nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{StatusCode: resp.StatusCode, Message: errorMessage(data, http.StatusText(resp.StatusCode))}
	}
	var body struct {
		Catalogs []string `json:"catalogs"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("invalid catalogs response: %w", err)
	}
	return body.Catalogs, nil
}
