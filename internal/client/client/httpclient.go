package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/models"
	"github.com/dmitrijs2005/binsync/internal/netx"
)

const (
	fieldAction       = "action"
	fieldChecksum     = "checksum"
	fieldBinaryRecord = "binaryRecord"
	fieldContents     = "contents"

	checksumHeader = "X-Checksum"
)

type HTTPClient struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

// NewHTTPClient builds a client for the server at baseURL, for example
// "http://127.0.0.1:8080". A zero timeout leaves requests unbounded, which
// large uploads need.
func NewHTTPClient(baseURL, accessToken string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Sync(ctx context.Context, req SyncRequest) (*models.BinaryRecord, error) {
	if req.Record == nil {
		return nil, fmt.Errorf("%w: record is required", common.ErrValidation)
	}
	recJSON, err := json.Marshal(req.Record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	fields := []netx.Field{
		{Name: fieldAction, Value: req.Action},
		{Name: fieldChecksum, Value: req.Checksum},
		{Name: fieldBinaryRecord, Value: string(recJSON)},
	}
	var file *netx.File
	if req.Content != nil {
		file = &netx.File{Field: fieldContents, Filename: req.Record.Filename, Content: req.Content}
	}

	body, contentType := netx.MultipartBody(fields, file)
	defer body.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/sync", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeRecord(resp.Body)
}

func (c *HTTPClient) GetRecord(ctx context.Context, uid string) (*models.BinaryRecord, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/binaries/"+url.PathEscape(uid), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeRecord(resp.Body)
}

// Download streams the canonical content of uid. The second result is the
// checksum the server reports for it. The caller closes the reader.
func (c *HTTPClient) Download(ctx context.Context, uid string) (io.ReadCloser, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/binaries/"+url.PathEscape(uid)+"/content", nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.Header.Get(checksumHeader), nil
}

// do sends the request and turns transport failures and non-2xx answers into
// errors. On success the caller owns resp.Body.
func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	return nil, mapStatus(resp.StatusCode, readErrorMessage(resp.Body))
}

func mapStatus(code int, msg string) error {
	var sentinel error
	switch code {
	case http.StatusBadRequest:
		sentinel = common.ErrValidation
	case http.StatusUnprocessableEntity:
		sentinel = common.ErrIntegrity
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = ErrUnauthorized
	case http.StatusNotFound:
		sentinel = common.ErrNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		sentinel = ErrUnavailable
	default:
		return fmt.Errorf("server error %d: %s", code, msg)
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

func readErrorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return err.Error()
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(b))
}

func decodeRecord(r io.Reader) (*models.BinaryRecord, error) {
	var rec models.BinaryRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec.UID == "" {
		return nil, errors.New("decode record: empty uid")
	}
	return &rec, nil
}
