// Package imageclient is an HTTP client for the imagevault API.
package imageclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/models"
	"github.com/dmitrijs2005/imagevault/internal/netx"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

type InitiateResponse struct {
	ImageID   string                   `json:"imageId"`
	ObjectKey string                   `json:"objectKey"`
	Upload    *models.UploadCredential `json:"upload"`
}

type GetResponse struct {
	DownloadURL string              `json:"downloadUrl"`
	ExpiresAt   time.Time           `json:"expiresAt"`
	Metadata    *models.ImageRecord `json:"metadata"`
}

type ListResponse struct {
	Items             []*models.ImageRecord `json:"items"`
	ContinuationToken string                `json:"continuationToken"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

func (c *Client) Initiate(ctx context.Context, owner, filename, contentType string, maxSize int64, tags map[string]string) (*InitiateResponse, error) {
	body := map[string]any{"owner": owner, "filename": filename}
	if contentType != "" {
		body["contentType"] = contentType
	}
	if maxSize > 0 {
		body["maxSize"] = maxSize
	}
	if len(tags) > 0 {
		body["tags"] = tags
	}
	out := &InitiateResponse{}
	if err := c.do(ctx, http.MethodPost, "/images/initiate_upload", nil, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, imageID string) (*GetResponse, error) {
	out := &GetResponse{}
	if err := c.do(ctx, http.MethodGet, "/images/"+url.PathEscape(imageID), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) List(ctx context.Context, owner, status string, limit int, token string) (*ListResponse, error) {
	q := url.Values{}
	q.Set("owner", owner)
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if token != "" {
		q.Set("continuationToken", token)
	}
	out := &ListResponse{}
	if err := c.do(ctx, http.MethodGet, "/images", q, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, imageID string) error {
	return c.do(ctx, http.MethodDelete, "/images/"+url.PathEscape(imageID), nil, nil, nil)
}

// UploadFile initiates an upload for path and posts its bytes with the
// returned credential.
func (c *Client) UploadFile(ctx context.Context, owner, path string, tags map[string]string) (*InitiateResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(path)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))

	res, err := c.Initiate(ctx, owner, filename, contentType, 0, tags)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = res.Upload.Fields["Content-Type"]
	}

	if err := netx.PostPresigned(ctx, c.http, res.Upload, filename, contentType, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb)
		return &APIError{Status: resp.StatusCode, Code: eb.Error.Code, Message: eb.Error.Message}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
