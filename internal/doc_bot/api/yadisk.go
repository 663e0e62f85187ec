// Package api provides an implementation for interacting with the Yandex.Disk REST API.
// It supports existence checks, uploads, downloads, folder creation, publishing
// and public link resolution for the document bot.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Constants for API paths
const (
	ResourcesPath = "/resources"
	UploadPath    = "/resources/upload"
	DownloadPath  = "/resources/download"
	PublishPath   = "/resources/publish"
)

// Sentinel errors for conditions the callers tolerate explicitly.
var (
	ErrNotFound      = errors.New("disk: path not found")
	ErrPathExists    = errors.New("disk: path already exists")
	ErrAlreadyPublic = errors.New("disk: resource already published")
)

// resourceMeta represents the resource metadata returned by the API.
type resourceMeta struct {
	Name      string `json:"name"`       // Resource name
	Path      string `json:"path"`       // Full disk path
	Type      string `json:"type"`       // "file" or "dir"
	PublicURL string `json:"public_url"` // Shareable link, empty until published metadata propagates
	Embedded  struct {
		Items []resourceMeta `json:"items"` // Directory listing
	} `json:"_embedded"`
}

// hrefResponse represents the operation link returned by upload/download requests.
type hrefResponse struct {
	Href      string `json:"href"`      // URL to transfer the file body to/from
	Method    string `json:"method"`    // HTTP method expected by Href
	Templated bool   `json:"templated"` // Whether Href contains template parameters
}

// apiError represents an error payload returned by the API.
type apiError struct {
	Message     string `json:"message"`     // Human-readable message
	Description string `json:"description"` // Detailed description
	Code        string `json:"error"`       // Machine-readable error code
}

// Client is a client for the Yandex.Disk REST API.
type Client struct {
	endpoint string // Base API URL
	token    string // OAuth token
	client   *http.Client
}

// NewClient creates a new Client instance with the specified endpoint and OAuth token.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// newRequest builds an authorized API request for the given path and disk resource.
func (c *Client) newRequest(ctx context.Context, method, apiPath string, query url.Values) (*http.Request, error) {
	reqURL := c.endpoint + apiPath
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	return req, nil
}

// decodeError reads an API error payload and returns it as a Go error.
func decodeError(res *http.Response) error {
	data, _ := io.ReadAll(res.Body)
	var apiErr apiError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Code != "" {
		return fmt.Errorf("disk API %s: %s", apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("disk API unexpected status %d", res.StatusCode)
}

// getMeta fetches resource metadata for the given disk path.
func (c *Client) getMeta(ctx context.Context, diskPath string, fields string) (*resourceMeta, error) {
	query := url.Values{"path": {diskPath}}
	if fields != "" {
		query.Set("fields", fields)
	}
	req, err := c.newRequest(ctx, http.MethodGet, ResourcesPath, query)
	if err != nil {
		return nil, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer closeBody(res)

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, decodeError(res)
	}

	var meta resourceMeta
	if err = json.NewDecoder(res.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource metadata: %w", err)
	}
	return &meta, nil
}

// Exists reports whether a resource exists at the given disk path.
func (c *Client) Exists(ctx context.Context, diskPath string) (bool, error) {
	_, err := c.getMeta(ctx, diskPath, "path")
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		logrus.WithError(err).Errorf("Existence check failed for %s", diskPath)
		return false, err
	}
	return true, nil
}

// ListFiles returns the file names (directories excluded) inside the given disk folder.
func (c *Client) ListFiles(ctx context.Context, folder string) ([]string, error) {
	query := url.Values{"path": {folder}, "limit": {"1000"}}
	req, err := c.newRequest(ctx, http.MethodGet, ResourcesPath, query)
	if err != nil {
		return nil, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to list folder %s", folder)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		return nil, decodeError(res)
	}

	var meta resourceMeta
	if err = json.NewDecoder(res.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal folder listing: %w", err)
	}

	var names []string
	for _, item := range meta.Embedded.Items {
		if item.Type == "file" {
			names = append(names, item.Name)
		}
	}
	return names, nil
}

// Mkdir creates a folder at the given disk path.
// Returns ErrPathExists if the folder is already there.
func (c *Client) Mkdir(ctx context.Context, diskPath string) error {
	req, err := c.newRequest(ctx, http.MethodPut, ResourcesPath, url.Values{"path": {diskPath}})
	if err != nil {
		return err
	}

	res, err := c.client.Do(req)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to create folder %s", diskPath)
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer closeBody(res)

	switch res.StatusCode {
	case http.StatusCreated:
		return nil
	case http.StatusConflict:
		return ErrPathExists
	default:
		return decodeError(res)
	}
}

// Upload transfers a local file to the given disk path using the two-step
// upload flow: request an upload href, then PUT the file body to it.
func (c *Client) Upload(ctx context.Context, localPath, diskPath string, overwrite bool) error {
	query := url.Values{
		"path":      {diskPath},
		"overwrite": {fmt.Sprintf("%t", overwrite)},
	}
	req, err := c.newRequest(ctx, http.MethodGet, UploadPath, query)
	if err != nil {
		return err
	}

	res, err := c.client.Do(req)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to request upload href for %s", diskPath)
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer closeBody(res)

	if res.StatusCode != http.StatusOK {
		return decodeError(res)
	}

	var href hrefResponse
	if err = json.NewDecoder(res.Body).Decode(&href); err != nil {
		return fmt.Errorf("failed to unmarshal upload href: %w", err)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			logrus.WithError(cerr).Errorf("Failed to close file %s", localPath)
		}
	}()

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, href.Href, file)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}

	putRes, err := c.client.Do(putReq)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to upload %s to %s", localPath, diskPath)
		return fmt.Errorf("failed to execute upload: %w", err)
	}
	defer closeBody(putRes)

	if putRes.StatusCode != http.StatusCreated && putRes.StatusCode != http.StatusOK && putRes.StatusCode != http.StatusAccepted {
		return fmt.Errorf("upload of %s failed with status %d", diskPath, putRes.StatusCode)
	}
	logrus.Infof("Uploaded %s to %s", localPath, diskPath)
	return nil
}

// Download transfers a disk file to a local path using the two-step download
// flow: request a download href, then GET the file body from it.
func (c *Client) Download(ctx context.Context, diskPath, localPath string) error {
	req, err := c.newRequest(ctx, http.MethodGet, DownloadPath, url.Values{"path": {diskPath}})
	if err != nil {
		return err
	}

	res, err := c.client.Do(req)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to request download href for %s", diskPath)
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		return decodeError(res)
	}

	var href hrefResponse
	if err = json.NewDecoder(res.Body).Decode(&href); err != nil {
		return fmt.Errorf("failed to unmarshal download href: %w", err)
	}

	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, href.Href, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	getRes, err := c.client.Do(getReq)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to download %s", diskPath)
		return fmt.Errorf("failed to execute download: %w", err)
	}
	defer closeBody(getRes)

	if getRes.StatusCode != http.StatusOK {
		return fmt.Errorf("download of %s failed with status %d", diskPath, getRes.StatusCode)
	}

	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	if _, err = io.Copy(out, getRes.Body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write local file %s: %w", localPath, err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("failed to close local file %s: %w", localPath, err)
	}
	logrus.Infof("Downloaded %s to %s", diskPath, localPath)
	return nil
}

// Publish makes the resource at the given disk path link-shareable.
// Returns ErrAlreadyPublic if it is published already.
func (c *Client) Publish(ctx context.Context, diskPath string) error {
	req, err := c.newRequest(ctx, http.MethodPut, PublishPath, url.Values{"path": {diskPath}})
	if err != nil {
		return err
	}

	res, err := c.client.Do(req)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to publish %s", diskPath)
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer closeBody(res)

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return ErrAlreadyPublic
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return decodeError(res)
	}
}

// PublicURL returns the shareable link of the resource, or an empty string if
// the link has not propagated to the resource metadata yet.
func (c *Client) PublicURL(ctx context.Context, diskPath string) (string, error) {
	meta, err := c.getMeta(ctx, diskPath, "public_url")
	if err != nil {
		return "", err
	}
	return meta.PublicURL, nil
}

func closeBody(res *http.Response) {
	if err := res.Body.Close(); err != nil {
		logrus.WithError(err).Errorf("Failed to close response body: %v", err)
	}
}
