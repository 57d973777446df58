package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/photodrop-api/internal/config"
)

// StorageService is the cloud file-storage gateway. All operations are
// idempotent where the remote API allows it: creating an existing folder and
// deleting a missing one are both reported as success.
type StorageService interface {
	EnsureFolder(ctx context.Context, path string) error
	SharedLink(ctx context.Context, path string) (string, error)
	Upload(ctx context.Context, path string, data []byte) error
	DeleteFolder(ctx context.Context, path string) error
}

// NoopStorageService is used when storage credentials are not configured.
type NoopStorageService struct{}

func (s *NoopStorageService) EnsureFolder(ctx context.Context, path string) error {
	log.Printf("[StorageService] noop ensure folder path=%s", path)
	return nil
}

func (s *NoopStorageService) SharedLink(ctx context.Context, path string) (string, error) {
	log.Printf("[StorageService] noop shared link path=%s", path)
	return "", nil
}

func (s *NoopStorageService) Upload(ctx context.Context, path string, data []byte) error {
	log.Printf("[StorageService] noop upload path=%s size=%d", path, len(data))
	return nil
}

func (s *NoopStorageService) DeleteFolder(ctx context.Context, path string) error {
	log.Printf("[StorageService] noop delete folder path=%s", path)
	return nil
}

// DropboxStorageService talks to the Dropbox HTTP API. The short-lived access
// token is cached process-wide and refreshed on demand via the OAuth refresh
// token grant.
type DropboxStorageService struct {
	cfg        config.StorageConfig
	httpClient *http.Client

	// API endpoints, overridable in tests
	apiBase     string
	contentBase string
	authBase    string

	// Access-token cache. The mutex is held across a refresh, so concurrent
	// callers wait for the single in-flight refresh instead of each issuing
	// their own; the double-check after acquiring the lock makes a redundant
	// refresh a no-op.
	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewDropboxStorageService(cfg config.StorageConfig) (*DropboxStorageService, error) {
	if !cfg.StorageConfigured() {
		return nil, fmt.Errorf("storage app key, app secret and refresh token are required")
	}
	return &DropboxStorageService{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		apiBase:     "https://api.dropboxapi.com",
		contentBase: "https://content.dropboxapi.com",
		authBase:    "https://api.dropbox.com",
	}, nil
}

// apiError is the error envelope of the Dropbox RPC endpoints.
type apiError struct {
	ErrorSummary string `json:"error_summary"`
}

func (s *DropboxStorageService) getAccessToken(ctx context.Context) (string, error) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	now := time.Now()
	if s.accessToken != "" && now.Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	values := url.Values{}
	values.Set("grant_type", "refresh_token")
	values.Set("refresh_token", s.cfg.RefreshToken)
	values.Set("client_id", s.cfg.AppKey)
	values.Set("client_secret", s.cfg.AppSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authBase+"/oauth2/token", strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("storage token refresh status=%d body=%s", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to parse token refresh response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("storage token refresh returned empty access token")
	}

	expiresIn := time.Duration(payload.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = 4 * time.Hour
	}

	s.accessToken = payload.AccessToken
	// Refresh a minute early so in-flight requests never carry a token that
	// expires mid-call.
	s.tokenExpiry = now.Add(expiresIn - time.Minute)

	return s.accessToken, nil
}

// rpc posts a JSON body to an RPC endpoint and decodes the response. A non-2xx
// status is returned as an error carrying the error_summary, so callers can
// recognize benign conflicts.
func (s *DropboxStorageService) rpc(ctx context.Context, endpoint string, in, out interface{}) error {
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request for %s: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage request %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		summary := apiErr.ErrorSummary
		if summary == "" {
			summary = string(raw)
		}
		return fmt.Errorf("storage %s status=%d: %s", endpoint, resp.StatusCode, summary)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
		}
	}
	return nil
}

// apiPath roots a path at "/": the files and sharing endpoints reject
// non-rooted paths as malformed_path.
func apiPath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

// EnsureFolder creates a folder; an existing folder is success.
func (s *DropboxStorageService) EnsureFolder(ctx context.Context, path string) error {
	in := map[string]interface{}{"path": apiPath(path), "autorename": false}
	err := s.rpc(ctx, "/2/files/create_folder_v2", in, nil)
	if err != nil && strings.Contains(err.Error(), "conflict") {
		return nil
	}
	return err
}

// SharedLink creates a public shared link for the path, or fetches the
// existing one when the remote reports the link already exists.
func (s *DropboxStorageService) SharedLink(ctx context.Context, path string) (string, error) {
	var created struct {
		URL string `json:"url"`
	}
	in := map[string]interface{}{"path": apiPath(path)}
	err := s.rpc(ctx, "/2/sharing/create_shared_link_with_settings", in, &created)
	if err == nil {
		return created.URL, nil
	}
	if !strings.Contains(err.Error(), "shared_link_already_exists") {
		return "", err
	}

	var listed struct {
		Links []struct {
			URL string `json:"url"`
		} `json:"links"`
	}
	listIn := map[string]interface{}{"path": apiPath(path), "direct_only": true}
	if err := s.rpc(ctx, "/2/sharing/list_shared_links", listIn, &listed); err != nil {
		return "", err
	}
	if len(listed.Links) == 0 {
		return "", fmt.Errorf("storage reported an existing shared link for %s but returned none", path)
	}
	return listed.Links[0].URL, nil
}

// Upload writes data to path, overwriting any previous revision.
func (s *DropboxStorageService) Upload(ctx context.Context, path string, data []byte) error {
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return err
	}

	arg, err := json.Marshal(map[string]interface{}{
		"path": apiPath(path),
		"mode": "overwrite",
		"mute": true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal upload arg: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.contentBase+"/2/files/upload", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("storage upload status=%d: %s", resp.StatusCode, string(raw))
	}
	return nil
}

// DeleteFolder removes a folder; a missing folder is success.
func (s *DropboxStorageService) DeleteFolder(ctx context.Context, path string) error {
	in := map[string]interface{}{"path": apiPath(path)}
	err := s.rpc(ctx, "/2/files/delete_v2", in, nil)
	if err != nil && strings.Contains(err.Error(), "not_found") {
		return nil
	}
	return err
}

// DirectDownloadURL rewrites a shared link into a direct-download link:
// the preview host becomes the content host and the dl flag is dropped.
// Links that do not look like shared links are returned unchanged.
func DirectDownloadURL(link string) string {
	if link == "" {
		return link
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	if u.Host != "www.dropbox.com" && u.Host != "dropbox.com" {
		return link
	}
	u.Host = "dl.dropboxusercontent.com"
	q := u.Query()
	q.Del("dl")
	u.RawQuery = q.Encode()
	return u.String()
}
