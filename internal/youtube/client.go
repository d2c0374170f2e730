package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/randysalars/dreamweaving-publisher/internal/util"
)

const (
	// DataBaseURL is the YouTube Data API base URL
	DataBaseURL = "https://www.googleapis.com/youtube/v3"

	// UploadBaseURL is the resumable upload endpoint base
	UploadBaseURL = "https://www.googleapis.com/upload/youtube/v3"

	// AnalyticsBaseURL is the YouTube Analytics API base URL
	AnalyticsBaseURL = "https://youtubeanalytics.googleapis.com/v2"
)

// Config holds platform client configuration
type Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string

	// UploadTimeout bounds a single upload attempt (default 10 minutes)
	UploadTimeout time.Duration

	// RetryConfig controls transient-error retries (default: linear backoff,
	// capped attempts)
	RetryConfig *util.RetryConfig
}

// Client is the authenticated YouTube client. Constructed once at process
// start and passed explicitly to every component that publishes or reads
// analytics.
type Client struct {
	httpClient    *http.Client
	dataURL       string
	uploadURL     string
	analyticsURL  string
	uploadTimeout time.Duration
	retryConfig   *util.RetryConfig
}

// NewClient creates an authenticated YouTube client
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	ts, err := newTokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newClientWithTransport(cfg, oauth2.NewClient(ctx, ts)), nil
}

// newClientWithTransport wires a client around an explicit HTTP client.
// Tests use this to point the client at an httptest server.
func newClientWithTransport(cfg *Config, httpClient *http.Client) *Client {
	timeout := cfg.UploadTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	retryConfig := cfg.RetryConfig
	if retryConfig == nil {
		retryConfig = util.UploadRetryConfig()
	}

	return &Client{
		httpClient:    httpClient,
		dataURL:       DataBaseURL,
		uploadURL:     UploadBaseURL,
		analyticsURL:  AnalyticsBaseURL,
		uploadTimeout: timeout,
		retryConfig:   retryConfig,
	}
}

// UploadRequest describes one video upload
type UploadRequest struct {
	FilePath      string
	Title         string
	Description   string
	Tags          []string
	PrivacyStatus string // "public", "unlisted", "private"
	IsShort       bool
}

type videoSnippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"categoryId"`
}

type videoStatus struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

type videoResource struct {
	ID      string       `json:"id"`
	Snippet videoSnippet `json:"snippet"`
	Status  videoStatus  `json:"status"`
}

// Upload uploads a video file via the resumable upload protocol and returns
// the new video ID. Transient (5xx-class) failures are retried with linear
// backoff up to the configured attempt cap; each retry starts a fresh
// resumable session. Non-transient errors propagate immediately.
func (c *Client) Upload(ctx context.Context, req *UploadRequest) (string, error) {
	if req.FilePath == "" {
		return "", fmt.Errorf("%w: no file to upload", util.ErrMissingArtifact)
	}
	if _, err := os.Stat(req.FilePath); err != nil {
		return "", fmt.Errorf("%w: %s", util.ErrMissingArtifact, req.FilePath)
	}

	title := req.Title
	if req.IsShort && !strings.Contains(title, "#Shorts") {
		// Shorts are detected by format, but the tag helps discovery
		title = strings.TrimSpace(title + " #Shorts")
	}

	privacy := req.PrivacyStatus
	if privacy == "" {
		privacy = "public"
	}

	meta := videoResource{
		Snippet: videoSnippet{
			Title:       title,
			Description: req.Description,
			Tags:        req.Tags,
			CategoryID:  "27", // Education
		},
		Status: videoStatus{PrivacyStatus: privacy},
	}

	return util.RetryWithBackoff(c.retryConfig, func() (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
		defer cancel()
		return c.uploadOnce(attemptCtx, req.FilePath, &meta)
	}, fmt.Sprintf("upload(%s)", req.FilePath))
}

// uploadOnce runs one resumable upload session: initiate, then send bytes
func (c *Client) uploadOnce(ctx context.Context, filePath string, meta *videoResource) (string, error) {
	body, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode video metadata: %w", err)
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", util.ErrMissingArtifact, filePath)
	}

	initURL := fmt.Sprintf("%s/videos?uploadType=resumable&part=snippet,status", c.uploadURL)
	initReq, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	initReq.Header.Set("Content-Type", "application/json; charset=UTF-8")
	initReq.Header.Set("X-Upload-Content-Type", "video/*")
	initReq.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", stat.Size()))

	resp, err := c.httpClient.Do(initReq)
	if err != nil {
		return "", util.Transient(fmt.Errorf("upload initiation failed: %w", err))
	}
	defer resp.Body.Close()

	if err := triageStatus(resp); err != nil {
		return "", err
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return "", fmt.Errorf("upload initiation returned no session URL")
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer f.Close()

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, f)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	putReq.ContentLength = stat.Size()
	putReq.Header.Set("Content-Type", "video/*")

	putResp, err := c.httpClient.Do(putReq)
	if err != nil {
		return "", util.Transient(fmt.Errorf("upload transfer failed: %w", err))
	}
	defer putResp.Body.Close()

	if err := triageStatus(putResp); err != nil {
		return "", err
	}

	var video videoResource
	if err := json.NewDecoder(putResp.Body).Decode(&video); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if video.ID == "" {
		return "", fmt.Errorf("upload response missing video ID")
	}

	util.DebugLog("YouTube: uploaded %s as video %s", filePath, video.ID)
	return video.ID, nil
}

// SetThumbnail sets a custom thumbnail on an uploaded video
func (c *Client) SetThumbnail(ctx context.Context, videoID, filePath string) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("%w: %s", util.ErrMissingArtifact, filePath)
	}

	url := fmt.Sprintf("%s/thumbnails/set?videoId=%s", c.uploadURL, videoID)

	return util.Retry(c.retryConfig, func() error {
		f, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("%w: %s", util.ErrMissingArtifact, filePath)
		}
		defer f.Close()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, f)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "image/jpeg")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return util.Transient(fmt.Errorf("thumbnail set failed: %w", err))
		}
		defer resp.Body.Close()
		return triageStatus(resp)
	}, fmt.Sprintf("set-thumbnail(%s)", videoID))
}

// VideoURL returns the canonical watch URL for a video ID
func VideoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ShortURL returns the canonical shorts URL for a video ID
func ShortURL(videoID string) string {
	return "https://www.youtube.com/shorts/" + videoID
}

// triageStatus classifies an HTTP response: 2xx is success, 5xx and 429 are
// transient (retryable), everything else propagates immediately.
func triageStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err := fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return util.Transient(err)
	}
	return err
}
