package pcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPClient talks to the real pCloud API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewHTTPClient(baseURL string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// envelope is the common response wrapper. A non-zero result means failure
// and Error carries the human-readable reason.
type envelope struct {
	Result int    `json:"result"`
	Error  string `json:"error,omitempty"`
}

type userInfoResponse struct {
	envelope
	UserInfo
	Auth string `json:"auth,omitempty"`
}

type folderResponse struct {
	envelope
	Metadata Folder `json:"metadata"`
}

type uploadResponse struct {
	envelope
	Metadata []FileMeta `json:"metadata"`
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	params := url.Values{}
	params.Set("getauth", "1")
	params.Set("logout", "1")
	params.Set("username", username)
	params.Set("password", password)

	var resp userInfoResponse
	if err := c.get(ctx, "userinfo", params, &resp); err != nil {
		return "", err
	}
	if resp.Auth == "" {
		return "", &Error{Result: ResultLoginFailed, Message: "no auth token in response"}
	}
	return resp.Auth, nil
}

func (c *HTTPClient) UserInfo(ctx context.Context, token string) (*UserInfo, error) {
	params := url.Values{}
	params.Set("access_token", token)

	var resp userInfoResponse
	if err := c.get(ctx, "userinfo", params, &resp); err != nil {
		return nil, err
	}
	return &resp.UserInfo, nil
}

func (c *HTTPClient) ListFolder(ctx context.Context, token string, folderID int64, recursive bool) (*Folder, error) {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("folderid", strconv.FormatInt(folderID, 10))
	params.Set("nofiles", "1")
	if recursive {
		params.Set("recursive", "1")
	}

	var resp folderResponse
	if err := c.get(ctx, "listfolder", params, &resp); err != nil {
		return nil, err
	}
	return &resp.Metadata, nil
}

func (c *HTTPClient) CreateFolderIfNotExists(ctx context.Context, token string, parentID int64, name string) (*Folder, error) {
	return c.createFolder(ctx, "createfolderifnotexists", token, parentID, name)
}

func (c *HTTPClient) CreateFolder(ctx context.Context, token string, parentID int64, name string) (*Folder, error) {
	return c.createFolder(ctx, "createfolder", token, parentID, name)
}

func (c *HTTPClient) createFolder(ctx context.Context, endpoint, token string, parentID int64, name string) (*Folder, error) {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("folderid", strconv.FormatInt(parentID, 10))
	params.Set("name", name)

	var resp folderResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	return &resp.Metadata, nil
}

func (c *HTTPClient) UploadFile(ctx context.Context, token string, folderID int64, name string, data io.Reader) (*FileMeta, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, data); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	params := url.Values{}
	params.Set("access_token", token)
	params.Set("folderid", strconv.FormatInt(folderID, 10))
	params.Set("filename", name)
	params.Set("renameifexists", "1")

	endpoint := fmt.Sprintf("%s/uploadfile?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp uploadResponse
	if err := c.do(req, "uploadfile", &resp); err != nil {
		return nil, err
	}
	if len(resp.Metadata) == 0 {
		return nil, &Error{Result: ResultInternalUploadER, Message: "upload response without metadata"}
	}
	return &resp.Metadata[0], nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	params := url.Values{}
	params.Set("access_token", token)

	var resp envelope
	return c.get(ctx, "logout", params, &resp)
}

func (c *HTTPClient) get(ctx context.Context, endpoint string, params url.Values, out resulter) error {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	return c.do(req, endpoint, out)
}

// resulter lets do inspect the envelope regardless of the concrete response.
type resulter interface {
	result() (int, string)
}

func (e *envelope) result() (int, string) { return e.Result, e.Error }

// do executes the request and decodes the envelope. Logs carry the endpoint
// name only, never the query string, so access tokens stay out of log output.
func (c *HTTPClient) do(req *http.Request, endpoint string, out resulter) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("api call failed", "endpoint", endpoint, "error", err)
		return fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	result, message := out.result()
	c.logger.Debug("api call",
		"endpoint", endpoint,
		"result", result,
		"duration", time.Since(start))

	if result != ResultOK {
		return &Error{Result: result, Message: message}
	}
	return nil
}
