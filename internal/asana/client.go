// Package asana is a minimal client for the parts of the Asana REST API the
// footer pipeline uses: project task listing, task detail and attachment upload.
package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/hpungsan/stopka/internal/errors"
)

// PageSize is the number of tasks requested per listing page (Asana's maximum).
const PageSize = 100

// maxErrorBody caps how much of a non-JSON error body is kept.
const maxErrorBody = 512

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client // default: client with 30s timeout
}

// Client talks to the Asana REST API with a personal access token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a Client for opts.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		http:    httpClient,
	}
}

// TaskRef is a task as returned by the project listing.
type TaskRef struct {
	GID       string `json:"gid"`
	Completed bool   `json:"completed"`
}

// User is a compact Asana user reference.
type User struct {
	GID string `json:"gid"`
}

// Task is the task detail needed to build a contact record.
type Task struct {
	GID       string `json:"gid"`
	Name      string `json:"name"`
	Notes     string `json:"notes"`
	CreatedBy *User  `json:"created_by"`
}

// CreatorID returns the creator's gid, or "" when Asana reports none.
func (t *Task) CreatorID() string {
	if t.CreatedBy == nil {
		return ""
	}
	return t.CreatedBy.GID
}

type nextPage struct {
	Offset string `json:"offset"`
}

type listResponse struct {
	Data     []TaskRef `json:"data"`
	NextPage *nextPage `json:"next_page"`
}

type taskResponse struct {
	Data Task `json:"data"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ListProjectTasks returns every task in the project with its completed flag,
// following pagination until Asana reports no next page.
func (c *Client) ListProjectTasks(ctx context.Context, projectID string) ([]TaskRef, error) {
	var tasks []TaskRef
	offset := ""
	for {
		q := url.Values{}
		q.Set("opt_fields", "completed")
		q.Set("limit", fmt.Sprint(PageSize))
		if offset != "" {
			q.Set("offset", offset)
		}

		var page listResponse
		path := "/projects/" + url.PathEscape(projectID) + "/tasks?" + q.Encode()
		if err := c.getJSON(ctx, "list project tasks", path, &page); err != nil {
			return nil, err
		}
		tasks = append(tasks, page.Data...)

		if page.NextPage == nil || page.NextPage.Offset == "" {
			return tasks, nil
		}
		offset = page.NextPage.Offset
	}
}

// GetTask fetches name, notes and creator of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	q := url.Values{}
	q.Set("opt_fields", "name,notes,created_by")

	var resp taskResponse
	path := "/tasks/" + url.PathEscape(taskID) + "?" + q.Encode()
	if err := c.getJSON(ctx, "get task", path, &resp); err != nil {
		return nil, err
	}
	if resp.Data.GID == "" {
		resp.Data.GID = taskID
	}
	return &resp.Data, nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// UploadAttachment attaches content to the task under filename.
func (c *Client) UploadAttachment(ctx context.Context, taskID, filename string, content []byte, mimeType string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return errors.NewInternal(err)
	}
	if _, err := part.Write(content); err != nil {
		return errors.NewInternal(err)
	}
	if err := w.Close(); err != nil {
		return errors.NewInternal(err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/attachments", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewUpstream("upload attachment", 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamError("upload attachment", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewUpstream(op, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewUpstream(op, resp.StatusCode, fmt.Sprintf("invalid response body: %v", err))
	}
	return nil
}

// upstreamError builds an UPSTREAM error from Asana's error messages, falling
// back to the raw body.
func upstreamError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var e errorResponse
	if json.Unmarshal(data, &e) == nil && len(e.Errors) > 0 {
		msgs := make([]string, 0, len(e.Errors))
		for _, m := range e.Errors {
			msgs = append(msgs, m.Message)
		}
		return errors.NewUpstream(op, resp.StatusCode, strings.Join(msgs, "; "))
	}

	detail := strings.TrimSpace(string(data))
	if len(detail) > maxErrorBody {
		detail = detail[:maxErrorBody]
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	return errors.NewUpstream(op, resp.StatusCode, detail)
}
