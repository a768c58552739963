// Package transport uploads files to presigned POST destinations.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fulmenhq/otapublish/pkg/buildinfo"
	"github.com/fulmenhq/otapublish/pkg/logger"
	"github.com/fulmenhq/otapublish/pkg/store"
)

// DefaultMaxAttempts bounds tries per file including the first
const DefaultMaxAttempts = 5

// StatusError is a non-2xx answer from the upload destination
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upload rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("upload rejected with status %d: %s", e.StatusCode, e.Body)
}

// Options configures a PresignedPost transport
type Options struct {
	MaxAttempts int
	Timeout     time.Duration
}

// PresignedPost sends each file as a multipart/form-data POST: every
// specification field first, then the file part.
type PresignedPost struct {
	client      *http.Client
	maxAttempts int
	newBackOff  func() backoff.BackOff
}

var _ store.Transport = (*PresignedPost)(nil)

// New creates a transport with its own HTTP client
func New(opts Options) *PresignedPost {
	return NewWithClient(&http.Client{Timeout: opts.Timeout}, opts.MaxAttempts)
}

// NewWithClient creates a transport on an existing client
func NewWithClient(client *http.Client, maxAttempts int) *PresignedPost {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &PresignedPost{
		client:      client,
		maxAttempts: maxAttempts,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// Upload posts path to spec, retrying network errors, 429 and 5xx
func (t *PresignedPost) Upload(ctx context.Context, path string, spec store.UploadSpecification) error {
	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		return struct{}{}, t.post(ctx, path, spec)
	}
	notify := func(err error, next time.Duration) {
		logger.Debug("Retrying upload",
			logger.String("path", path),
			logger.Int("attempt", attempt),
			logger.Duration("next", next),
			logger.Err(err))
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(t.newBackOff()),
		backoff.WithMaxTries(uint(t.maxAttempts)),
		backoff.WithNotify(notify),
	)
	return err
}

func (t *PresignedPost) post(ctx context.Context, path string, spec store.UploadSpecification) error {
	f, err := os.Open(path)
	if err != nil {
		return backoff.Permanent(err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return backoff.Permanent(err)
	}

	body, contentType, length, err := formBody(spec.Fields, filepath.Base(path), f, info.Size())
	if err != nil {
		return backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, spec.URL, body)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
			return errors.Join(statusErr, backoff.RetryAfter(secs))
		}
		return statusErr
	case resp.StatusCode >= 500:
		return statusErr
	default:
		return backoff.Permanent(statusErr)
	}
}

// formBody frames file as the last part of a multipart form whose total
// length is known up front. Fields are written in key order.
func formBody(fields map[string]string, filename string, file io.Reader, size int64) (io.Reader, string, int64, error) {
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, "", 0, err
		}
	}
	if _, err := mw.CreateFormFile("file", filename); err != nil {
		return nil, "", 0, err
	}

	var tail bytes.Buffer
	prefix := head.Len()
	if err := mw.Close(); err != nil {
		return nil, "", 0, err
	}
	tail.Write(head.Bytes()[prefix:])
	head.Truncate(prefix)

	length := int64(head.Len()) + size + int64(tail.Len())
	return io.MultiReader(&head, io.LimitReader(file, size), &tail), mw.FormDataContentType(), length, nil
}
