// Package linkedin is a client of the LinkedIn groups API.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const (
	Authorization = "https://www.linkedin.com/uas/oauth2/authorization"
	Exchange      = "https://www.linkedin.com/uas/oauth2/accessToken"
	Base          = "https://api.linkedin.com/v1"
)

const (
	defaultPageSize = 50
	defaultRetryMax = 3
	defaultCacheTTL = 5 * time.Minute
)

// Endpoint is the OAuth2 endpoint of LinkedIn. The token endpoint expects the
// client credentials in the request body.
var Endpoint = oauth2.Endpoint{
	AuthURL:   Authorization,
	TokenURL:  Exchange,
	AuthStyle: oauth2.AuthStyleInParams,
}

// App talks to the API with an HTTP client that already authorizes its
// requests, usually one returned by oauth2.NewClient.
type App struct {
	baseURL  string
	client   *retryablehttp.Client
	cache    *ristretto.Cache
	cacheTTL time.Duration
	pageSize int
}

// New creates an App sending its requests through httpClient.
func New(httpClient *http.Client, opts ...func(*App)) (*App, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000 * 10,
		MaxCost:     1000,
		BufferItems: 64,
		Metrics:     false,
		Cost: func(value interface{}) int64 {
			return 1
		},
	})
	if err != nil {
		return nil, err
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = httpClient
	client.Logger = retryLogger{}
	client.RetryMax = defaultRetryMax
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.CheckRetry = checkRetry

	a := &App{
		baseURL:  Base,
		client:   client,
		cache:    cache,
		cacheTTL: defaultCacheTTL,
		pageSize: defaultPageSize,
	}

	for _, o := range opts {
		o(a)
	}

	return a, nil
}

// checkRetry leaves token failures to the caller, retrying them cannot help.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err != nil && isTokenError(err) {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// WithBaseURL points the App at another API root.
func WithBaseURL(baseURL string) func(*App) {
	return func(a *App) {
		a.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithCacheTTL sets how long listings are served from the cache. Zero
// disables caching.
func WithCacheTTL(ttl time.Duration) func(*App) {
	return func(a *App) {
		a.cacheTTL = ttl
	}
}

// WithPageSize sets the count of values requested per page.
func WithPageSize(n int) func(*App) {
	return func(a *App) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// WithRetryMax sets how many times a failed request is retried.
func WithRetryMax(n int) func(*App) {
	return func(a *App) {
		a.client.RetryMax = n
	}
}

// WaitForCache blocks until pending cache writes are visible.
func (a *App) WaitForCache() {
	a.cache.Wait()
}

func (a *App) URL(path string) string {
	return a.baseURL + path
}

func (a *App) do(ctx context.Context, method string, path string, query url.Values, body interface{}) (int, []byte, error) {
	u := a.URL(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequest(method, u, reader)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "unable to create %s request to %s", method, path)
	}
	req = req.WithContext(ctx)
	req.Header.Set("x-li-format", "json")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrapf(err, "unable to read response of %s", path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, content, decodeError(resp.StatusCode, content)
	}

	return resp.StatusCode, content, nil
}

// list collects every value of a paged collection.
func (a *App) list(ctx context.Context, path string, decode func(gjson.Result) error) error {
	start := 0
	for {
		query := url.Values{
			"start": {strconv.Itoa(start)},
			"count": {strconv.Itoa(a.pageSize)},
		}

		_, content, err := a.do(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return err
		}
		if !gjson.ValidBytes(content) {
			return errors.Wrapf(ErrInvalidDataFormat, "response of %s", path)
		}

		values := gjson.GetBytes(content, "values").Array()
		for _, v := range values {
			err = decode(v)
			if err != nil {
				return err
			}
		}

		if len(values) == 0 {
			return nil
		}
		start += len(values)

		total := gjson.GetBytes(content, "_total")
		if !total.Exists() || int64(start) >= total.Int() {
			return nil
		}
	}
}

func (a *App) cached(key string) (interface{}, bool) {
	if a.cacheTTL <= 0 {
		return nil, false
	}
	return a.cache.Get(key)
}

func (a *App) store(key string, value interface{}) {
	if a.cacheTTL <= 0 {
		return
	}
	_ = a.cache.SetWithTTL(key, value, 1, a.cacheTTL)
}

func (a *App) invalidate(key string) {
	a.cache.Del(key)
}
