package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"
)

const defaultMaxBodySize = 32 << 20

// Fetcher downloads one source and normalizes its entries.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	jsonParser *JSONFeedParser
	maxBody    int64
	now        func() time.Time
}

func NewFetcher(httpClient *http.Client, userAgent string, timeout time.Duration) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
		jsonParser: NewJSONFeedParser(),
		maxBody:    defaultMaxBodySize,
		now:        time.Now,
	}
}

// Run returns the entries of the source at url. Failures are reported as
// *FetchError or *ParseError.
func (f *Fetcher) Run(ctx context.Context, url string) ([]Item, error) {
	slog.Debug("Fetching source", "url", url)

	data, contentType, err := f.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	kind := DetectSourceKind(contentType)
	slog.Debug("Source fetched", "url", url, "content_type", contentType, "kind", kind, "bytes", len(data))

	items, err := f.decode(kind, data)
	if err != nil {
		return nil, &ParseError{URL: url, Kind: kind, Err: err}
	}

	slog.Info("Source parsed", "url", url, "kind", kind, "items", len(items))
	return items, nil
}

func (f *Fetcher) decode(kind SourceKind, data []byte) ([]Item, error) {
	now := f.now()

	switch kind {
	case SourceJSONFeed:
		return f.jsonParser.Run(data, now)
	default:
		// gofeed parsers keep per-document state, so each fetch gets its own.
		return NewParser().Run(data, now)
	}
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, "", &FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(data)) > f.maxBody {
		return nil, "", &FetchError{URL: url, Err: fmt.Errorf("response exceeds %d bytes", f.maxBody)}
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// DetectSourceKind picks the decoder for a declared content type. JSON media
// types select JSON Feed; everything else goes to the RSS/Atom parser.
func DetectSourceKind(contentType string) SourceKind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}

	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		return SourceJSONFeed
	}
	return SourceGeneric
}
