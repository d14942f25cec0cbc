// internal/downloader/downloader.go
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/law-makers/pdfharvest/internal/ratelimit"
	"github.com/law-makers/pdfharvest/internal/retry"
	"github.com/law-makers/pdfharvest/internal/utils/headers"
	urlutil "github.com/law-makers/pdfharvest/internal/utils/url"
	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// ErrNotPDF is returned when RequirePDF is set and the server answers with
// another content type.
var ErrNotPDF = errors.New("response is not a PDF")

// Result is the outcome of downloading one link
type Result struct {
	Record    models.LinkRecord
	FilePath  string
	Size      int64
	Outcome   models.Outcome
	Error     error
	StartTime time.Time
	Duration  time.Duration
}

// Options configures a Downloader
type Options struct {
	// Client is used as is when set; Timeout only applies to the default client
	Client     *http.Client
	Timeout    time.Duration
	UserAgent  string
	Headers    map[string]string
	Limiter    ratelimit.RateLimiter
	Retry      retry.Config
	RequirePDF bool
	Overwrite  bool
}

// Downloader streams links to disk
type Downloader struct {
	client     *http.Client
	userAgent  string
	headers    map[string]string
	limiter    ratelimit.RateLimiter
	retry      retry.Config
	requirePDF bool
	overwrite  bool
}

// New creates a Downloader
func New(opts Options) *Downloader {
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Downloader{
		client:     client,
		userAgent:  opts.UserAgent,
		headers:    opts.Headers,
		limiter:    opts.Limiter,
		retry:      opts.Retry,
		requirePDF: opts.RequirePDF,
		overwrite:  opts.Overwrite,
	}
}

// Download saves rec.URL into dir. Existing files are skipped unless
// Overwrite is set. The result's Outcome is always populated.
func (d *Downloader) Download(ctx context.Context, rec models.LinkRecord, dir string) *Result {
	result := &Result{
		Record:    rec,
		StartTime: time.Now(),
	}
	fail := func(outcome models.Outcome, err error) *Result {
		result.Outcome = outcome
		result.Error = err
		result.Duration = time.Since(result.StartTime)
		return result
	}

	if err := urlutil.ValidateURL(rec.URL); err != nil {
		return fail(models.OutcomeFailed, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fail(models.OutcomeFailed, fmt.Errorf("failed to create output directory: %w", err))
	}

	name := sanitizeFilename(rec.URL)
	if d.requirePDF && filepath.Ext(name) == "" {
		name += ".pdf"
	}
	result.FilePath = filepath.Join(dir, name)

	if !d.overwrite {
		if info, err := os.Stat(result.FilePath); err == nil && info.Size() > 0 {
			log.Debug().Str("file", result.FilePath).Msg("File exists, skipping")
			result.Size = info.Size()
			result.Outcome = models.OutcomeSkipped
			result.Duration = time.Since(result.StartTime)
			return result
		}
	}

	err := retry.WithRetry(ctx, d.retry, func() error {
		n, err := d.fetch(ctx, rec.URL, result.FilePath)
		result.Size = n
		return err
	})
	if errors.Is(err, ErrNotPDF) {
		return fail(models.OutcomeNotPDF, err)
	}
	if err != nil {
		return fail(models.OutcomeFailed, err)
	}

	result.Outcome = models.OutcomeDownloaded
	result.Duration = time.Since(result.StartTime)

	log.Debug().
		Str("url", rec.URL).
		Str("file", result.FilePath).
		Int64("bytes", result.Size).
		Dur("duration", result.Duration).
		Msg("Download completed")

	return result
}

// fetch makes one attempt, streaming into a temporary file that is renamed
// into place on success.
func (d *Downloader) fetch(ctx context.Context, fileURL, filePath string) (int64, error) {
	if err := d.limiter.Wait(ctx, fileURL); err != nil {
		return 0, retry.Permanent(fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	headers.Apply(req, d.headers)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, retry.NewHTTPError(resp.StatusCode, resp.Status, "")
	}

	if ct := resp.Header.Get("Content-Type"); d.requirePDF && !strings.Contains(strings.ToLower(ct), models.MIMETypePDF) {
		return 0, retry.Permanent(fmt.Errorf("%w: %s", ErrNotPDF, ct))
	}

	tmpPath := filePath + ".part"
	outFile, err := os.Create(tmpPath)
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("failed to create file: %w", err))
	}

	n, err := io.Copy(outFile, resp.Body)
	if cerr := outFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return 0, retry.Permanent(fmt.Errorf("failed to move file into place: %w", err))
	}

	return n, nil
}

// sanitizeFilename derives a safe file name from a URL. The last path
// segment is kept for readability and a hash of the full path and query is
// appended, so distinct URLs sharing a last segment get distinct files.
func sanitizeFilename(input string) string {
	var urlHash string
	if u, err := url.Parse(input); err == nil && u.Host != "" {
		input = u.Path[strings.LastIndex(u.Path, "/")+1:]
		if unescaped, err := url.PathUnescape(input); err == nil {
			input = unescaped
		}
		urlHash = "_" + hashString(u.Path+"?"+u.RawQuery)
	}

	input = strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	).Replace(input)

	input = strings.TrimSpace(input)
	input = strings.Trim(input, ".")

	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	if stem == "" {
		stem = "download"
	}
	// keep room for the hash and extension
	if limit := 200 - len(urlHash) - len(ext); len(stem) > limit {
		stem = stem[:limit]
	}

	return stem + urlHash + ext
}

func hashString(s string) string {
	var hash uint32
	for _, c := range s {
		hash = hash*31 + uint32(c)
	}
	return fmt.Sprintf("%08x", hash)
}
