// Package imagefetch turns an image reference (a file:// path or an http(s)
// URL) into a base64 data URI that can be embedded in a report.
//
// Fetch never returns an error: any failure is logged and yields "".
package imagefetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register GIF for DecodeConfig
	_ "image/jpeg" // register JPEG for DecodeConfig
	_ "image/png"  // register PNG for DecodeConfig
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp" // register WebP for DecodeConfig
)

const (
	// LocalPrefix marks a reference that is read from the local filesystem.
	LocalPrefix = "file://"

	// DefaultTimeout bounds a single remote fetch.
	DefaultTimeout = 10 * time.Second

	// DefaultContentType is used when neither the extension nor the server
	// tells us what the bytes are.
	DefaultContentType = "image/jpeg"
)

var contentTypeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// Result is the outcome of resolving one reference. Err carries the failure
// reason for diagnostics; DataURI is empty whenever Err is non-nil.
type Result struct {
	DataURI     string
	ContentType string
	Size        int
	Width       int
	Height      int
	Local       bool
	Err         error
}

// OK reports whether the reference resolved to an image payload.
func (r Result) OK() bool {
	return r.Err == nil && r.DataURI != ""
}

// Fetcher resolves image references.
type Fetcher struct {
	client         *http.Client
	logger         zerolog.Logger
	userAgent      string
	thumbnailWidth int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-fetch timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithUserAgent sets the User-Agent header on remote requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithThumbnailWidth downscales images wider than w before encoding.
// 0 disables thumbnailing.
func WithThumbnailWidth(w int) Option {
	return func(f *Fetcher) { f.thumbnailWidth = w }
}

// New creates a Fetcher with a 10s timeout that logs through zerolog's
// global logger unless WithLogger is given.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: DefaultTimeout},
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the data URI for ref, or "" if it could not be loaded.
func (f *Fetcher) Fetch(ctx context.Context, ref string) string {
	return f.Resolve(ctx, ref).DataURI
}

// Resolve loads ref and reports the outcome. Failures are logged at warn
// level and returned in Result.Err; they never panic or propagate.
func (f *Fetcher) Resolve(ctx context.Context, ref string) Result {
	var (
		data        []byte
		contentType string
		err         error
	)

	local := strings.HasPrefix(ref, LocalPrefix)
	if local {
		data, contentType, err = f.readLocal(ref)
	} else {
		data, contentType, err = f.download(ctx, ref)
	}
	if err != nil {
		f.logger.Warn().Err(err).Str("image_url", ref).Msg("error downloading image")
		return Result{Local: local, Err: err}
	}

	res := Result{ContentType: contentType, Local: local}
	if cfg, _, cfgErr := image.DecodeConfig(bytes.NewReader(data)); cfgErr == nil {
		res.Width, res.Height = cfg.Width, cfg.Height
	} else {
		f.logger.Debug().Err(cfgErr).Str("image_url", ref).Msg("could not read image header")
	}

	if f.thumbnailWidth > 0 && res.Width > f.thumbnailWidth {
		if thumb, thumbType, thumbErr := f.thumbnail(data, contentType); thumbErr == nil {
			data, contentType = thumb, thumbType
			res.ContentType = thumbType
		} else {
			f.logger.Debug().Err(thumbErr).Str("image_url", ref).Msg("thumbnail failed, keeping original")
		}
	}

	res.Size = len(data)
	res.DataURI = EncodeDataURI(contentType, data)
	return res
}

// readLocal reads a file:// reference; the content type comes from the extension.
func (f *Fetcher) readLocal(ref string) ([]byte, string, error) {
	path := strings.TrimPrefix(ref, LocalPrefix)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image file: %w", err)
	}
	return data, ContentTypeForPath(path), nil
}

// download performs a single GET; any non-2xx status is a failure.
func (f *Fetcher) download(ctx context.Context, url string) ([]byte, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("empty image reference")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("failed to download image: HTTP %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}
	return data, contentType, nil
}

// thumbnail re-encodes data at the configured width, keeping PNG/GIF as PNG
// and everything else as JPEG.
func (f *Fetcher) thumbnail(data []byte, contentType string) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	img = imaging.Resize(img, f.thumbnailWidth, 0, imaging.Lanczos)

	format, outType := imaging.JPEG, "image/jpeg"
	if contentType == "image/png" || contentType == "image/gif" {
		format, outType = imaging.PNG, "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), outType, nil
}

// ContentTypeForPath maps a file extension to an image content type,
// defaulting to image/jpeg.
func ContentTypeForPath(path string) string {
	if ct, ok := contentTypeByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return DefaultContentType
}

// EncodeDataURI returns data:<contentType>;base64,<data>.
func EncodeDataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
