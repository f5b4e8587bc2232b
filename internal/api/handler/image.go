package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/artscan/internal/analysis"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

// MaxImageBytes caps decoded and downloaded images.
const MaxImageBytes = 10 << 20

var (
	ErrNoImage       = errors.New("image_base64 or a data:/http(s) image_uri is required")
	ErrImageTooLarge = fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	ErrNotAnImage    = errors.New("payload is not an image")
	ErrImageFetch    = errors.New("image could not be fetched")
)

// ImageInput is the image part of an analyze request.
type ImageInput struct {
	ImageURI    string `json:"image_uri"`
	ImageBase64 string `json:"image_base64"`
	MIMEType    string `json:"mime_type"`
}

// ImageLoader turns an ImageInput into bytes and an identity.
type ImageLoader struct {
	http *http.Client
}

func NewImageLoader(timeout time.Duration) *ImageLoader {
	return &ImageLoader{http: &http.Client{Timeout: timeout}}
}

// Resolve works out the identity without touching the network. Inline
// images are decoded immediately; an http(s) image_uri is its own identity
// and is returned as a fetcher so the download happens only when needed.
// Inline base64 wins over image_uri; the client URI still names the identity
// when both are sent.
func (l *ImageLoader) Resolve(in ImageInput) (string, models.Image, models.ImageFetcher, error) {
	var (
		data []byte
		mime = in.MIMEType
		err  error
	)

	switch {
	case in.ImageBase64 != "":
		var inlineMIME string
		data, inlineMIME, err = decodeInline(in.ImageBase64)
		if mime == "" {
			mime = inlineMIME
		}
	case strings.HasPrefix(in.ImageURI, "data:"):
		var inlineMIME string
		data, inlineMIME, err = decodeInline(in.ImageURI)
		if mime == "" {
			mime = inlineMIME
		}
	case strings.HasPrefix(in.ImageURI, "http://"), strings.HasPrefix(in.ImageURI, "https://"):
		uri := in.ImageURI
		fetch := func(ctx context.Context) (models.Image, error) {
			data, fetchedMIME, err := l.fetch(ctx, uri)
			if err != nil {
				return models.Image{}, err
			}
			if mime != "" {
				fetchedMIME = mime
			}
			return checkImage(data, fetchedMIME)
		}
		return analysis.ImageIdentity(uri, nil), models.Image{}, fetch, nil
	default:
		return "", models.Image{}, nil, ErrNoImage
	}
	if err != nil {
		return "", models.Image{}, nil, err
	}

	image, err := checkImage(data, mime)
	if err != nil {
		return "", models.Image{}, nil, err
	}
	return analysis.ImageIdentity(in.ImageURI, data), image, nil, nil
}

// Load resolves the image and downloads it at once when it is remote.
func (l *ImageLoader) Load(ctx context.Context, in ImageInput) (models.Image, string, error) {
	identity, image, fetch, err := l.Resolve(in)
	if err != nil {
		return models.Image{}, "", err
	}
	if fetch != nil {
		if image, err = fetch(ctx); err != nil {
			return models.Image{}, "", err
		}
	}
	return image, identity, nil
}

// checkImage rejects empty or non-image payloads, sniffing the type when the
// declared one is missing or wrong.
func checkImage(data []byte, mime string) (models.Image, error) {
	if len(data) == 0 {
		return models.Image{}, ErrNoImage
	}
	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = sniffed
	}
	if !strings.HasPrefix(mime, "image/") {
		return models.Image{}, fmt.Errorf("%w: detected %s", ErrNotAnImage, sniffed)
	}
	return models.Image{Data: data, MIMEType: mime}, nil
}

// decodeInline accepts raw base64 or a data: URI.
func decodeInline(s string) ([]byte, string, error) {
	var mime string
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("%w: data URI must be base64 encoded", ErrNoImage)
		}
		mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		s = payload
	}
	if base64.StdEncoding.DecodedLen(len(s)) > MaxImageBytes+3 {
		return nil, "", ErrImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", ErrImageTooLarge
	}
	return data, mime, nil
}

func (l *ImageLoader) fetch(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageFetch, err)
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: status %d", ErrImageFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageFetch, err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", ErrImageTooLarge
	}
	mime, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return data, strings.TrimSpace(mime), nil
}
