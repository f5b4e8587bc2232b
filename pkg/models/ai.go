// Package models contains shared data models used across the ArtScan codebase.
package models

import (
	"context"
	"encoding/base64"
)

// VisionProvider is the core interface that all vision/chat integrations must implement.
// Callers depend on this interface, never on a concrete provider.
type VisionProvider interface {
	// Complete sends one text prompt together with one image and returns the
	// assistant message content.
	Complete(ctx context.Context, prompt string, image Image) (string, error)
	// Name returns the provider identifier (e.g., "navigator", "openai").
	Name() string
}

// Image is an in-memory image payload ready to be sent to a vision provider.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageFetcher resolves deferred image bytes, typically a remote download.
type ImageFetcher func(ctx context.Context) (Image, error)

// DataURL encodes the image as a data: URL, the transport encoding vision
// chat endpoints accept for inline images.
func (i Image) DataURL() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}
