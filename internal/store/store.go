package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateAnalysis(ctx context.Context, a *models.ImageAnalysis) error
	GetAnalysis(ctx context.Context, id uuid.UUID) (*models.ImageAnalysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]*models.ImageAnalysis, error)
	SearchAnalysesByName(ctx context.Context, name string) ([]*models.ImageAnalysis, error)
	UpdateAnalysis(ctx context.Context, id uuid.UUID, upd AnalysisUpdate) (*models.ImageAnalysis, error)
	DeleteAnalysis(ctx context.Context, id uuid.UUID) (*models.ImageAnalysis, error)

	// FindByImageIdentity returns the newest record whose metadata.imageUri
	// equals identity exactly, or ErrNotFound.
	FindByImageIdentity(ctx context.Context, identity string) (*models.ImageAnalysis, error)
	// FindByName returns the newest record whose image_name matches name
	// case-insensitively, or ErrNotFound.
	FindByName(ctx context.Context, name string) (*models.ImageAnalysis, error)
}

// AnalysisFilter narrows ListAnalyses. Zero values mean no filter.
type AnalysisFilter struct {
	AnalysisType string
	Limit        int
}

// AnalysisUpdate is a partial update; nil fields are left unchanged.
// Metadata replaces the stored metadata object as a whole.
type AnalysisUpdate struct {
	ImageName    *string
	AnalysisType *string
	Descriptions []string
	Metadata     *models.AnalysisMetadata
}

// Empty reports whether the update changes nothing.
func (u AnalysisUpdate) Empty() bool {
	return u.ImageName == nil && u.AnalysisType == nil && u.Descriptions == nil && u.Metadata == nil
}
