// Package imagestore turns submitted photos into the URL shown with a
// diagnosis record.
package imagestore

import (
	"context"
	"fmt"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

// Store saves an image and returns a URL that can be rendered directly.
type Store interface {
	Save(ctx context.Context, owner string, img domain.MediaInput) (string, error)
}

// DataURIStore keeps the image inline as a data URI.
type DataURIStore struct{}

func (DataURIStore) Save(_ context.Context, _ string, img domain.MediaInput) (string, error) {
	if img.IsZero() {
		return "", fmt.Errorf("image is empty")
	}
	return img.DataURI(), nil
}
