package interfaces

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/colligo/internal/models"
)

// ErrNotFound is returned by local catalog lookups when the entity does not
// exist. Callers use errors.Is to distinguish "missing" from real failures.
var ErrNotFound = errors.New("not found")

// ValidationError is returned by UpsertDataset when the assembled record
// violates the local schema. It is a per-record failure, never run-fatal.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dataset validation failed: %s", e.Reason)
}

// LocalCatalog is the local catalog CRUD collaborator. The merge engine
// only decides what to look up and what to create; storage/badger provides
// the embedded implementation.
type LocalCatalog interface {
	GroupShow(ctx context.Context, idOrName string) (*models.Group, error)
	GroupCreate(ctx context.Context, group *models.GroupCreate) (*models.Group, error)

	OrganizationShow(ctx context.Context, idOrName string) (*models.Organization, error)
	OrganizationCreate(ctx context.Context, org *models.OrganizationCreate) (*models.Organization, error)

	UserShow(ctx context.Context, username string) error

	// UpsertDataset creates or updates the local dataset for the record.
	// Returns true when a new dataset was created.
	UpsertDataset(ctx context.Context, record models.RemoteRecord) (bool, error)
}
