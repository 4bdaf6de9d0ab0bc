package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// localGroup is the stored form of a local catalog group or organization.
type localGroup struct {
	ID             string `badgerhold:"key"`
	Name           string `badgerhold:"index"`
	Title          string
	IsOrganization bool
	CreatedAt      time.Time
}

// localDataset is the stored form of an imported dataset.
type localDataset struct {
	ID        string `badgerhold:"key"`
	Name      string
	Content   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// localUser is a known local catalog user.
type localUser struct {
	Name      string `badgerhold:"key"`
	CreatedAt time.Time
}

// CatalogStorage implements the LocalCatalog interface for Badger
type CatalogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCatalogStorage creates a new CatalogStorage instance
func NewCatalogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LocalCatalog {
	return &CatalogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CatalogStorage) GroupShow(ctx context.Context, idOrName string) (*models.Group, error) {
	group, err := s.findGroup(idOrName, false)
	if err != nil {
		return nil, err
	}
	return &models.Group{ID: group.ID, Name: group.Name, Title: group.Title}, nil
}

func (s *CatalogStorage) GroupCreate(ctx context.Context, create *models.GroupCreate) (*models.Group, error) {
	return s.createGroup(create.ID, create.Name, create.Title, false)
}

func (s *CatalogStorage) OrganizationShow(ctx context.Context, idOrName string) (*models.Organization, error) {
	group, err := s.findGroup(idOrName, true)
	if err != nil {
		return nil, err
	}
	return &models.Organization{ID: group.ID, Name: group.Name, Title: group.Title}, nil
}

func (s *CatalogStorage) OrganizationCreate(ctx context.Context, create *models.OrganizationCreate) (*models.Organization, error) {
	group, err := s.createGroup(create.ID, create.Name, create.Title, true)
	if err != nil {
		return nil, err
	}
	return &models.Organization{ID: group.ID, Name: group.Name, Title: group.Title}, nil
}

func (s *CatalogStorage) UserShow(ctx context.Context, username string) error {
	var user localUser
	if err := s.db.Store().Get(username, &user); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	return nil
}

// EnsureUser registers a local user so harvest configs may reference it.
func (s *CatalogStorage) EnsureUser(ctx context.Context, username string) error {
	user := localUser{Name: username, CreatedAt: time.Now().UTC()}
	if err := s.db.Store().Upsert(username, &user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// UpsertDataset stores the merged record, keyed by its remote id. Returns
// true when the dataset did not exist locally before.
func (s *CatalogStorage) UpsertDataset(ctx context.Context, record models.RemoteRecord) (bool, error) {
	id := record.ID()
	if id == "" {
		return false, &interfaces.ValidationError{Reason: "dataset has no id"}
	}
	if record.OwnerOrg() == "" {
		return false, &interfaces.ValidationError{Reason: "dataset has no owner organization"}
	}

	content, err := record.Encode()
	if err != nil {
		return false, &interfaces.ValidationError{Reason: err.Error()}
	}

	now := time.Now().UTC()
	created := false

	var existing localDataset
	err = s.db.Store().Get(id, &existing)
	switch err {
	case nil:
	case badgerhold.ErrNotFound:
		created = true
		existing = localDataset{ID: id, CreatedAt: now}
	default:
		return false, fmt.Errorf("failed to look up dataset: %w", err)
	}

	existing.Name = record.Name()
	existing.Content = content
	existing.UpdatedAt = now

	if err := s.db.Store().Upsert(id, &existing); err != nil {
		return false, fmt.Errorf("failed to save dataset: %w", err)
	}
	return created, nil
}

// findGroup resolves a group or organization by id first, then by name.
func (s *CatalogStorage) findGroup(idOrName string, isOrg bool) (*localGroup, error) {
	var group localGroup
	err := s.db.Store().Get(idOrName, &group)
	if err == nil && group.IsOrganization == isOrg {
		return &group, nil
	}
	if err != nil && err != badgerhold.ErrNotFound {
		return nil, fmt.Errorf("failed to look up group: %w", err)
	}

	var groups []localGroup
	query := badgerhold.Where("Name").Eq(idOrName).And("IsOrganization").Eq(isOrg).Limit(1)
	if err := s.db.Store().Find(&groups, query); err != nil {
		return nil, fmt.Errorf("failed to look up group by name: %w", err)
	}
	if len(groups) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &groups[0], nil
}

func (s *CatalogStorage) createGroup(id, name, title string, isOrg bool) (*models.Group, error) {
	if name == "" {
		return nil, &interfaces.ValidationError{Reason: "group name is required"}
	}
	if id == "" {
		id = uuid.New().String()
	}

	group := localGroup{
		ID:             id,
		Name:           name,
		Title:          title,
		IsOrganization: isOrg,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.Store().Upsert(id, &group); err != nil {
		return nil, fmt.Errorf("failed to save group: %w", err)
	}
	return &models.Group{ID: group.ID, Name: group.Name, Title: group.Title}, nil
}
