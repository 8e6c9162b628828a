// Package bookshelf implements the collection of a user: listing with
// filters, sorting and paging, and adding, updating and removing entries
// on the shelf and the wishlist.
package bookshelf // import "github.com/Xunop/bookshelf/internal/bookshelf"

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/model"
)

// EntryStore is the persistence of collection entries.
type EntryStore interface {
	GetEntry(ctx context.Context, find *model.FindEntry) (*model.Entry, error)
	ListEntries(ctx context.Context, find *model.FindEntry) ([]*model.Entry, error)
	CreateEntry(ctx context.Context, create *model.Entry) (*model.Entry, error)
	UpdateEntry(ctx context.Context, update *model.Entry) (*model.Entry, error)
	DeleteEntry(ctx context.Context, id string, ownerID int32) (int64, error)
}

type Service struct {
	entries  EntryStore
	registry *Registry
	locale   language.Tag
}

// NewService builds a Service sorting with the collation rules of locale.
// An unknown locale falls back to English.
func NewService(entries EntryStore, registry *Registry, locale string) *Service {
	tag, err := language.Parse(locale)
	if err != nil {
		log.Warn("Unknown sort locale, using English", zap.String("locale", locale), zap.Error(err))
		tag = language.English
	}
	return &Service{
		entries:  entries,
		registry: registry,
		locale:   tag,
	}
}

func (s *Service) Registry() *Registry {
	return s.registry
}

func authenticate(identity *model.Identity) error {
	if identity == nil || identity.UserID == 0 {
		return ErrUnauthorized
	}
	return nil
}
