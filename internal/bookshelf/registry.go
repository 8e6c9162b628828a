package bookshelf

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/catalog"
	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/metrics"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/store"
)

// BookStore is the registry's persistence.
type BookStore interface {
	GetBook(ctx context.Context, find *model.FindBook) (*model.Book, error)
	CreateBook(ctx context.Context, create *model.Book) (*model.Book, error)
}

// Catalog resolves a normalized work key to its catalog metadata.
type Catalog interface {
	LookupBook(ctx context.Context, key string) (*catalog.Doc, error)
}

// Registry keeps exactly one Book per catalog key, fetching metadata from the
// catalog on first use.
type Registry struct {
	books   BookStore
	catalog Catalog
}

func NewRegistry(books BookStore, c Catalog) *Registry {
	return &Registry{books: books, catalog: c}
}

// NormalizeKey trims spaces and a leading "/works/".
func NormalizeKey(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), catalog.WorksPrefix)
}

// GetOrCreate returns the book for rawKey, creating it from catalog data when
// it is not stored yet. Concurrent creators of the same key all end up with
// the single stored record.
func (r *Registry) GetOrCreate(ctx context.Context, rawKey string) (*model.Book, error) {
	key := NormalizeKey(rawKey)
	if key == "" {
		return nil, ErrInvalidBook
	}

	book, err := r.books.GetBook(ctx, &model.FindBook{Key: &key})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find book %s", key)
	}
	if book != nil {
		metrics.RegistryLookups.WithLabelValues("hit").Inc()
		return book, nil
	}

	doc, err := r.catalog.LookupBook(ctx, key)
	if err != nil {
		return nil, err
	}

	create := &model.Book{
		Key:    NormalizeKey(doc.Key),
		Title:  doc.Title,
		Author: doc.AuthorName,
	}
	book, err = r.books.CreateBook(ctx, create)
	if err == nil {
		metrics.RegistryLookups.WithLabelValues("created").Inc()
		log.Info("Book registered", zap.String("key", book.Key), zap.String("title", book.Title))
		return book, nil
	}
	if !errors.Is(err, store.ErrDuplicateKey) {
		return nil, errors.Wrapf(err, "failed to create book %s", create.Key)
	}

	// Another request created it between our lookup and insert.
	metrics.RegistryLookups.WithLabelValues("race").Inc()
	book, err = r.books.GetBook(ctx, &model.FindBook{Key: &create.Key})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to re-read book %s", create.Key)
	}
	if book == nil {
		return nil, errors.Errorf("book %s reported duplicate but is missing", create.Key)
	}
	return book, nil
}
