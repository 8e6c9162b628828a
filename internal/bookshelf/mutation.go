package bookshelf

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/metrics"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/util"
)

// Add creates an entry in partition p for the caller. Wishlist entries always
// get the Wishlist status.
func (s *Service) Add(ctx context.Context, p model.Partition, identity *model.Identity, input *model.EntryInput) (*model.Entry, error) {
	if err := authenticate(identity); err != nil {
		return nil, err
	}

	book, err := s.registry.GetOrCreate(ctx, input.BookKey)
	if err != nil {
		return nil, err
	}

	entry := &model.Entry{
		OwnerID:   identity.UserID,
		BookID:    book.ID,
		Status:    addStatus(p, input.Status),
		OtherName: input.OtherName,
		Date:      input.Date,
	}
	entry.Normalize()

	created, err := s.entries.CreateEntry(ctx, entry)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create entry")
	}
	created.Book = book

	metrics.EntryMutations.WithLabelValues(p.String(), "add").Inc()
	log.Debug("Entry added",
		zap.String("id", created.ID),
		zap.Int32("owner", created.OwnerID),
		zap.String("book", book.Key),
		zap.String("status", created.Status.String()),
	)
	return created, nil
}

// Update replaces the book, status, name and date of an entry owned by the
// caller. On the wishlist an explicit non-Wishlist status moves the entry to
// the shelf as an owned copy.
func (s *Service) Update(ctx context.Context, p model.Partition, identity *model.Identity, id string, input *model.EntryInput) (*model.Entry, error) {
	if err := authenticate(identity); err != nil {
		return nil, err
	}
	entry, err := s.findOwned(ctx, p, identity, id)
	if err != nil {
		return nil, err
	}

	book := entry.Book
	if key := NormalizeKey(input.BookKey); book == nil || key != book.Key {
		if book, err = s.registry.GetOrCreate(ctx, input.BookKey); err != nil {
			return nil, err
		}
	}

	update := &model.Entry{
		ID:        entry.ID,
		OwnerID:   entry.OwnerID,
		BookID:    book.ID,
		Status:    updateStatus(p, input.Status),
		OtherName: input.OtherName,
		Date:      input.Date,
	}
	update.Normalize()

	updated, err := s.entries.UpdateEntry(ctx, update)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to update entry %s", id)
	}
	updated.Book = book

	metrics.EntryMutations.WithLabelValues(p.String(), "update").Inc()
	return updated, nil
}

// Delete removes an entry owned by the caller. A concurrent delete of the
// same entry yields ErrConflict.
func (s *Service) Delete(ctx context.Context, p model.Partition, identity *model.Identity, id string) error {
	if err := authenticate(identity); err != nil {
		return err
	}
	entry, err := s.findOwned(ctx, p, identity, id)
	if err != nil {
		return err
	}

	affected, err := s.entries.DeleteEntry(ctx, entry.ID, identity.UserID)
	if err != nil {
		return errors.Wrapf(err, "failed to delete entry %s", id)
	}
	if affected != 1 {
		log.Warn("Entry delete affected unexpected rows", zap.String("id", id), zap.Int64("affected", affected))
		return ErrConflict
	}

	metrics.EntryMutations.WithLabelValues(p.String(), "delete").Inc()
	return nil
}

// Get returns the editable view of an entry owned by the caller.
func (s *Service) Get(ctx context.Context, p model.Partition, identity *model.Identity, id string) (*model.EntryDetail, error) {
	if err := authenticate(identity); err != nil {
		return nil, err
	}
	entry, err := s.findOwned(ctx, p, identity, id)
	if err != nil {
		return nil, err
	}
	return model.NewEntryDetail(entry), nil
}

// findOwned loads entry id from partition p. Entries outside the partition
// are reported as missing, entries of other users as forbidden.
func (s *Service) findOwned(ctx context.Context, p model.Partition, identity *model.Identity, id string) (*model.Entry, error) {
	if !util.IsUUID(id) {
		return nil, ErrNotFound
	}
	entry, err := s.entries.GetEntry(ctx, &model.FindEntry{ID: &id})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find entry %s", id)
	}
	if entry == nil || !p.Contains(entry.Status) {
		return nil, ErrNotFound
	}
	if entry.OwnerID != identity.UserID {
		return nil, ErrForbidden
	}
	return entry, nil
}

func addStatus(p model.Partition, requested *model.Status) model.Status {
	switch {
	case p.Wishlist:
		return model.StatusWishlist
	case requested == nil:
		return model.StatusDefault
	}
	return *requested
}

func updateStatus(p model.Partition, requested *model.Status) model.Status {
	if !p.Wishlist {
		if requested == nil {
			return model.StatusDefault
		}
		return *requested
	}
	if requested == nil || *requested == model.StatusWishlist {
		return model.StatusWishlist
	}
	return model.StatusDefault
}
