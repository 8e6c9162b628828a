package bookshelf

import (
	"context"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/collate"

	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/model"
)

// List returns one page of the caller's entries in partition p.
func (s *Service) List(ctx context.Context, p model.Partition, identity *model.Identity, query *model.ListQuery) (*model.ListPage, error) {
	if err := authenticate(identity); err != nil {
		return nil, err
	}

	wishlist := p.Wishlist
	entries, err := s.entries.ListEntries(ctx, &model.FindEntry{
		OwnerID:  &identity.UserID,
		Wishlist: &wishlist,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list entries")
	}

	items := make([]*model.ListItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, model.NewListItem(entry))
	}

	items = filterItems(p, items, query)
	s.sortItems(p, items, query)
	page := paginate(items, query.Page, query.Limit)

	log.Debug("Listed entries",
		zap.Int32("owner", identity.UserID),
		zap.String("partition", p.String()),
		zap.Int("total", len(entries)),
		zap.Int("matched", len(items)),
		zap.Int("page", page.Page),
		zap.Int("last_page", page.LastPage),
	)
	return page, nil
}

// filterItems keeps the items matching every given filter. Every filter is a
// case-insensitive substring match, so Borrowed also selects LibraryBorrowed.
// Status and owner filters do not apply to the wishlist.
func filterItems(p model.Partition, items []*model.ListItem, query *model.ListQuery) []*model.ListItem {
	result := make([]*model.ListItem, 0, len(items))
	for _, item := range items {
		if !p.Wishlist {
			if len(query.Statuses) > 0 && !slices.ContainsFunc(query.Statuses, func(s model.Status) bool {
				return contains(item.Status.String(), s.String())
			}) {
				continue
			}
			if query.Owner != "" && !contains(item.OwnerName, query.Owner) {
				continue
			}
		}
		if query.Title != "" && !contains(item.Title, query.Title) {
			continue
		}
		if query.Author != "" && !slices.ContainsFunc(item.Author, func(a string) bool {
			return contains(a, query.Author)
		}) {
			continue
		}
		result = append(result, item)
	}
	return result
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// sortItems sorts by owner then by title, each pass stable, so the title
// order wins and the owner order breaks ties.
func (s *Service) sortItems(p model.Partition, items []*model.ListItem, query *model.ListQuery) {
	if query.OwnerSort == model.SortNone && query.TitleSort == model.SortNone {
		return
	}
	// A Collator keeps internal buffers and cannot be shared between requests.
	c := collate.New(s.locale)
	if !p.Wishlist && query.OwnerSort != model.SortNone {
		sortBy(c, items, query.OwnerSort, func(item *model.ListItem) string { return item.OwnerName })
	}
	if query.TitleSort != model.SortNone {
		sortBy(c, items, query.TitleSort, func(item *model.ListItem) string { return item.Title })
	}
}

func sortBy(c *collate.Collator, items []*model.ListItem, order model.SortOrder, field func(*model.ListItem) string) {
	slices.SortStableFunc(items, func(a, b *model.ListItem) int {
		cmp := c.CompareString(field(a), field(b))
		if order == model.SortDesc {
			return -cmp
		}
		return cmp
	})
}

// paginate slices items to the 1-based page of size limit. Pages past the end
// are clamped to the last one, and an empty list still has one page.
func paginate(items []*model.ListItem, page, limit int) *model.ListPage {
	if limit <= 0 {
		limit = 1
	}
	total := len(items)
	lastPage := total / limit
	if total%limit != 0 {
		lastPage++
	}
	if lastPage == 0 {
		lastPage = 1
	}
	if page <= 0 {
		page = 1
	}
	if page > lastPage {
		page = lastPage
	}

	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	books := make([]*model.ListItem, 0, end-start)
	books = append(books, items[start:end]...)
	return &model.ListPage{
		Books:    books,
		Page:     page,
		LastPage: lastPage,
	}
}
