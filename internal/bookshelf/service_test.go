package bookshelf

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Xunop/bookshelf/internal/catalog"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/store"
	"github.com/Xunop/bookshelf/internal/store/db"
	"github.com/Xunop/bookshelf/internal/util"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	d, err := db.NewDB(filepath.Join(t.TempDir(), "bookshelf.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return store.NewStore(d.DB)
}

type testEnv struct {
	store   *store.Store
	catalog *fakeCatalog
	service *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := newTestStore(t)
	c := newFakeCatalog(
		&catalog.Doc{Key: "/works/OL1W", Title: "Dune", AuthorName: []string{"Frank Herbert"}},
		&catalog.Doc{Key: "/works/OL2W", Title: "Emma", AuthorName: []string{"Jane Austen"}},
		&catalog.Doc{Key: "/works/OL3W", Title: "Anna Karenina", AuthorName: []string{"Leo Tolstoy"}},
		&catalog.Doc{Key: "/works/OL4W", Title: "Beloved", AuthorName: []string{"Toni Morrison"}},
		&catalog.Doc{Key: "/works/OL5W", Title: "Candide", AuthorName: []string{"Voltaire"}},
		&catalog.Doc{Key: "/works/OL6W", Title: "Good Omens", AuthorName: []string{"Terry Pratchett", "Neil Gaiman"}},
	)
	return &testEnv{store: s, catalog: c, service: NewService(s, NewRegistry(s, c), "en")}
}

func (e *testEnv) user(t *testing.T, name string) *model.Identity {
	t.Helper()
	user, err := e.store.CreateUser(context.Background(), &model.User{Username: name, Email: name + "@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return &model.Identity{UserID: user.ID}
}

func (e *testEnv) add(t *testing.T, p model.Partition, id *model.Identity, key string, status model.Status, otherName string) *model.Entry {
	t.Helper()
	entry, err := e.service.Add(context.Background(), p, id, &model.EntryInput{BookKey: key, Status: &status, OtherName: otherName})
	if err != nil {
		t.Fatalf("Add %s failed: %v", key, err)
	}
	return entry
}

func defaultQuery() *model.ListQuery {
	return &model.ListQuery{Page: 1, Limit: 20}
}

func titles(page *model.ListPage) []string {
	result := make([]string, 0, len(page.Books))
	for _, item := range page.Books {
		result = append(result, item.Title)
	}
	return result
}

func TestUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.List(ctx, model.ShelfPartition, nil, defaultQuery()); err != ErrUnauthorized {
		t.Errorf("List: expected ErrUnauthorized, got %v", err)
	}
	if _, err := env.service.Add(ctx, model.ShelfPartition, nil, &model.EntryInput{BookKey: "OL1W"}); err != ErrUnauthorized {
		t.Errorf("Add: expected ErrUnauthorized, got %v", err)
	}
	if err := env.service.Delete(ctx, model.ShelfPartition, &model.Identity{}, util.GenUUID()); err != ErrUnauthorized {
		t.Errorf("Delete: expected ErrUnauthorized, got %v", err)
	}
	if env.catalog.calls.Load() != 0 {
		t.Error("unauthenticated calls must not reach the catalog")
	}
}

func TestAddLentScenario(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	date := model.NewDate(2024, 1, 5)
	status := model.StatusLent

	entry, err := env.service.Add(context.Background(), model.ShelfPartition, me, &model.EntryInput{
		BookKey:   "/works/OL1W",
		Status:    &status,
		OtherName: "Alice",
		Date:      &date,
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if entry.Book == nil || entry.Book.Key != "OL1W" || entry.Book.Title != "Dune" {
		t.Fatalf("book not populated: %+v", entry.Book)
	}
	if entry.OwnerID != me.UserID || !util.IsUUID(entry.ID) {
		t.Fatalf("unexpected entry %+v", entry)
	}

	page, err := env.service.List(context.Background(), model.ShelfPartition, me, defaultQuery())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Books) != 1 {
		t.Fatalf("expected one book, got %d", len(page.Books))
	}
	item := page.Books[0]
	if item.FullStatus != "Lent to Alice on 2024. 01. 05." || item.OwnerName != "Me" {
		t.Fatalf("unexpected derived fields %q / %q", item.FullStatus, item.OwnerName)
	}
}

func TestAddClearsDetailsForDefault(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	date := model.NewDate(2024, 1, 5)
	status := model.StatusDefault

	entry, err := env.service.Add(context.Background(), model.ShelfPartition, me, &model.EntryInput{
		BookKey: "OL1W", Status: &status, OtherName: "Alice", Date: &date,
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if entry.OtherName != "" || entry.Date != nil {
		t.Fatalf("name and date must be cleared, got %+v", entry)
	}
}

func TestWishlistForcesStatus(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	ctx := context.Background()

	entry := env.add(t, model.WishlistPartition, me, "OL1W", model.StatusBorrowed, "Alice")
	if entry.Status != model.StatusWishlist || entry.OtherName != "" {
		t.Fatalf("wishlist add must force Wishlist and clear the name, got %+v", entry)
	}

	shelf, err := env.service.List(ctx, model.ShelfPartition, me, defaultQuery())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(shelf.Books) != 0 {
		t.Fatalf("wishlist entries must not show on the shelf")
	}
	wishlist, err := env.service.List(ctx, model.WishlistPartition, me, defaultQuery())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(wishlist.Books) != 1 || wishlist.Books[0].FullStatus != "Wishlist" {
		t.Fatalf("unexpected wishlist %+v", wishlist.Books)
	}
}

func TestPagination(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	for i := 1; i <= 5; i++ {
		env.add(t, model.ShelfPartition, me, fmt.Sprintf("OL%dW", i), model.StatusDefault, "")
	}

	tests := []struct {
		page, limit   int
		wantPage      int
		wantLast      int
		wantBookCount int
	}{
		{page: 3, limit: 2, wantPage: 3, wantLast: 3, wantBookCount: 1},
		{page: 1, limit: 5, wantPage: 1, wantLast: 1, wantBookCount: 5},
		{page: 9, limit: 2, wantPage: 3, wantLast: 3, wantBookCount: 1},
		{page: 2, limit: 20, wantPage: 1, wantLast: 1, wantBookCount: 5},
	}
	for _, tt := range tests {
		page, err := env.service.List(context.Background(), model.ShelfPartition, me, &model.ListQuery{Page: tt.page, Limit: tt.limit})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if page.Page != tt.wantPage || page.LastPage != tt.wantLast || len(page.Books) != tt.wantBookCount {
			t.Errorf("page=%d limit=%d: got page %d last %d with %d books", tt.page, tt.limit, page.Page, page.LastPage, len(page.Books))
		}
	}

	page, _ := env.service.List(context.Background(), model.ShelfPartition, me, &model.ListQuery{Page: 3, Limit: 2})
	if page.Books[0].Title != "Candide" {
		t.Fatalf("page 3 should hold the fifth entry, got %q", page.Books[0].Title)
	}
}

func TestPaginateEmpty(t *testing.T) {
	page := paginate(nil, 4, 20)
	if page.Page != 1 || page.LastPage != 1 || page.Books == nil || len(page.Books) != 0 {
		t.Fatalf("unexpected empty page %+v", page)
	}
}

func TestFiltersAreConjunctive(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	env.add(t, model.ShelfPartition, me, "OL1W", model.StatusDefault, "")
	env.add(t, model.ShelfPartition, me, "OL6W", model.StatusBorrowed, "Bobby")
	env.add(t, model.ShelfPartition, me, "OL2W", model.StatusLent, "Alice")

	list := func(q *model.ListQuery) []string {
		t.Helper()
		q.Page, q.Limit = 1, 20
		page, err := env.service.List(context.Background(), model.ShelfPartition, me, q)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		return titles(page)
	}

	if got := list(&model.ListQuery{Author: "GAIMAN"}); len(got) != 1 || got[0] != "Good Omens" {
		t.Errorf("author filter matches any author: %v", got)
	}
	if got := list(&model.ListQuery{Title: "e", Author: "austen"}); len(got) != 1 || got[0] != "Emma" {
		t.Errorf("title and author filters: %v", got)
	}
	if got := list(&model.ListQuery{Title: "dune", Author: "austen"}); len(got) != 0 {
		t.Errorf("non overlapping filters should match nothing: %v", got)
	}
	if got := list(&model.ListQuery{Owner: "me"}); len(got) != 2 {
		t.Errorf("owner filter: %v", got)
	}
	if got := list(&model.ListQuery{Statuses: []model.Status{model.StatusLent, model.StatusBorrowed}}); len(got) != 2 {
		t.Errorf("status filter: %v", got)
	}
}

func TestStatusFilterMatchesSubstring(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	env.add(t, model.ShelfPartition, me, "OL1W", model.StatusBorrowed, "Bobby")
	env.add(t, model.ShelfPartition, me, "OL2W", model.StatusLibraryBorrowed, "")
	env.add(t, model.ShelfPartition, me, "OL3W", model.StatusLent, "Alice")

	q := &model.ListQuery{Statuses: []model.Status{model.StatusBorrowed}, TitleSort: model.SortAsc, Page: 1, Limit: 20}
	page, err := env.service.List(context.Background(), model.ShelfPartition, me, q)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if got := titles(page); len(got) != 2 || got[0] != "Dune" || got[1] != "Emma" {
		t.Fatalf("Borrowed should select Borrowed and LibraryBorrowed, got %v", got)
	}

	q = &model.ListQuery{Statuses: []model.Status{model.StatusWishlist}, Page: 1, Limit: 20}
	page, err = env.service.List(context.Background(), model.ShelfPartition, me, q)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Books) != 0 {
		t.Fatalf("the shelf holds no wishlist entries, got %v", titles(page))
	}
}

func TestWishlistIgnoresShelfFilters(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	env.add(t, model.WishlistPartition, me, "OL1W", model.StatusWishlist, "")

	page, err := env.service.List(context.Background(), model.WishlistPartition, me, &model.ListQuery{
		Statuses: []model.Status{model.StatusLent},
		Owner:    "nobody",
		Page:     1,
		Limit:    20,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Books) != 1 {
		t.Fatalf("status and owner filters must not apply to the wishlist")
	}
}

func TestSortLastPassWins(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	env.add(t, model.ShelfPartition, me, "OL2W", model.StatusBorrowed, "Zoe Smith")
	env.add(t, model.ShelfPartition, me, "OL1W", model.StatusDefault, "")
	env.add(t, model.ShelfPartition, me, "OL3W", model.StatusBorrowed, "Adam Jones")

	list := func(q *model.ListQuery) []string {
		t.Helper()
		q.Page, q.Limit = 1, 20
		page, err := env.service.List(context.Background(), model.ShelfPartition, me, q)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		return titles(page)
	}

	if got := fmt.Sprint(list(&model.ListQuery{TitleSort: model.SortAsc})); got != "[Anna Karenina Dune Emma]" {
		t.Errorf("title asc: %s", got)
	}
	if got := fmt.Sprint(list(&model.ListQuery{TitleSort: model.SortDesc})); got != "[Emma Dune Anna Karenina]" {
		t.Errorf("title desc: %s", got)
	}
	if got := fmt.Sprint(list(&model.ListQuery{OwnerSort: model.SortAsc})); got != "[Anna Karenina Dune Emma]" {
		t.Errorf("owner asc: %s", got)
	}
	if got := fmt.Sprint(list(&model.ListQuery{OwnerSort: model.SortDesc, TitleSort: model.SortAsc})); got != "[Anna Karenina Dune Emma]" {
		t.Errorf("title sort must take priority: %s", got)
	}
}

func TestSortTiesKeepOwnerOrder(t *testing.T) {
	items := []*model.ListItem{
		{ID: "1", Title: "Same", OwnerName: "Bea"},
		{ID: "2", Title: "Same", OwnerName: "Ann"},
		{ID: "3", Title: "Other", OwnerName: "Cid"},
	}
	s := NewService(nil, nil, "en")
	s.sortItems(model.ShelfPartition, items, &model.ListQuery{OwnerSort: model.SortAsc, TitleSort: model.SortAsc})
	var got string
	for _, item := range items {
		got += item.ID
	}
	if got != "321" {
		t.Fatalf("expected order 321, got %s", got)
	}
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	ctx := context.Background()
	entry := env.add(t, model.ShelfPartition, me, "OL1W", model.StatusDefault, "")

	lent := model.StatusLent
	updated, err := env.service.Update(ctx, model.ShelfPartition, me, entry.ID, &model.EntryInput{
		BookKey: "OL2W", Status: &lent, OtherName: "Alice",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Book.Key != "OL2W" || updated.Status != model.StatusLent || updated.OtherName != "Alice" {
		t.Fatalf("unexpected update %+v", updated)
	}

	detail, err := env.service.Get(ctx, model.ShelfPartition, me, entry.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if detail.BookKey != "OL2W" || detail.Title != "Emma" || detail.OtherName != "Alice" {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestUpdateWishlistDemotesToDefault(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	ctx := context.Background()
	entry := env.add(t, model.WishlistPartition, me, "OL1W", model.StatusWishlist, "")

	borrowed := model.StatusBorrowed
	updated, err := env.service.Update(ctx, model.WishlistPartition, me, entry.ID, &model.EntryInput{
		BookKey: "OL1W", Status: &borrowed, OtherName: "Alice",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != model.StatusDefault || updated.OtherName != "" {
		t.Fatalf("expected an owned copy without details, got %+v", updated)
	}
	if _, err := env.service.Get(ctx, model.ShelfPartition, me, entry.ID); err != nil {
		t.Fatalf("entry should now be on the shelf: %v", err)
	}
}

func TestAccessRules(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	other := env.user(t, "stranger")
	ctx := context.Background()
	shelfEntry := env.add(t, model.ShelfPartition, me, "OL1W", model.StatusDefault, "")
	wishEntry := env.add(t, model.WishlistPartition, me, "OL2W", model.StatusWishlist, "")

	if _, err := env.service.Get(ctx, model.ShelfPartition, me, "not-a-uuid"); err != ErrNotFound {
		t.Errorf("malformed id: expected ErrNotFound, got %v", err)
	}
	if _, err := env.service.Get(ctx, model.ShelfPartition, me, util.GenUUID()); err != ErrNotFound {
		t.Errorf("missing id: expected ErrNotFound, got %v", err)
	}
	if _, err := env.service.Get(ctx, model.WishlistPartition, me, shelfEntry.ID); err != ErrNotFound {
		t.Errorf("shelf entry on wishlist route: expected ErrNotFound, got %v", err)
	}
	if _, err := env.service.Get(ctx, model.ShelfPartition, me, wishEntry.ID); err != ErrNotFound {
		t.Errorf("wishlist entry on shelf route: expected ErrNotFound, got %v", err)
	}
	if _, err := env.service.Get(ctx, model.ShelfPartition, other, shelfEntry.ID); err != ErrForbidden {
		t.Errorf("foreign entry: expected ErrForbidden, got %v", err)
	}
	if err := env.service.Delete(ctx, model.ShelfPartition, other, shelfEntry.ID); err != ErrForbidden {
		t.Errorf("foreign delete: expected ErrForbidden, got %v", err)
	}
	status := model.StatusDefault
	if _, err := env.service.Update(ctx, model.ShelfPartition, other, shelfEntry.ID, &model.EntryInput{BookKey: "OL1W", Status: &status}); err != ErrForbidden {
		t.Errorf("foreign update: expected ErrForbidden, got %v", err)
	}
	if ErrForbidden.Status != 401 {
		t.Errorf("forbidden answers 401, got %d", ErrForbidden.Status)
	}
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	ctx := context.Background()
	entry := env.add(t, model.WishlistPartition, me, "OL1W", model.StatusWishlist, "")

	if err := env.service.Delete(ctx, model.WishlistPartition, me, entry.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := env.service.Delete(ctx, model.WishlistPartition, me, entry.ID); err != ErrNotFound {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

// vanishingEntries deletes the row right before the service does, as a
// concurrent request would.
type vanishingEntries struct {
	*store.Store
}

func (v vanishingEntries) DeleteEntry(ctx context.Context, id string, ownerID int32) (int64, error) {
	if _, err := v.Store.DeleteEntry(ctx, id, ownerID); err != nil {
		return 0, err
	}
	return v.Store.DeleteEntry(ctx, id, ownerID)
}

func TestDeleteConflict(t *testing.T) {
	env := newTestEnv(t)
	me := env.user(t, "reader")
	entry := env.add(t, model.ShelfPartition, me, "OL1W", model.StatusDefault, "")

	service := NewService(vanishingEntries{env.store}, env.service.Registry(), "en")
	if err := service.Delete(context.Background(), model.ShelfPartition, me, entry.ID); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUnknownLocaleFallsBack(t *testing.T) {
	s := NewService(nil, nil, "not a locale!")
	if s.locale.String() != "en" {
		t.Fatalf("expected English fallback, got %s", s.locale)
	}
}
