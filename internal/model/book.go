package model

// Book is the shared registry record for a catalog work. Key is stored
// without the "/works/" prefix.
type Book struct {
	ID     int32    `json:"id"`
	Key    string   `json:"key"`
	Title  string   `json:"title"`
	Author []string `json:"author"`

	CreatedTs int64 `json:"-"`
}

type FindBook struct {
	ID  *int32
	Key *string
}

// Entry is one copy of a book in a user's collection.
type Entry struct {
	ID        string `json:"id"`
	OwnerID   int32  `json:"owner"`
	BookID    int32  `json:"-"`
	Book      *Book  `json:"book"`
	Status    Status `json:"status"`
	OtherName string `json:"other_name,omitempty"`
	Date      *Date  `json:"date,omitempty"`

	CreatedTs int64 `json:"created_ts"`
	UpdatedTs int64 `json:"updated_ts"`
}

// Normalize drops the name and date for statuses that do not carry them.
func (e *Entry) Normalize() {
	if !e.Status.HasDetails() {
		e.OtherName = ""
		e.Date = nil
	}
}

func (e *Entry) OwnerName() string {
	return e.Status.OwnerName(e.OtherName)
}

func (e *Entry) FullStatus() string {
	return e.Status.FullStatus(e.OtherName, e.Date)
}

type FindEntry struct {
	ID       *string
	OwnerID  *int32
	BookID   *int32
	Wishlist *bool
}

// ListItem is the flattened entry returned by listings.
type ListItem struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Author     []string `json:"author"`
	Status     Status   `json:"status"`
	FullStatus string   `json:"full_status"`
	OwnerName  string   `json:"owner_name"`
}

func NewListItem(e *Entry) *ListItem {
	item := &ListItem{
		ID:         e.ID,
		Status:     e.Status,
		FullStatus: e.FullStatus(),
		OwnerName:  e.OwnerName(),
		Author:     []string{},
	}
	if e.Book != nil {
		item.Title = e.Book.Title
		if e.Book.Author != nil {
			item.Author = e.Book.Author
		}
	}
	return item
}

// EntryDetail is the single entry view used by the edit forms.
type EntryDetail struct {
	ID        string   `json:"id"`
	Status    Status   `json:"status"`
	BookKey   string   `json:"book_key"`
	Title     string   `json:"title"`
	Author    []string `json:"author"`
	OtherName string   `json:"other_name,omitempty"`
	Date      *Date    `json:"date,omitempty"`
}

func NewEntryDetail(e *Entry) *EntryDetail {
	detail := &EntryDetail{
		ID:        e.ID,
		Status:    e.Status,
		OtherName: e.OtherName,
		Date:      e.Date,
		Author:    []string{},
	}
	if e.Book != nil {
		detail.BookKey = e.Book.Key
		detail.Title = e.Book.Title
		if e.Book.Author != nil {
			detail.Author = e.Book.Author
		}
	}
	return detail
}

// EntryRequest is the body of add and update calls.
type EntryRequest struct {
	BookKey   string  `json:"book_key" validate:"required"`
	Status    *string `json:"status" validate:"omitempty,status"`
	OtherName *string `json:"other_name" validate:"omitempty,othername"`
	Date      *string `json:"date" validate:"omitempty,bookdate"`
}

// EntryInput is a validated EntryRequest.
type EntryInput struct {
	BookKey string
	// Status is nil when the request did not carry one.
	Status    *Status
	OtherName string
	Date      *Date
}

type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListQuery holds the validated filters, sorting and paging of a listing.
type ListQuery struct {
	Statuses  []Status
	Owner     string
	Title     string
	Author    string
	OwnerSort SortOrder
	TitleSort SortOrder
	Page      int
	Limit     int
}

type ListPage struct {
	Books    []*ListItem `json:"books"`
	Page     int         `json:"page"`
	LastPage int         `json:"last_page"`
}
