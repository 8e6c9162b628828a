package model

// Partition splits a collection into the shelf (everything but wishlist
// entries) and the wishlist. Each route is bound to exactly one partition.
type Partition struct {
	Name     string
	Wishlist bool
}

var (
	ShelfPartition    = Partition{Name: "shelf"}
	WishlistPartition = Partition{Name: "wishlist", Wishlist: true}
)

func (p Partition) Contains(s Status) bool {
	return (s == StatusWishlist) == p.Wishlist
}

// AllowedStatuses are the statuses an entry may be created with through this
// partition.
func (p Partition) AllowedStatuses() []Status {
	var allowed []Status
	for _, s := range Statuses() {
		if p.Contains(s) {
			allowed = append(allowed, s)
		}
	}
	return allowed
}

func (p Partition) String() string {
	return p.Name
}
