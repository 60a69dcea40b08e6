package domain

// PageSlice is one page of a keyset listing.
// NextCursor is empty exactly when HasNext is false.
type PageSlice[T any] struct {
	Items      []T
	NextCursor string
	HasNext    bool
}

// NewPageSlice derives HasNext from the presence of a next cursor.
func NewPageSlice[T any](items []T, nextCursor string) PageSlice[T] {
	if items == nil {
		items = []T{}
	}
	return PageSlice[T]{
		Items:      items,
		NextCursor: nextCursor,
		HasNext:    nextCursor != "",
	}
}

// EmptyPage is the terminal page of a listing.
func EmptyPage[T any]() PageSlice[T] {
	return NewPageSlice[T](nil, "")
}
