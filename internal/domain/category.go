package domain

// Category groups tickets and technicians by support area.
type Category struct {
	ID     int64
	Name   string
	Active bool
}

// Subcategory refines a category.
type Subcategory struct {
	ID         int64
	CategoryID int64
	Name       string
	Active     bool
}
