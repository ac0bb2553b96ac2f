package models

// Category is a fixed, read-only classification for todos.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Categories is the built-in category catalogue.
var Categories = []Category{
	{ID: "work", Name: "Work", Color: "#EF4444"},
	{ID: "personal", Name: "Personal", Color: "#3B82F6"},
	{ID: "shopping", Name: "Shopping", Color: "#10B981"},
	{ID: "health", Name: "Health", Color: "#8B5CF6"},
	{ID: "finance", Name: "Finance", Color: "#F59E0B"},
}

// ValidCategory reports whether id names a built-in category.
func ValidCategory(id string) bool {
	for _, c := range Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}
