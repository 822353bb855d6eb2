package models

type Course struct {
	ID            int      `json:"id" yaml:"id"`
	Title         string   `json:"title" yaml:"title"`
	Instructor    string   `json:"instructor" yaml:"instructor"`
	Description   string   `json:"description" yaml:"description"`
	Price         float64  `json:"price" yaml:"price"`
	OriginalPrice float64  `json:"originalPrice,omitempty" yaml:"originalPrice,omitempty"`
	Rating        float64  `json:"rating" yaml:"rating"`
	Students      int      `json:"students" yaml:"students"`
	Duration      string   `json:"duration" yaml:"duration"`
	Category      string   `json:"category" yaml:"category"`
	Icon          string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Badge         string   `json:"badge,omitempty" yaml:"badge,omitempty"`
	CourseLink    string   `json:"courseLink,omitempty" yaml:"courseLink,omitempty"`
	Features      []string `json:"features" yaml:"features"`
}

// CartItem is the course reference kept in the cart.
type CartItem struct {
	CourseID int     `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
}

func (c CartItem) RecordID() string { return itoa(c.CourseID) }

func CartItemFor(c Course) CartItem {
	return CartItem{CourseID: c.ID, Title: c.Title, Price: c.Price}
}
