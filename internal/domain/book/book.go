package book

import (
	"errors"
	"time"
)

type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description,omitempty"`
	ISBN        string    `json:"isbn,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// with pointers if optional, it will be nil
type ListBooksFilter struct {
	Author        *string
	Query         *string
	MinPriceCents *int64
	MaxPriceCents *int64
	InStock       bool
	Limit         int
	Offset        int
}

var (
	ErrNotFound          = errors.New("book not found")
	ErrISBNTaken         = errors.New("isbn already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// PriceCents is a pointer so a free book (price 0) still satisfies required.
type CreateBookRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Author      string `json:"author" binding:"required,min=1,max=120"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	ISBN        string `json:"isbn" binding:"omitempty,min=10,max=17"`
	PriceCents  *int64 `json:"priceCents" binding:"required,gte=0"`
	Stock       int    `json:"stock" binding:"omitempty,min=0"`
}

// a full update payload, might switch to a patch which optionally provides means for partial updates.
type UpdateBookRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Author      string `json:"author" binding:"required,min=1,max=120"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	ISBN        string `json:"isbn" binding:"omitempty,min=10,max=17"`
	PriceCents  *int64 `json:"priceCents" binding:"required,gte=0"`
	Stock       int    `json:"stock" binding:"omitempty,min=0"`
}

type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}
