package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

type BookCursor struct {
	Title string `json:"title"`
	ID    int64  `json:"id"`
}

func EncodeBookCursor(title string, id int64) (string, error) {
	b, err := json.Marshal(BookCursor{Title: title, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeBookCursor(cursor string) (BookCursor, error) {
	if cursor == "" {
		return BookCursor{}, errors.New("empty cursor")
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return BookCursor{}, err
	}
	var c BookCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return BookCursor{}, err
	}
	if c.ID == 0 || c.Title == "" {
		return BookCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}
