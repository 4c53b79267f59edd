package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Reinhardt254/online-bookstore/internal/domain/book"
	"github.com/Reinhardt254/online-bookstore/internal/http/handlers"
	"github.com/Reinhardt254/online-bookstore/internal/utils"
	"github.com/gin-gonic/gin"
)

type fakeBookStore struct {
	createFn      func(ctx context.Context, req book.CreateBookRequest) (book.Book, error)
	getByIDFn     func(ctx context.Context, id int64) (book.Book, error)
	listFn        func(ctx context.Context, f book.ListBooksFilter) ([]book.Book, int, error)
	listCursorFn  func(ctx context.Context, f book.ListBooksFilter, afterTitle string, afterID int64) ([]book.Book, *string, bool, error)
	updateFn      func(ctx context.Context, id int64, req book.UpdateBookRequest) (book.Book, error)
	adjustStockFn func(ctx context.Context, id int64, delta int) (book.Book, error)
	deleteFn      func(ctx context.Context, id int64) error
}

func (f *fakeBookStore) Create(ctx context.Context, req book.CreateBookRequest) (book.Book, error) {
	return f.createFn(ctx, req)
}

func (f *fakeBookStore) GetByID(ctx context.Context, id int64) (book.Book, error) {
	return f.getByIDFn(ctx, id)
}

func (f *fakeBookStore) List(ctx context.Context, fl book.ListBooksFilter) ([]book.Book, int, error) {
	return f.listFn(ctx, fl)
}

func (f *fakeBookStore) ListCursor(ctx context.Context, fl book.ListBooksFilter, afterTitle string, afterID int64) ([]book.Book, *string, bool, error) {
	return f.listCursorFn(ctx, fl, afterTitle, afterID)
}

func (f *fakeBookStore) Update(ctx context.Context, id int64, req book.UpdateBookRequest) (book.Book, error) {
	return f.updateFn(ctx, id, req)
}

func (f *fakeBookStore) AdjustStock(ctx context.Context, id int64, delta int) (book.Book, error) {
	return f.adjustStockFn(ctx, id, delta)
}

func (f *fakeBookStore) Delete(ctx context.Context, id int64) error {
	return f.deleteFn(ctx, id)
}

func sampleBook(id int64) book.Book {
	return book.Book{
		ID:         id,
		Title:      "The Go Programming Language",
		Author:     "Alan Donovan",
		PriceCents: 3499,
		Stock:      5,
	}
}

func newBooksRouter(store *fakeBookStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := handlers.NewBooksHandler(store, nil, time.Minute)

	r := gin.New()
	r.GET("/books", h.ListBooks)
	r.GET("/books/:id", h.GetBookByID)
	r.POST("/books", h.CreateBook)
	r.PUT("/books/:id", h.UpdateBook)
	r.PATCH("/books/:id/stock", h.AdjustStock)
	r.DELETE("/books/:id", h.DeleteBook)

	return r
}

func TestCreateBookEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		create     func(ctx context.Context, req book.CreateBookRequest) (book.Book, error)
		wantStatus int
		wantCode   string
	}{
		{
			name: "created",
			body: `{"title":"The Go Programming Language","author":"Alan Donovan","priceCents":3499,"stock":5}`,
			create: func(_ context.Context, req book.CreateBookRequest) (book.Book, error) {
				if req.Title != "The Go Programming Language" {
					t.Errorf("unexpected title %q", req.Title)
				}
				return sampleBook(1), nil
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "free_book_price_zero",
			body: `{"title":"Public Domain Reader","author":"Various","priceCents":0}`,
			create: func(_ context.Context, req book.CreateBookRequest) (book.Book, error) {
				if req.PriceCents == nil || *req.PriceCents != 0 {
					t.Errorf("expected price 0, got %v", req.PriceCents)
				}
				b := sampleBook(2)
				b.PriceCents = 0
				return b, nil
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing_required_fields",
			body:       `{"title":"go"}`,
			create:     nil,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "negative_price",
			body:       `{"title":"go","author":"x","priceCents":-1}`,
			create:     nil,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name: "duplicate_isbn",
			body: `{"title":"go","author":"x","priceCents":100,"isbn":"978-0134190440"}`,
			create: func(context.Context, book.CreateBookRequest) (book.Book, error) {
				return book.Book{}, book.ErrISBNTaken
			},
			wantStatus: http.StatusConflict,
			wantCode:   "isbn_exists",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := newBooksRouter(&fakeBookStore{createFn: tt.create})

			w := doJSON(t, r, http.MethodPost, "/books", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode != "" && !strings.Contains(w.Body.String(), tt.wantCode) {
				t.Fatalf("expected error code %q in body %s", tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestGetBookEndpoint(t *testing.T) {
	store := &fakeBookStore{
		getByIDFn: func(_ context.Context, id int64) (book.Book, error) {
			if id == 1 {
				return sampleBook(1), nil
			}
			return book.Book{}, book.ErrNotFound
		},
	}
	r := newBooksRouter(store)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books/1", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}

		if w.Header().Get("ETag") == "" {
			t.Fatal("expected an ETag header on book reads")
		}

		var got book.Book
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.ID != 1 || got.Stock != 5 {
			t.Fatalf("unexpected book: %+v", got)
		}
	})

	t.Run("conditional_get", func(t *testing.T) {
		first := httptest.NewRecorder()
		r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/books/1", nil))

		req := httptest.NewRequest(http.MethodGet, "/books/1", nil)
		req.Header.Set("If-None-Match", first.Header().Get("ETag"))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotModified {
			t.Fatalf("got status %d, want 304", w.Code)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books/999", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d, want 404", w.Code)
		}
	})

	t.Run("invalid_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books/abc", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want 400", w.Code)
		}
	})
}

func TestListBooksEndpoint(t *testing.T) {
	var gotFilter book.ListBooksFilter

	store := &fakeBookStore{
		listFn: func(_ context.Context, f book.ListBooksFilter) ([]book.Book, int, error) {
			gotFilter = f
			return []book.Book{sampleBook(1), sampleBook(2)}, 2, nil
		},
	}
	r := newBooksRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/books?limit=10&author=Donovan&q=go&minPrice=100&maxPrice=5000&inStock=true", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if gotFilter.Limit != 10 {
		t.Fatalf("limit not forwarded: %+v", gotFilter)
	}
	if gotFilter.Author == nil || *gotFilter.Author != "Donovan" {
		t.Fatalf("author not forwarded: %+v", gotFilter)
	}
	if gotFilter.Query == nil || *gotFilter.Query != "go" {
		t.Fatalf("query not forwarded: %+v", gotFilter)
	}
	if gotFilter.MinPriceCents == nil || *gotFilter.MinPriceCents != 100 {
		t.Fatalf("minPrice not forwarded: %+v", gotFilter)
	}
	if gotFilter.MaxPriceCents == nil || *gotFilter.MaxPriceCents != 5000 {
		t.Fatalf("maxPrice not forwarded: %+v", gotFilter)
	}
	if !gotFilter.InStock {
		t.Fatalf("inStock not forwarded: %+v", gotFilter)
	}

	var page struct {
		Items []book.Book `json:"items"`
		Total int         `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(page.Items) != 2 || page.Total != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestListBooksEndpointServesCachedPage(t *testing.T) {
	calls := 0

	store := &fakeBookStore{
		listFn: func(context.Context, book.ListBooksFilter) ([]book.Book, int, error) {
			calls++
			return []book.Book{sampleBook(1)}, 1, nil
		},
	}
	r := newBooksRouter(store)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books?limit=10", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d", w.Code)
		}
	}

	if calls != 1 {
		t.Fatalf("expected a single repo call for identical list queries, got %d", calls)
	}
}

func TestListBooksEndpointClampsLimit(t *testing.T) {
	store := &fakeBookStore{
		listFn: func(_ context.Context, f book.ListBooksFilter) ([]book.Book, int, error) {
			if f.Limit != 100 {
				t.Errorf("limit not clamped: %d", f.Limit)
			}
			return nil, 0, nil
		},
	}
	r := newBooksRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books?limit=5000", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
}

func encodeTestCursor(t *testing.T) string {
	t.Helper()

	c, err := utils.EncodeBookCursor("The Go Programming Language", 2)
	if err != nil {
		t.Fatalf("encode cursor: %v", err)
	}
	return c
}

func TestListBooksEndpointCursor(t *testing.T) {
	next := "opaque-next"

	store := &fakeBookStore{
		listCursorFn: func(_ context.Context, _ book.ListBooksFilter, afterTitle string, afterID int64) ([]book.Book, *string, bool, error) {
			if afterTitle == "" || afterID == 0 {
				t.Errorf("cursor not decoded: title=%q id=%d", afterTitle, afterID)
			}
			return []book.Book{sampleBook(3)}, &next, true, nil
		},
	}
	r := newBooksRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books?cursor="+encodeTestCursor(t), nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var page struct {
		Items      []book.Book `json:"items"`
		NextCursor *string     `json:"nextCursor"`
		HasMore    bool        `json:"hasMore"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !page.HasMore || page.NextCursor == nil || *page.NextCursor != next {
		t.Fatalf("unexpected cursor page: %+v", page)
	}
}

func TestListBooksEndpointRejectsBadCursor(t *testing.T) {
	r := newBooksRouter(&fakeBookStore{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books?cursor=%21%21not-base64", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
}

func TestAdjustStockEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		adjust     func(ctx context.Context, id int64, delta int) (book.Book, error)
		wantStatus int
		wantCode   string
	}{
		{
			name: "decrement",
			body: `{"delta":-2}`,
			adjust: func(_ context.Context, id int64, delta int) (book.Book, error) {
				if delta != -2 {
					t.Errorf("unexpected delta %d", delta)
				}
				b := sampleBook(id)
				b.Stock = 3
				return b, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "insufficient_stock",
			body: `{"delta":-100}`,
			adjust: func(context.Context, int64, int) (book.Book, error) {
				return book.Book{}, book.ErrInsufficientStock
			},
			wantStatus: http.StatusConflict,
			wantCode:   "insufficient_stock",
		},
		{
			name: "unknown_book",
			body: `{"delta":1}`,
			adjust: func(context.Context, int64, int) (book.Book, error) {
				return book.Book{}, book.ErrNotFound
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "missing_delta",
			body:       `{}`,
			adjust:     nil,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := newBooksRouter(&fakeBookStore{adjustStockFn: tt.adjust})

			w := doJSON(t, r, http.MethodPatch, "/books/1/stock", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode != "" && !strings.Contains(w.Body.String(), tt.wantCode) {
				t.Fatalf("expected error code %q in body %s", tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestUpdateBookEndpoint(t *testing.T) {
	store := &fakeBookStore{
		updateFn: func(_ context.Context, id int64, req book.UpdateBookRequest) (book.Book, error) {
			if id != 1 {
				return book.Book{}, book.ErrNotFound
			}
			b := sampleBook(1)
			b.Title = req.Title
			return b, nil
		},
	}
	r := newBooksRouter(store)

	body := `{"title":"Updated Title","author":"Alan Donovan","priceCents":3999}`

	w := doJSON(t, r, http.MethodPut, "/books/1", body)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPut, "/books/42", body)
	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}

func TestDeleteBookEndpoint(t *testing.T) {
	store := &fakeBookStore{
		deleteFn: func(_ context.Context, id int64) error {
			if id != 1 {
				return book.ErrNotFound
			}
			return nil
		},
	}
	r := newBooksRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/books/1", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want 204", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/books/42", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}
