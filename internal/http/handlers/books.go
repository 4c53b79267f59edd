package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Reinhardt254/online-bookstore/internal/cache"
	"github.com/Reinhardt254/online-bookstore/internal/config"
	"github.com/Reinhardt254/online-bookstore/internal/domain/book"
	"github.com/Reinhardt254/online-bookstore/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type BookStore interface {
	Create(ctx context.Context, req book.CreateBookRequest) (book.Book, error)
	GetByID(ctx context.Context, id int64) (book.Book, error)
	List(ctx context.Context, f book.ListBooksFilter) ([]book.Book, int, error)
	ListCursor(ctx context.Context, f book.ListBooksFilter, afterTitle string, afterID int64) ([]book.Book, *string, bool, error)
	Update(ctx context.Context, id int64, req book.UpdateBookRequest) (book.Book, error)
	AdjustStock(ctx context.Context, id int64, delta int) (book.Book, error)
	Delete(ctx context.Context, id int64) error
}

// RecordCache is the per-book redis cache; nil disables it.
type RecordCache interface {
	Get(ctx context.Context, id int64) (book.Book, bool)
	Set(ctx context.Context, b book.Book)
	Delete(ctx context.Context, id int64)
}

type listPage struct {
	Items []book.Book `json:"items"`
	Total int         `json:"total"`
}

type BooksHandler struct {
	repo      BookStore
	records   RecordCache
	listCache *cache.Cache[listPage]
}

func NewBooksHandler(repo BookStore, records RecordCache, listTTL time.Duration) *BooksHandler {
	return &BooksHandler{
		repo:      repo,
		records:   records,
		listCache: cache.New[listPage](listTTL),
	}
}

func (h *BooksHandler) CreateBook(ctx *gin.Context) {
	var req book.CreateBookRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, req)

	if err != nil {
		if errors.Is(err, book.ErrISBNTaken) {
			RespondConflict(ctx, "isbn_exists", "A book with that ISBN already exists.")
			return
		}

		RespondInternal(ctx, "Could not create book")
		return
	}

	h.listCache.Clear()

	ctx.JSON(http.StatusCreated, created)
}

// parseListFilter maps query parameters onto the repo filter.
func parseListFilter(ctx *gin.Context) book.ListBooksFilter {
	f := book.ListBooksFilter{Limit: defaultListLimit}

	if v, err := strconv.Atoi(ctx.Query("limit")); err == nil && v > 0 {
		f.Limit = v
	}

	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}

	if v, err := strconv.Atoi(ctx.Query("offset")); err == nil && v > 0 {
		f.Offset = v
	}

	if v := ctx.Query("author"); v != "" {
		f.Author = &v
	}

	if v := ctx.Query("q"); v != "" {
		f.Query = &v
	}

	if v, err := strconv.ParseInt(ctx.Query("minPrice"), 10, 64); err == nil {
		f.MinPriceCents = &v
	}

	if v, err := strconv.ParseInt(ctx.Query("maxPrice"), 10, 64); err == nil {
		f.MaxPriceCents = &v
	}

	f.InStock = ctx.Query("inStock") == "true"

	return f
}

func (h *BooksHandler) ListBooks(ctx *gin.Context) {
	f := parseListFilter(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// cursor-based paging bypasses the offset path and the list cache
	if rawCursor := ctx.Query("cursor"); rawCursor != "" {
		c, err := utils.DecodeBookCursor(rawCursor)

		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}

		items, next, hasMore, err := h.repo.ListCursor(cctx, f, c.Title, c.ID)

		if err != nil {
			RespondInternal(ctx, "Could not list books")
			return
		}

		ctx.JSON(http.StatusOK, gin.H{
			"items":      items,
			"nextCursor": next,
			"hasMore":    hasMore,
		})
		return
	}

	key := utils.BuildBooksListCacheKey(f.Limit, f.Offset, f.Author, f.Query, f.MinPriceCents, f.MaxPriceCents, f.InStock)

	if page, ok := h.listCache.Get(key); ok {
		ctx.JSON(http.StatusOK, page)
		return
	}

	items, total, err := h.repo.List(cctx, f)

	if err != nil {
		RespondInternal(ctx, "Could not list books")
		return
	}

	page := listPage{Items: items, Total: total}
	h.listCache.Set(key, page)

	ctx.JSON(http.StatusOK, page)
}

func parseBookID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)

	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "Invalid book id", nil)
		return 0, false
	}

	return id, true
}

func (h *BooksHandler) GetBookByID(ctx *gin.Context) {
	id, ok := parseBookID(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if h.records != nil {
		if b, ok := h.records.Get(cctx, id); ok {
			RespondJSONWithETag(ctx, http.StatusOK, b)
			return
		}
	}

	b, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			RespondNotFound(ctx, "Book not found")
			return
		}
		RespondInternal(ctx, "Could not fetch book")
		return
	}

	if h.records != nil {
		h.records.Set(cctx, b)
	}

	RespondJSONWithETag(ctx, http.StatusOK, b)
}

func (h *BooksHandler) UpdateBook(ctx *gin.Context) {
	id, ok := parseBookID(ctx)

	if !ok {
		return
	}

	var req book.UpdateBookRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.repo.Update(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, book.ErrNotFound):
			RespondNotFound(ctx, "Book not found")
		case errors.Is(err, book.ErrISBNTaken):
			RespondConflict(ctx, "isbn_exists", "A book with that ISBN already exists.")
		default:
			RespondInternal(ctx, "Could not update book")
		}
		return
	}

	h.invalidate(cctx, id)

	ctx.JSON(http.StatusOK, updated)
}

func (h *BooksHandler) AdjustStock(ctx *gin.Context) {
	id, ok := parseBookID(ctx)

	if !ok {
		return
	}

	var req book.AdjustStockRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.repo.AdjustStock(cctx, id, req.Delta)

	if err != nil {
		switch {
		case errors.Is(err, book.ErrNotFound):
			RespondNotFound(ctx, "Book not found")
		case errors.Is(err, book.ErrInsufficientStock):
			RespondConflict(ctx, "insufficient_stock", "Not enough stock for that adjustment.")
		default:
			RespondInternal(ctx, "Could not adjust stock")
		}
		return
	}

	h.invalidate(cctx, id)

	ctx.JSON(http.StatusOK, updated)
}

func (h *BooksHandler) DeleteBook(ctx *gin.Context) {
	id, ok := parseBookID(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			RespondNotFound(ctx, "Book not found")
			return
		}
		RespondInternal(ctx, "Could not delete book")
		return
	}

	h.invalidate(cctx, id)

	ctx.Status(http.StatusNoContent)
}

func (h *BooksHandler) invalidate(ctx context.Context, id int64) {
	h.listCache.Clear()

	if h.records != nil {
		h.records.Delete(ctx, id)
	}
}
