package postgres

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/Reinhardt254/online-bookstore/internal/domain/book"
	"github.com/Reinhardt254/online-bookstore/internal/observability"
	"github.com/Reinhardt254/online-bookstore/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// psql builds queries with $n placeholders for the pgx driver.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const bookColumns = `id, title, author, description, isbn, price_cents, stock, created_at, updated_at`

type BooksRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Prom
}

// constructor function

func NewBooksRepo(pool *pgxpool.Pool, metrics *observability.Prom) *BooksRepo {
	return &BooksRepo{
		pool:    pool,
		metrics: metrics,
	}
}

func (r *BooksRepo) observe(op string, fn func() error) error {
	if r.metrics == nil {
		return fn()
	}

	return r.metrics.ObserveDB(op, fn)
}

func scanBook(row pgx.Row) (book.Book, error) {
	var b book.Book
	var description, isbn *string

	err := row.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&description,
		&isbn,
		&b.PriceCents,
		&b.Stock,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return book.Book{}, book.ErrNotFound
		}

		return book.Book{}, err
	}

	if description != nil {
		b.Description = *description
	}

	if isbn != nil {
		b.ISBN = *isbn
	}

	return b, nil
}

func (r *BooksRepo) Create(ctx context.Context, req book.CreateBookRequest) (book.Book, error) {
	var b book.Book

	err := r.observe("books.create", func() error {
		var scanErr error
		b, scanErr = scanBook(r.pool.QueryRow(
			ctx,
			`INSERT INTO books (title, author, description, isbn, price_cents, stock)
			 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
			 RETURNING `+bookColumns,
			req.Title, req.Author, req.Description, req.ISBN, *req.PriceCents, req.Stock,
		))
		return scanErr
	})

	if err != nil {
		if uniqueViolationOn(err, "books_isbn_key") {
			return book.Book{}, book.ErrISBNTaken
		}

		return book.Book{}, err
	}

	return b, nil
}

// filterConditions translates the optional filters into WHERE clauses.
func filterConditions(qb sq.SelectBuilder, f book.ListBooksFilter) sq.SelectBuilder {
	if f.Author != nil {
		qb = qb.Where(sq.Eq{"author": *f.Author})
	}

	if f.Query != nil {
		pattern := "%" + *f.Query + "%"
		qb = qb.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"author": pattern},
		})
	}

	if f.MinPriceCents != nil {
		qb = qb.Where(sq.GtOrEq{"price_cents": *f.MinPriceCents})
	}

	if f.MaxPriceCents != nil {
		qb = qb.Where(sq.LtOrEq{"price_cents": *f.MaxPriceCents})
	}

	if f.InStock {
		qb = qb.Where(sq.Gt{"stock": 0})
	}

	return qb
}

func (r *BooksRepo) List(ctx context.Context, f book.ListBooksFilter) ([]book.Book, int, error) {
	qb := psql.
		Select(
			"id", "title", "author", "description", "isbn", "price_cents", "stock",
			"created_at", "updated_at",
			"COUNT(*) OVER() AS total",
		).
		From("books")

	qb = filterConditions(qb, f)

	// stable ordering for pagination
	qb = qb.
		OrderBy("title ASC", "id ASC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))

	query, args, err := qb.ToSql()

	if err != nil {
		return nil, 0, err
	}

	output := make([]book.Book, 0, f.Limit)
	total := 0

	err = r.observe("books.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var b book.Book
			var description, isbn *string
			var t int

			err = rows.Scan(&b.ID, &b.Title, &b.Author, &description, &isbn, &b.PriceCents, &b.Stock, &b.CreatedAt, &b.UpdatedAt, &t)

			if err != nil {
				return err
			}

			if description != nil {
				b.Description = *description
			}

			if isbn != nil {
				b.ISBN = *isbn
			}

			total = t
			output = append(output, b)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

// ListCursor pages with a (title, id) keyset instead of an offset. It returns
// the next opaque cursor and whether more rows exist past it.
func (r *BooksRepo) ListCursor(ctx context.Context, f book.ListBooksFilter, afterTitle string, afterID int64) ([]book.Book, *string, bool, error) {
	qb := psql.
		Select("id", "title", "author", "description", "isbn", "price_cents", "stock", "created_at", "updated_at").
		From("books")

	qb = filterConditions(qb, f)

	if afterID != 0 {
		qb = qb.Where(sq.Expr("(title, id) > (?, ?)", afterTitle, afterID))
	}

	// fetch one extra row to know whether another page exists
	qb = qb.
		OrderBy("title ASC", "id ASC").
		Limit(uint64(f.Limit + 1))

	query, args, err := qb.ToSql()

	if err != nil {
		return nil, nil, false, err
	}

	output := make([]book.Book, 0, f.Limit+1)

	err = r.observe("books.list_cursor", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var b book.Book
			var description, isbn *string

			err = rows.Scan(&b.ID, &b.Title, &b.Author, &description, &isbn, &b.PriceCents, &b.Stock, &b.CreatedAt, &b.UpdatedAt)

			if err != nil {
				return err
			}

			if description != nil {
				b.Description = *description
			}

			if isbn != nil {
				b.ISBN = *isbn
			}

			output = append(output, b)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, nil, false, err
	}

	hasMore := len(output) > f.Limit

	if hasMore {
		output = output[:f.Limit]
	}

	var next *string

	if hasMore && len(output) > 0 {
		last := output[len(output)-1]
		encoded, err := utils.EncodeBookCursor(last.Title, last.ID)

		if err != nil {
			return nil, nil, false, err
		}

		next = &encoded
	}

	return output, next, hasMore, nil
}

func (r *BooksRepo) GetByID(ctx context.Context, id int64) (book.Book, error) {
	var b book.Book

	err := r.observe("books.get_by_id", func() error {
		var scanErr error
		b, scanErr = scanBook(r.pool.QueryRow(
			ctx,
			`SELECT `+bookColumns+` FROM books WHERE id = $1`,
			id,
		))
		return scanErr
	})

	return b, err
}

func (r *BooksRepo) Update(ctx context.Context, id int64, req book.UpdateBookRequest) (book.Book, error) {
	var b book.Book

	err := r.observe("books.update", func() error {
		var scanErr error
		b, scanErr = scanBook(r.pool.QueryRow(
			ctx,
			`UPDATE books
				SET title = $2,
						author = $3,
						description = NULLIF($4, ''),
						isbn = NULLIF($5, ''),
						price_cents = $6,
						stock = $7,
						updated_at = NOW()
			WHERE id = $1
			RETURNING `+bookColumns,
			id, req.Title, req.Author, req.Description, req.ISBN, *req.PriceCents, req.Stock,
		))
		return scanErr
	})

	if err != nil {
		if uniqueViolationOn(err, "books_isbn_key") {
			return book.Book{}, book.ErrISBNTaken
		}

		return book.Book{}, err
	}

	return b, nil
}

// AdjustStock applies a relative stock change. The guard in the WHERE clause
// keeps stock from going negative even under concurrent adjustments.
func (r *BooksRepo) AdjustStock(ctx context.Context, id int64, delta int) (book.Book, error) {
	var b book.Book

	err := r.observe("books.adjust_stock", func() error {
		var scanErr error
		b, scanErr = scanBook(r.pool.QueryRow(
			ctx,
			`UPDATE books
				SET stock = stock + $2,
						updated_at = NOW()
			WHERE id = $1 AND stock + $2 >= 0
			RETURNING `+bookColumns,
			id, delta,
		))
		return scanErr
	})

	if err == nil {
		return b, nil
	}

	if !errors.Is(err, book.ErrNotFound) {
		return book.Book{}, err
	}

	// No row matched: either the book does not exist or the delta would have
	// driven stock negative. Disambiguate with a plain lookup.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return book.Book{}, getErr
	}

	return book.Book{}, book.ErrInsufficientStock
}

func (r *BooksRepo) Delete(ctx context.Context, id int64) error {
	return r.observe("books.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)

		if err != nil {
			return err
		}

		// if no rows were deleted as a result return a not found error
		if tag.RowsAffected() == 0 {
			return book.ErrNotFound
		}

		return nil
	})
}
