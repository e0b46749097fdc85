package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"readinglog/internal/lookup"
	"readinglog/internal/query"
	"readinglog/internal/response"
	"readinglog/internal/storage/records"
	"readinglog/internal/types"
)

const maxBodyBytes = 1 << 20

type searchResponse struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type updateRequest struct {
	Isbn13 string `json:"isbn13" validate:"required"`
	types.RecordPatch
}

type deleteRequest struct {
	Isbn13 string `json:"isbn13" validate:"required"`
}

func Handler(store *records.Store, searcher lookup.Searcher, rr *response.Responder) http.Handler {
	r := chi.NewRouter()

	r.Get("/search_book", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		isbn := strings.TrimSpace(q.Get("isbn"))
		title := strings.TrimSpace(q.Get("title"))

		switch {
		case isbn != "":
			book, err := searcher.SearchByISBN(r.Context(), isbn)
			if err != nil {
				rr.RespondError(w, r.Context(), err)
				return
			}
			if book == nil {
				rr.RespondError(w, r.Context(), types.NotFound("no book found for ISBN %s", isbn))
				return
			}

			rr.SendJson(w, r.Context(), searchResponse{Type: "single", Data: book})
		case title != "":
			books, err := searcher.SearchByTitle(r.Context(), title)
			if err != nil {
				rr.RespondError(w, r.Context(), err)
				return
			}
			if len(books) == 0 {
				rr.RespondError(w, r.Context(), types.NotFound("no book found for title %q", title))
				return
			}

			rr.SendJson(w, r.Context(), searchResponse{Type: "multiple", Data: books})
		default:
			rr.RespondError(w, r.Context(), types.InvalidArgument("isbn or title query parameter is required"))
		}
	})

	r.Get("/get_books", func(w http.ResponseWriter, r *http.Request) {
		res, err := store.FetchAll(r.Context(), query.ParseRequest(r.URL.Query()))
		if err != nil {
			rr.RespondError(w, r.Context(), err)
			return
		}

		rr.SendJson(w, r.Context(), res)
	})

	r.Post("/save_book", func(w http.ResponseWriter, r *http.Request) {
		var rec types.ReadingRecord
		if err := decodeBody(r, &rec); err != nil {
			rr.RespondError(w, r.Context(), err)
			return
		}

		saved, err := store.Create(r.Context(), rec)
		if err != nil {
			rr.RespondError(w, r.Context(), err)
			return
		}

		rr.SendJsonStatus(w, r.Context(), http.StatusCreated, struct {
			Message string              `json:"message"`
			Data    types.ReadingRecord `json:"data"`
		}{Message: "Book saved", Data: saved})
	})

	r.Put("/update_book", func(w http.ResponseWriter, r *http.Request) {
		var req updateRequest
		if err := decodeBody(r, &req); err != nil {
			rr.RespondError(w, r.Context(), err)
			return
		}

		if req.RecordPatch.Empty() {
			rr.RespondError(w, r.Context(), types.InvalidArgument("nothing to update for ISBN %s", req.Isbn13))
			return
		}

		updated, err := store.Update(r.Context(), req.Isbn13, req.RecordPatch)
		if err != nil {
			rr.RespondError(w, r.Context(), err)
			return
		}

		rr.SendJson(w, r.Context(), struct {
			Message string              `json:"message"`
			Data    types.ReadingRecord `json:"data"`
		}{Message: "Book updated", Data: updated})
	})

	r.Delete("/delete_book", func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		if err := decodeBody(r, &req); err != nil {
			rr.RespondError(w, r.Context(), err)
			return
		}

		deleted, err := store.Delete(r.Context(), req.Isbn13)
		if err != nil {
			rr.RespondError(w, r.Context(), err)
			return
		}

		msg := "Book deleted"
		if !deleted {
			msg = "Nothing to delete"
		}

		rr.SendJson(w, r.Context(), struct {
			Message string `json:"message"`
			Deleted bool   `json:"deleted"`
		}{Message: msg, Deleted: deleted})
	})

	r.Get("/books_stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			rr.RespondError(w, r.Context(), err)
			return
		}

		rr.SendJson(w, r.Context(), stats)
	})

	r.Get("/books_summary", func(w http.ResponseWriter, r *http.Request) {
		year, err := getYear(r.URL.Query())
		if err != nil {
			rr.RespondError(w, r.Context(), err)
			return
		}

		sum, err := store.Summary(r.Context(), year)
		if err != nil {
			rr.RespondError(w, r.Context(), err)
			return
		}

		rr.SendJson(w, r.Context(), sum)
	})

	r.Get("/read_months", func(w http.ResponseWriter, r *http.Request) {
		months, err := store.Months(r.Context())
		if err != nil {
			rr.RespondError(w, r.Context(), err)
			return
		}

		rr.SendJson(w, r.Context(), struct {
			Months []string `json:"months"`
		}{Months: months})
	})

	return r
}

// Static serves the list and register pages plus their assets from webDir.
func Static(r chi.Router, webDir string) {
	page := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, filepath.Join(webDir, name))
		}
	}

	r.Get("/", page("list.html"))
	r.Get("/list", page("list.html"))
	r.Get("/register", page("index.html"))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(webDir, "static")))))
}

func decodeBody(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return types.InvalidArgument("request body is empty")
		}
		return types.InvalidArgument("malformed JSON body: %s", err.Error())
	}

	return validateStruct(target)
}

func getYear(q url.Values) (int, error) {
	ys := strings.TrimSpace(q.Get("year"))
	if ys == "" {
		return time.Now().Year(), nil
	}

	year, err := strconv.Atoi(ys)
	if err != nil || year < 1 || year > 9999 {
		return 0, types.InvalidArgument("year must be a four digit number, got %q", ys)
	}

	return year, nil
}
