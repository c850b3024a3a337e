package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookvault.org/internal/auth"
	"bookvault.org/internal/books"
	"bookvault.org/internal/throttle"
)

const dateLayout = "2006-01-02"

type bookRequest struct {
	Title           *string `json:"title"`
	Author          *string `json:"author"`
	PublicationDate *string `json:"publication_date"`
	User            *string `json:"user"`
}

type bookListItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

type bookDetail struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	PublicationDate *string `json:"publication_date"`
	User            string  `json:"user"`
}

// handleBooks dispatches the collection ("/books/") and single resources
// ("/books/{id}/"). Every branch runs the same pipeline: authenticate,
// type-level permission, throttle, fetch, object-level permission, operate.
func (a *API) handleBooks(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/books/")
	path = strings.Trim(path, "/")
	if path == "" {
		a.handleBooksCollection(w, r)
		return
	}
	if strings.Contains(path, "/") {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return
	}
	a.handleBookResource(w, r, path)
}

func (a *API) handleBooksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listBooks(w, r)
	case http.MethodPost:
		a.createBook(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleBookResource(w http.ResponseWriter, r *http.Request, id string) {
	var action auth.Action
	switch r.Method {
	case http.MethodGet:
		action = auth.ActionRetrieve
	case http.MethodPut:
		action = auth.ActionUpdate
	case http.MethodPatch:
		action = auth.ActionPartialUpdate
	case http.MethodDelete:
		action = auth.ActionDestroy
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
		return
	}

	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := auth.Authorize(principal, action); err != nil {
		handleAuthError(w, r, err)
		return
	}
	if !a.admit(w, r, throttle.ScopeBooks) {
		return
	}

	book, err := a.books.Get(r.Context(), id)
	if err != nil {
		handleBookError(w, r, err)
		return
	}
	if err := auth.AuthorizeObject(principal, action, book.UserID); err != nil {
		handleAuthError(w, r, err)
		return
	}

	switch action {
	case auth.ActionRetrieve:
		writeJSON(w, http.StatusOK, serializeBookDetail(book))
	case auth.ActionUpdate, auth.ActionPartialUpdate:
		a.updateBook(w, r, book, action)
	case auth.ActionDestroy:
		a.deleteBook(w, r, book)
	}
}

func (a *API) listBooks(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := auth.Authorize(principal, auth.ActionList); err != nil {
		handleAuthError(w, r, err)
		return
	}
	if !a.admit(w, r, throttle.ScopeBooks) {
		return
	}

	number, size, err := pageParams(r.URL.Query())
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := bookFilter(r.URL.Query())
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := a.books.List(r.Context(), filter, books.Page{Number: number, Size: size})
	if err != nil {
		handleBookError(w, r, err)
		return
	}
	results := make([]bookListItem, 0, len(items))
	for _, b := range items {
		results = append(results, bookListItem{ID: b.ID, Title: b.Title, Author: b.Author})
	}
	writeJSON(w, http.StatusOK, envelope(r, number, size, total, results))
}

func (a *API) createBook(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := auth.Authorize(principal, auth.ActionCreate); err != nil {
		handleAuthError(w, r, err)
		return
	}
	if !a.admit(w, r, throttle.ScopeBooks) {
		return
	}

	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Books belong to whoever creates them. Naming someone else as owner
	// requires the administrator capability.
	ownerID := principal.User.ID
	if req.User != nil && *req.User != "" && *req.User != ownerID {
		if !principal.HasPermission(auth.CapAdministrator) {
			writeDetail(w, r, http.StatusForbidden, auth.PermissionDeniedDetail)
			return
		}
		ownerID = *req.User
	}

	pubDate, err := parseDatePtr(req.PublicationDate)
	if err != nil {
		writeFieldError(w, "publication_date", "date must be formatted YYYY-MM-DD")
		return
	}

	book, err := a.books.Create(r.Context(), books.CreateInput{
		Title:           deref(req.Title),
		Author:          deref(req.Author),
		PublicationDate: pubDate,
		UserID:          ownerID,
	})
	if err != nil {
		handleBookError(w, r, err)
		return
	}
	a.audit(r.Context(), "books.create", map[string]any{
		"book_id": book.ID,
		"title":   book.Title,
	})
	// Creation answers with an empty array; clients re-fetch via the list.
	writeJSON(w, http.StatusCreated, []any{})
}

func (a *API) updateBook(w http.ResponseWriter, r *http.Request, book *books.Book, action auth.Action) {
	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.User != nil && *req.User != book.UserID {
		writeDetail(w, r, http.StatusBadRequest, "ownership cannot be reassigned")
		return
	}

	pubDate, err := parseDatePtr(req.PublicationDate)
	if err != nil {
		writeFieldError(w, "publication_date", "date must be formatted YYYY-MM-DD")
		return
	}

	upd := books.Update{
		Title:           req.Title,
		Author:          req.Author,
		PublicationDate: pubDate,
	}
	if action == auth.ActionUpdate {
		// Full update: absent fields count as empty, an absent date clears.
		if upd.Title == nil {
			upd.Title = ptr("")
		}
		if upd.Author == nil {
			upd.Author = ptr("")
		}
		if req.PublicationDate == nil {
			upd.ClearDate = true
		}
	}

	updated, err := a.books.Apply(r.Context(), book, upd)
	if err != nil {
		handleBookError(w, r, err)
		return
	}
	a.audit(r.Context(), "books.update", map[string]any{
		"book_id": updated.ID,
	})
	writeJSON(w, http.StatusOK, serializeBookDetail(updated))
}

func (a *API) deleteBook(w http.ResponseWriter, r *http.Request, book *books.Book) {
	if err := a.books.Delete(r.Context(), book.ID); err != nil {
		handleBookError(w, r, err)
		return
	}
	a.audit(r.Context(), "books.delete", map[string]any{
		"book_id": book.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// bookFilter reads title/date_from/date_to query parameters.
func bookFilter(q url.Values) (books.Filter, error) {
	var filter books.Filter
	filter.TitleContains = strings.TrimSpace(q.Get("title"))
	if raw := strings.TrimSpace(q.Get("date_from")); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return books.Filter{}, errors.New("date_from must be formatted YYYY-MM-DD")
		}
		filter.DateFrom = &t
	}
	if raw := strings.TrimSpace(q.Get("date_to")); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return books.Filter{}, errors.New("date_to must be formatted YYYY-MM-DD")
		}
		filter.DateTo = &t
	}
	return filter, nil
}

func serializeBookDetail(b *books.Book) bookDetail {
	detail := bookDetail{
		ID:     b.ID,
		Title:  b.Title,
		Author: b.Author,
		User:   b.UserID,
	}
	if b.PublicationDate != nil {
		s := b.PublicationDate.Format(dateLayout)
		detail.PublicationDate = &s
	}
	return detail
}

func parseDatePtr(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string { return &s }
