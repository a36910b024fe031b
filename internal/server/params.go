package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.KindValidation, "invalid %s", name)
	}
	return id, nil
}

func queryUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, apperr.Newf(apperr.KindValidation, "%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.KindValidation, "invalid %s", name)
	}
	return id, nil
}

func queryUUIDOptional(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Newf(apperr.KindValidation, "invalid %s", name)
	}
	return &id, nil
}

func queryDate(r *http.Request, name string) (model.Date, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return model.Date{}, false, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, false, apperr.Newf(apperr.KindValidation, "invalid %s, expected YYYY-MM-DD", name)
	}
	return d, true, nil
}

// dateRange reads from/to query params. Missing "to" defaults to today,
// missing "from" to 30 days before "to".
func (s *Server) dateRange(r *http.Request) (model.Date, model.Date, error) {
	from, hasFrom, err := queryDate(r, "from")
	if err != nil {
		return model.Date{}, model.Date{}, err
	}
	to, hasTo, err := queryDate(r, "to")
	if err != nil {
		return model.Date{}, model.Date{}, err
	}
	if !hasTo {
		to = model.DateOf(s.deps.Clock.Now())
	}
	if !hasFrom {
		from = to.AddDays(-30)
	}
	return from, to, nil
}

// pagination reads page/limit, clamping to the configured max.
func (s *Server) pagination(r *http.Request) (page, limit int) {
	q := s.deps.Config.Query
	page, limit = 1, q.DefaultLimit
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > q.MaxLimit {
		limit = q.MaxLimit
	}
	return page, limit
}

func queryInt(r *http.Request, name, fallback string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		raw = fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}
