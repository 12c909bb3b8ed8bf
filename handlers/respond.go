package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"p9e.in/crusher/config"
	"p9e.in/crusher/utils"
)

// errorBody is the envelope for every 4xx response.
type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto the API envelope. Internal failures are logged
// with their cause and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, funcName string, err error) {
	appErr := utils.AsAppError(err)
	if appErr.Kind == utils.KindInternal {
		config.LogError(logger, "handlers", funcName, appErr.Message, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal server error"})
		return
	}
	writeJSON(w, appErr.HTTPStatus(), errorBody{Error: appErr.Message, Details: appErr.Details})
}

var errInvalidJSON = utils.ValidationError("invalid JSON", nil)

// decodeJSON reads a single JSON document into v.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return utils.ValidationError("invalid JSON", map[string]string{typeErr.Field: "has the wrong type"})
		}
		return errInvalidJSON
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, utils.ValidationError("invalid "+name, map[string]string{name: "must be a UUID"})
	}
	return id, nil
}

// queryParams collects parse failures so a request reports all of them.
type queryParams struct {
	r       *http.Request
	details map[string]string
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{r: r, details: map[string]string{}}
}

func (q *queryParams) String(name string) string {
	return strings.TrimSpace(q.r.URL.Query().Get(name))
}

func (q *queryParams) UUID(name string) uuid.UUID {
	v := q.String(name)
	if v == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		q.details[name] = "must be a UUID"
	}
	return id
}

func (q *queryParams) Bool(name string) bool {
	v := q.String(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.details[name] = "must be true or false"
	}
	return b
}

// Date parses YYYY-MM-DD. With endOfDay the result is the next midnight so
// callers can use it as an exclusive bound.
func (q *queryParams) Date(name string, endOfDay bool) *time.Time {
	v := q.String(name)
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		q.details[name] = "must be YYYY-MM-DD"
		return nil
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t
}

func (q *queryParams) Err() error {
	if len(q.details) == 0 {
		return nil
	}
	return utils.ValidationError("invalid query parameters", q.details)
}
