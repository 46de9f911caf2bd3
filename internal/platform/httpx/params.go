package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var idValidator = validator.New()

// PathID returns the named chi URL parameter. An id that is not a uuid names
// no row, so it is reported as notFound before any query runs.
func PathID(r *http.Request, name string, notFound error) (string, error) {
	id := chi.URLParam(r, name)
	if err := idValidator.Var(id, "required,uuid"); err != nil {
		return "", fmt.Errorf("%w: malformed id %q", notFound, id)
	}
	return id, nil
}
