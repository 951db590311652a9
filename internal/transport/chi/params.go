package chi

import (
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"
)

// suggestParams are the query parameters of GET /api/suggest_titles.
type suggestParams struct {
	Query string
}

func bindSuggestParams(r *http.Request) (suggestParams, error) {
	var p suggestParams
	if err := runtime.BindQueryParameter("form", true, false, "query", r.URL.Query(), &p.Query); err != nil {
		return suggestParams{}, fmt.Errorf("invalid query parameter: %w", err)
	}
	return p, nil
}
