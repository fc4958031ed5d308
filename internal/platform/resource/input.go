package resource

import (
	"github.com/labstack/echo/v4"

	"github.com/nrc/nrc/internal/platform/record"
)

// Body decodes a JSON object request body. An empty body gives an empty map.
func Body(c echo.Context) (map[string]any, error) {
	var body map[string]any
	if err := new(echo.DefaultBinder).BindBody(c, &body); err != nil {
		return nil, Invalid("invalid request body")
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

// Input decodes the request body and maps it onto the schema's columns,
// accepting camelCase and snake_case keys.
func Input(c echo.Context, s *record.Schema) (record.Values, error) {
	body, err := Body(c)
	if err != nil {
		return nil, err
	}
	vals, err := record.Normalize(s, body)
	if err != nil {
		return nil, Invalid("%v", err)
	}
	return vals, nil
}

// Params returns the query string as a single-valued input map.
func Params(c echo.Context) map[string]any {
	out := make(map[string]any)
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// Filters turns query parameters naming scalar columns into equality filters.
// Paging parameters and JSON columns are ignored.
func Filters(c echo.Context, s *record.Schema) (record.Values, error) {
	params := Params(c)
	delete(params, "limit")
	delete(params, "offset")

	vals, err := record.Normalize(s, params)
	if err != nil {
		return nil, Invalid("%v", err)
	}
	for k := range vals {
		if col, _ := s.Column(k); col.Kind == record.JSON {
			delete(vals, k)
		}
	}
	return vals, nil
}
