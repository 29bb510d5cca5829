package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"

	"github.com/Skotchmaster/storefront/internal/service"
)

// Fields is a request body split into attributes that keep their JSON
// shape, so absent, null, string and number stay distinguishable.
type Fields map[string]service.Field

func (f Fields) Get(name string) service.Field { return f[name] }

// FieldsFromJSON decodes a JSON object body. An empty body is an empty
// object.
func FieldsFromJSON(body []byte) (Fields, error) {
	out := Fields{}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	for k, v := range raw {
		out[k] = fieldFromJSON(v)
	}
	return out, nil
}

func fieldFromJSON(v json.RawMessage) service.Field {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || string(v) == "null" {
		return service.Null()
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return service.Other()
		}
		return service.Text(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return service.Number(string(v))
	default:
		return service.Other()
	}
}

// FieldsFromForm uses the first value of each form key.
func FieldsFromForm(values url.Values) Fields {
	out := Fields{}
	for k, vs := range values {
		if len(vs) > 0 {
			out[k] = service.Text(vs[0])
		}
	}
	return out
}

func FieldsFromMultipart(form *multipart.Form) Fields {
	if form == nil {
		return Fields{}
	}
	return FieldsFromForm(url.Values(form.Value))
}

func (f Fields) Product() service.ProductInput {
	return service.ProductInput{
		Name:        f.Get("name"),
		Description: f.Get("description"),
		Price:       f.Get("price"),
		CategoryID:  f.Get("category_id"),
		Image:       f.Get("image"),
	}
}

func (f Fields) Category() service.CategoryInput {
	return service.CategoryInput{
		Name:        f.Get("name"),
		Slug:        f.Get("slug"),
		Description: f.Get("description"),
	}
}
