package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/validation"
)

const (
	imageField  = "image"
	methodField = "_method"
)

// productBody is a decoded create or update request. upload is nil unless
// a file was sent in the image field.
type productBody struct {
	fields transport.Fields
	upload *service.Upload
	file   multipart.File
}

func (b *productBody) Close() {
	if b.file != nil {
		_ = b.file.Close()
	}
}

// bindFields decodes the body according to its content type. JSON keeps
// value types; form bodies yield strings only.
func bindFields(c echo.Context) (*productBody, error) {
	req := c.Request()
	ctype := req.Header.Get(echo.HeaderContentType)

	var (
		body = &productBody{}
		err  error
	)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEMultipartForm):
		form, ferr := c.MultipartForm()
		if ferr != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Malformed multipart body.")
		}
		body.fields = transport.FieldsFromMultipart(form)
		if files := form.File[imageField]; len(files) > 0 {
			fh := files[0]
			f, oerr := fh.Open()
			if oerr != nil {
				return nil, oerr
			}
			body.file = f
			body.upload = &service.Upload{Filename: fh.Filename, Content: f}
			delete(body.fields, imageField)
		}
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		values, ferr := c.FormParams()
		if ferr != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Malformed form body.")
		}
		body.fields = transport.FieldsFromForm(values)
	default:
		raw, rerr := io.ReadAll(req.Body)
		if rerr != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Unreadable request body.")
		}
		body.fields, err = transport.FieldsFromJSON(raw)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Malformed JSON body.")
		}
	}
	delete(body.fields, methodField)
	return body, nil
}

// pathID parses the :id path parameter. Anything but a positive integer
// names no resource.
func pathID(c echo.Context) (uint, error) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.ErrNotFound
	}
	return uint(n), nil
}

// bindInput decodes an auth payload from JSON or form fields. A value of
// the wrong JSON type is a field error, like on the catalog routes.
func bindInput(c echo.Context, dst any) error {
	err := c.Bind(dst)
	if err == nil {
		return nil
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		if ute.Type != nil && ute.Type.Kind() == reflect.String {
			return apperr.Field(ute.Field, validation.MustBeString(ute.Field))
		}
		return apperr.Field(ute.Field, validation.Invalid(ute.Field))
	}
	return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body.")
}
