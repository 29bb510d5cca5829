package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/validation"
)

type apiEnv struct {
	e      *echo.Echo
	db     *gorm.DB
	events *events.Recorder
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()

	gdb := testutil.OpenDB(t)
	dir := t.TempDir()
	files, err := storage.NewLocal(dir, "/storage")
	require.NoError(t, err)
	rec := &events.Recorder{}
	r := repo.New(gdb)

	d := &Deps{
		DB:     gdb,
		Logger: logging.NewWithWriter(io.Discard, "error"),
		Auth: &service.AuthService{
			Users:     r,
			Tokens:    r,
			Issuer:    tokens.NewIssuer([]byte("test-secret"), 0),
			Validator: validation.New(),
			Events:    rec,
		},
		Catalog: &service.CatalogService{
			Repo:   r,
			Files:  files,
			Events: rec,
			Index:  search.NewMemory(),
		},
		URL:        files.URL,
		StorageDir: dir,
		StorageURL: "/storage",
	}
	return &apiEnv{e: New(d), db: gdb, events: rec}
}

func (a *apiEnv) do(t *testing.T, method, path, token string, body io.Reader, ctype string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if ctype != "" {
		req.Header.Set(echo.HeaderContentType, ctype)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *apiEnv) json(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return a.do(t, method, path, token, body, echo.MIMEApplicationJSON)
}

func (a *apiEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := a.json(t, http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["token"].(string)
}

func (a *apiEnv) admin(t *testing.T) string {
	t.Helper()
	testutil.CreateUser(t, a.db, "admin@example.com", "password", models.RoleAdmin)
	return a.login(t, "admin@example.com", "password")
}

func (a *apiEnv) user(t *testing.T) string {
	t.Helper()
	testutil.CreateUser(t, a.db, "user@example.com", "password", models.RoleUser)
	return a.login(t, "user@example.com", "password")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorFields(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	errs, ok := decode(t, rec)["errors"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return errs
}

func names(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out []string
	for _, item := range decode(t, rec)["data"].([]any) {
		out = append(out, item.(map[string]any)["name"].(string))
	}
	return out
}

func idPath(prefix string, id uint) string {
	return prefix + "/" + strconv.FormatUint(uint64(id), 10)
}

func multipartBody(t *testing.T, fields map[string]string, image []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		fw, err := w.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/health/live", "", nil, "").Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/health/ready", "", nil, "").Code)
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)

	rec := a.json(t, http.MethodPost, "/api/register", "", map[string]string{
		"name":                  "Jane",
		"email":                 "Jane@Example.com",
		"password":              "secret123",
		"password_confirmation": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	token := body["token"].(string)
	require.NotEmpty(t, token)
	user := body["user"].(map[string]any)
	assert.Equal(t, "jane@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, user, "password")
	assert.Equal(t, []string{events.UserRegistered}, a.events.Types(events.TopicUsers))

	rec = a.do(t, http.MethodGet, "/api/user", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jane", decode(t, rec)["name"])

	rec = a.do(t, http.MethodPost, "/api/logout", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", decode(t, rec)["message"])

	rec = a.do(t, http.MethodGet, "/api/user", token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthenticated.", decode(t, rec)["message"])

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodPost, "/api/logout", "", nil, "").Code)
}

func TestRegister_Validation(t *testing.T) {
	a := newAPI(t)
	testutil.CreateUser(t, a.db, "taken@example.com", "password", models.RoleUser)

	errs := errorFields(t, a.json(t, http.MethodPost, "/api/register", "", map[string]string{
		"email":                 "taken@example.com",
		"password":              "short",
		"password_confirmation": "other",
	}))
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")

	long := strings.Repeat("p", 80)
	errs = errorFields(t, a.json(t, http.MethodPost, "/api/register", "", map[string]string{
		"name":                  "Long",
		"email":                 "long@example.com",
		"password":              long,
		"password_confirmation": long,
	}))
	assert.Equal(t, []any{"The password field must not be greater than 72 characters."}, errs["password"])

	errs = errorFields(t, a.json(t, http.MethodPost, "/api/register", "", map[string]any{
		"name":                  5,
		"email":                 "typed@example.com",
		"password":              "password",
		"password_confirmation": "password",
	}))
	assert.Equal(t, []any{"The name field must be a string."}, errs["name"])
}

func TestLogin_BadCredentials(t *testing.T) {
	a := newAPI(t)
	testutil.CreateUser(t, a.db, "user@example.com", "password", models.RoleUser)

	rec := a.json(t, http.MethodPost, "/api/login", "", map[string]string{"email": "user@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.json(t, http.MethodPost, "/api/login", "", map[string]string{"email": "nobody@example.com", "password": "password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	errs := errorFields(t, a.json(t, http.MethodPost, "/api/login", "", map[string]string{}))
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestInvalidTokenIsAnonymous(t *testing.T) {
	a := newAPI(t)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/products", "garbage", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/api/user", "garbage", nil, "").Code)
}

func TestProductMutation_RequiresAdmin(t *testing.T) {
	a := newAPI(t)
	cat := testutil.CreateCategory(t, a.db, "Phones", "phones")
	p := testutil.CreateProduct(t, a.db, "Pixel", "100", cat.ID)
	userToken := a.user(t)

	payload := map[string]any{"name": "X", "price": 1, "category_id": cat.ID}

	assert.Equal(t, http.StatusUnauthorized, a.json(t, http.MethodPost, "/api/products", "", payload).Code)
	assert.Equal(t, http.StatusForbidden, a.json(t, http.MethodPost, "/api/products", userToken, payload).Code)
	assert.Equal(t, http.StatusForbidden, a.json(t, http.MethodPost, "/api/products", userToken, map[string]any{}).Code)
	assert.Equal(t, http.StatusForbidden, a.json(t, http.MethodPut, idPath("/api/products", p.ID), userToken, payload).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodDelete, idPath("/api/products", p.ID), userToken, nil, "").Code)
	assert.Equal(t, http.StatusForbidden, a.json(t, http.MethodPost, "/api/categories", userToken, map[string]any{"name": "X"}).Code)

	var count int64
	require.NoError(t, a.db.Model(&models.Product{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateProduct_Empty(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)

	rec := a.json(t, http.MethodPost, "/api/products", token, map[string]any{})
	errs := errorFields(t, rec)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "price")
	assert.Contains(t, errs, "category_id")
	assert.Contains(t, decode(t, rec)["message"], "(and 2 more errors)")
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)

	errs := errorFields(t, a.json(t, http.MethodPost, "/api/products", token, map[string]any{
		"name": "Pixel", "price": 10, "category_id": 999,
	}))
	assert.Equal(t, []any{"The selected category id is invalid."}, errs["category_id"])
}

func TestCreateProduct_JSON(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)
	cat := testutil.CreateCategory(t, a.db, "Phones", "phones")

	rec := a.json(t, http.MethodPost, "/api/products", token, map[string]any{
		"name": "Pixel 9", "description": "Phone", "price": 799.5, "category_id": cat.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Product created successfully", body["message"])
	product := body["product"].(map[string]any)
	assert.Equal(t, "Pixel 9", product["name"])
	assert.Equal(t, "799.50", product["price"])
	assert.Nil(t, product["image"])
	assert.Equal(t, "phones", product["category"].(map[string]any)["slug"])
	assert.Equal(t, []string{events.ProductCreated}, a.events.Types(events.TopicProducts))
}

func TestCreateProduct_MultipartImage(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)
	cat := testutil.CreateCategory(t, a.db, "Phones", "phones")
	png := testutil.PNG(t)

	body, ctype := multipartBody(t, map[string]string{
		"name": "Pixel", "price": "250", "category_id": strconv.FormatUint(uint64(cat.ID), 10),
	}, png)
	rec := a.do(t, http.MethodPost, "/api/products", token, body, ctype)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	product := decode(t, rec)["product"].(map[string]any)
	image, ok := product["image"].(string)
	require.True(t, ok, "image must be set")
	assert.True(t, strings.HasPrefix(image, "products/"))
	imageURL := product["image_url"].(string)
	assert.Equal(t, "/storage/"+image, imageURL)

	got := a.do(t, http.MethodGet, imageURL, "", nil, "")
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, png, got.Body.Bytes())
}

func TestCreateProduct_RejectsNonImage(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)
	cat := testutil.CreateCategory(t, a.db, "Phones", "phones")

	body, ctype := multipartBody(t, map[string]string{
		"name": "Pixel", "price": "250", "category_id": strconv.FormatUint(uint64(cat.ID), 10),
	}, []byte("plain text, not a picture"))
	errs := errorFields(t, a.do(t, http.MethodPost, "/api/products", token, body, ctype))
	assert.Contains(t, errs, "image")
}

func TestUpdateProduct_MultipartPost(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)
	cat := testutil.CreateCategory(t, a.db, "Phones", "phones")
	p := testutil.CreateProduct(t, a.db, "Pixel", "100", cat.ID)

	body, ctype := multipartBody(t, map[string]string{"_method": "PUT", "name": "Pixel Pro"}, testutil.PNG(t))
	rec := a.do(t, http.MethodPost, idPath("/api/products", p.ID), token, body, ctype)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	product := decode(t, rec)["product"].(map[string]any)
	assert.Equal(t, "Pixel Pro", product["name"])
	assert.Equal(t, "100.00", product["price"])
	assert.NotNil(t, product["image"])
}

func TestUpdateProduct_JSON(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)
	cat := testutil.CreateCategory(t, a.db, "Phones", "phones")
	p := testutil.CreateProduct(t, a.db, "Pixel", "100", cat.ID)

	rec := a.json(t, http.MethodPut, idPath("/api/products", p.ID), token, map[string]any{"price": "120.25"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "120.25", decode(t, rec)["product"].(map[string]any)["price"])

	assert.Equal(t, http.StatusNotFound, a.json(t, http.MethodPut, "/api/products/999", token, map[string]any{"name": "X"}).Code)
}

func TestDeleteProduct(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)
	cat := testutil.CreateCategory(t, a.db, "Phones", "phones")
	p := testutil.CreateProduct(t, a.db, "Pixel", "100", cat.ID)

	rec := a.do(t, http.MethodDelete, idPath("/api/products", p.ID), token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully", decode(t, rec)["message"])

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, idPath("/api/products", p.ID), "", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, idPath("/api/products", p.ID), token, nil, "").Code)
}

func TestGetProduct_BadID(t *testing.T) {
	a := newAPI(t)

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/products/abc", "", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/products/0", "", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/products/42", "", nil, "").Code)
}

func TestListProducts_Filters(t *testing.T) {
	a := newAPI(t)
	phones := testutil.CreateCategory(t, a.db, "Phones", "phones")
	books := testutil.CreateCategory(t, a.db, "Books", "books")
	testutil.CreateProduct(t, a.db, "Cheap", "50", phones.ID)
	testutil.CreateProduct(t, a.db, "Middle", "100", phones.ID)
	testutil.CreateProduct(t, a.db, "Pricey", "150", books.ID)

	assert.Equal(t, []string{"Middle"}, names(t, a.do(t, http.MethodGet, "/api/products?min_price=75&max_price=125", "", nil, "")))
	assert.Equal(t, []string{"Pricey"}, names(t, a.do(t, http.MethodGet, "/api/products?category="+strconv.FormatUint(uint64(books.ID), 10), "", nil, "")))
	assert.Empty(t, names(t, a.do(t, http.MethodGet, "/api/products?category="+strconv.FormatUint(uint64(books.ID), 10)+"&max_price=100", "", nil, "")))

	errs := errorFields(t, a.do(t, http.MethodGet, "/api/products?min_price=cheap", "", nil, ""))
	assert.Contains(t, errs, "min_price")
}

func TestListProducts_Search(t *testing.T) {
	a := newAPI(t)
	cat := testutil.CreateCategory(t, a.db, "Phones", "phones")
	testutil.CreateProduct(t, a.db, "iPhone 15", "999", cat.ID)
	testutil.CreateProduct(t, a.db, "Samsung Galaxy", "899", cat.ID)

	assert.Equal(t, []string{"iPhone 15"}, names(t, a.do(t, http.MethodGet, "/api/products?search=iphone", "", nil, "")))
}

func TestListProducts_Pagination(t *testing.T) {
	a := newAPI(t)
	cat := testutil.CreateCategory(t, a.db, "Phones", "phones")
	for i := 1; i <= 5; i++ {
		testutil.CreateProduct(t, a.db, "P"+strconv.Itoa(i), "10", cat.ID)
	}

	rec := a.do(t, http.MethodGet, "/api/products?per_page=2&page=3", "", nil, "")
	assert.Equal(t, []string{"P5"}, names(t, rec))
	body := decode(t, rec)
	assert.EqualValues(t, 3, body["current_page"])
	assert.EqualValues(t, 3, body["last_page"])
	assert.EqualValues(t, 2, body["per_page"])
	assert.EqualValues(t, 5, body["total"])
	assert.EqualValues(t, 5, body["from"])
	assert.EqualValues(t, 5, body["to"])

	body = decode(t, a.do(t, http.MethodGet, "/api/products?per_page=2&page=9", "", nil, ""))
	assert.Empty(t, body["data"])
	assert.Nil(t, body["from"])
}

func TestSearchProducts(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)
	cat := testutil.CreateCategory(t, a.db, "Phones", "phones")
	for _, name := range []string{"iPhone 15", "Samsung Galaxy"} {
		rec := a.json(t, http.MethodPost, "/api/products", token, map[string]any{"name": name, "price": 10, "category_id": cat.ID})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	assert.Equal(t, []string{"Samsung Galaxy"}, names(t, a.do(t, http.MethodGet, "/api/products/search?q=galaxy", "", nil, "")))
	errs := errorFields(t, a.do(t, http.MethodGet, "/api/products/search", "", nil, ""))
	assert.Contains(t, errs, "q")
}

func TestCategories(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)

	rec := a.json(t, http.MethodPost, "/api/categories", token, map[string]any{"name": "Home Garden"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "home-garden", created["slug"])
	assert.EqualValues(t, 0, created["products_count"])
	id := uint(created["id"].(float64))

	rec = a.json(t, http.MethodPost, "/api/categories", token, map[string]any{"name": "Other", "slug": "home-garden"})
	assert.Contains(t, errorFields(t, rec), "slug")

	rec = a.json(t, http.MethodPut, idPath("/api/categories", id), token, map[string]any{"description": "Tools"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Tools", decode(t, rec)["description"])

	testutil.CreateProduct(t, a.db, "Rake", "15", id)

	var list []map[string]any
	rec = a.do(t, http.MethodGet, "/api/categories", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, list[0]["products_count"])

	rec = a.do(t, http.MethodDelete, idPath("/api/categories", id), token, nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Cannot delete a category that still has products.", decode(t, rec)["message"])

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/categories/999", "", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, "/api/categories/999", token, nil, "").Code)
}

func TestDeleteCategory_Empty(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)
	cat := testutil.CreateCategory(t, a.db, "Books", "books")

	rec := a.do(t, http.MethodDelete, idPath("/api/categories", cat.ID), token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Category deleted successfully", decode(t, rec)["message"])
	assert.Equal(t, []string{events.CategoryDeleted}, a.events.Types(events.TopicCategories))
}

func TestMalformedJSON(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t)

	rec := a.do(t, http.MethodPost, "/api/products", token, strings.NewReader("{"), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["message"])
}

func TestUnknownRoute(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, http.MethodGet, "/api/nope", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["message"])
}
