package authgate_test

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/goliatone/go-router"
)

// fakeContext is a functional router.Context stand-in: headers and locals are
// real maps, responses are recorded for assertions, and Next() is observable.
type fakeContext struct {
	headers map[string]string
	locals  map[any]any
	ctx     context.Context

	NextCalled bool
	StatusCode int
	JSONBody   any
	SentString string
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		headers: map[string]string{},
		locals:  map[any]any{},
		ctx:     context.Background(),
	}
}

func (m *fakeContext) withHeader(key, val string) *fakeContext {
	m.headers[key] = val
	return m
}

func (m *fakeContext) withLocal(key any, val any) *fakeContext {
	m.locals[key] = val
	return m
}

func (m *fakeContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *fakeContext) Context() context.Context {
	return m.ctx
}

func (m *fakeContext) SetContext(ctx context.Context) {
	m.ctx = ctx
}

func (m *fakeContext) Path() string   { return "/" }
func (m *fakeContext) Method() string { return "GET" }
func (m *fakeContext) Body() []byte   { return nil }

func (m *fakeContext) Status(code int) router.Context {
	m.StatusCode = code
	return m
}

func (m *fakeContext) SendString(s string) error {
	m.SentString = s
	return nil
}

func (m *fakeContext) Send(b []byte) error {
	m.SentString = string(b)
	return nil
}

func (m *fakeContext) JSON(code int, val any) error {
	m.StatusCode = code
	m.JSONBody = val
	return nil
}

func (m *fakeContext) NoContent(code int) error {
	m.StatusCode = code
	return nil
}

func (m *fakeContext) Render(name string, bind any, layout ...string) error { return nil }
func (m *fakeContext) Redirect(path string, status ...int) error            { return nil }
func (m *fakeContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	return nil
}
func (m *fakeContext) RedirectBack(fallback string, status ...int) error { return nil }

func (m *fakeContext) SetHeader(key, val string) router.Context {
	m.headers[key] = val
	return m
}

func (m *fakeContext) Header(key string) string {
	return m.headers[key]
}

func (m *fakeContext) Get(key string, defaultValue any) any {
	if val, ok := m.locals[key]; ok {
		return val
	}
	return defaultValue
}

func (m *fakeContext) GetBool(key string, defaultValue bool) bool { return defaultValue }
func (m *fakeContext) GetInt(key string, def int) int             { return def }

func (m *fakeContext) Set(key string, val any) {
	m.locals[key] = val
}

func (m *fakeContext) Bind(i any) error        { return nil }
func (m *fakeContext) BindJSON(i any) error    { return nil }
func (m *fakeContext) BindXML(i any) error     { return nil }
func (m *fakeContext) BindQuery(i any) error   { return nil }
func (m *fakeContext) CookieParser(i any) error { return nil }
func (m *fakeContext) Cookie(cookie *router.Cookie) {}

func (m *fakeContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *fakeContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *fakeContext) ParamsInt(key string, defaultValue int) int { return defaultValue }

func (m *fakeContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *fakeContext) QueryValues(key string) []string           { return nil }
func (m *fakeContext) QueryInt(key string, defaultValue int) int { return defaultValue }
func (m *fakeContext) Queries() map[string]string                { return nil }

func (m *fakeContext) GetString(key string, defaultValue string) string {
	if val, ok := m.headers[key]; ok && val != "" {
		return val
	}
	return defaultValue
}

func (m *fakeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.locals[key] = value[0]
		return nil
	}
	return m.locals[key]
}

func (m *fakeContext) OriginalURL() string          { return "/" }
func (m *fakeContext) OnNext(callback func() error) {}
func (m *fakeContext) Referer() string              { return "" }

func (m *fakeContext) LocalsMerge(key any, value map[string]any) map[string]any { return value }

func (m *fakeContext) FormFile(key string) (*multipart.FileHeader, error) { return nil, nil }

func (m *fakeContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *fakeContext) IP() string { return "" }

func (m *fakeContext) SendStatus(code int) error {
	m.StatusCode = code
	return nil
}

func (m *fakeContext) SendStream(r io.Reader) error { return nil }

func (m *fakeContext) RouteName() string              { return "" }
func (m *fakeContext) RouteParams() map[string]string { return nil }

var _ router.Context = (*fakeContext)(nil)
