package hostmod

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dop251/goja"
)

const (
	defaultHTTPMaxBody = 1 << 20
	defaultHTTPTimeout = 10 * time.Second
)

// httpModule gives guests outbound HTTP, but only to hosts the policy
// names. An empty allowlist denies every request, so network access is
// opt-in twice: once via allowed_imports and once per host.
type httpModule struct {
	allow   []string
	maxBody int64
	client  *http.Client
}

func newHTTPModule(cfg Config) *httpModule {
	maxBody := cfg.HTTPMaxBody
	if maxBody <= 0 {
		maxBody = defaultHTTPMaxBody
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &httpModule{
		allow:   cfg.HTTPAllowlist,
		maxBody: maxBody,
		client:  &http.Client{Timeout: timeout},
	}
}

func (m *httpModule) Name() string { return "http" }

func (m *httpModule) Register(rt *goja.Runtime, hctx *HostContext) (goja.Value, error) {
	obj := rt.NewObject()

	_ = obj.Set("get", func(call goja.FunctionCall) goja.Value {
		return m.do(rt, hctx, http.MethodGet, call)
	})

	// post(url, body?, contentType?) defaults the content type to
	// application/json when a body is given.
	_ = obj.Set("post", func(call goja.FunctionCall) goja.Value {
		return m.do(rt, hctx, http.MethodPost, call)
	})

	return obj, nil
}

func (m *httpModule) do(rt *goja.Runtime, hctx *HostContext, method string, call goja.FunctionCall) goja.Value {
	rawURL := call.Argument(0).String()
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		panic(rt.NewTypeError(fmt.Sprintf("invalid url %q", rawURL)))
	}
	if !m.hostAllowed(u.Hostname()) {
		panic(rt.NewTypeError(fmt.Sprintf("host %q is not allowed", u.Hostname())))
	}

	var body io.Reader
	contentType := ""
	if method == http.MethodPost {
		if arg := call.Argument(1); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
			body = strings.NewReader(arg.String())
			contentType = "application/json"
		}
		if arg := call.Argument(2); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
			contentType = arg.String()
		}
	}

	req, err := http.NewRequestWithContext(hctx.Ctx, method, rawURL, body)
	if err != nil {
		panic(rt.NewTypeError(fmt.Sprintf("building request: %v", err)))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		panic(rt.NewTypeError(fmt.Sprintf("request failed: %v", err)))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBody))
	if err != nil {
		panic(rt.NewTypeError(fmt.Sprintf("reading response: %v", err)))
	}

	out := rt.NewObject()
	_ = out.Set("status", resp.StatusCode)
	_ = out.Set("body", string(data))
	headers := rt.NewObject()
	for name, values := range resp.Header {
		if len(values) > 0 {
			_ = headers.Set(strings.ToLower(name), values[0])
		}
	}
	_ = out.Set("headers", headers)
	_ = out.Set("json", func(goja.FunctionCall) goja.Value {
		var parsed interface{}
		if err := json.Unmarshal(data, &parsed); err != nil {
			panic(rt.NewTypeError(fmt.Sprintf("parsing json: %v", err)))
		}
		return rt.ToValue(parsed)
	})
	return out
}

func (m *httpModule) hostAllowed(host string) bool {
	for _, allowed := range m.allow {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}
