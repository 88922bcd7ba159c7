package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	perr "feedvault/internal/platform/errors"
	phttp "feedvault/internal/platform/net/http"
)

type planIn struct {
	Identity string `json:"identity" validate:"required,max=20"`
}

func newAPI(t *testing.T, o StackOptions) *httptest.Server {
	t.Helper()
	mux := chi.NewRouter()
	MountAPI(phttp.AdaptChi(mux), "/v1/", CommonStack(o), func(api Router) {
		PostJSON(api, "/plan", func(_ *http.Request, in planIn) (any, error) {
			return map[string]string{"identity": in.Identity}, nil
		})
		Get(api, "/missing", func(*http.Request) (any, error) {
			return nil, perr.NotFoundf("identity jack")
		})
		Get(api, "/boom", func(*http.Request) (any, error) { panic("boom") })
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, res *http.Response) Envelope {
	t.Helper()
	defer res.Body.Close()
	var env Envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	return env
}

func TestMountAPI_ServesUnderVersion(t *testing.T) {
	srv := newAPI(t, StackOptions{Slow: time.Hour})

	res, err := http.Post(srv.URL+"/api/v1/plan/", "application/json", strings.NewReader(`{"identity":"jack"}`))
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if res.Header.Get("Cache-Control") == "" {
		t.Fatal("no-cache headers missing")
	}
	env := decode(t, res)
	if data, _ := env.Data.(map[string]any); data["identity"] != "jack" || env.RequestID == "" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestMountAPI_ErrorEnvelopes(t *testing.T) {
	srv := newAPI(t, StackOptions{})

	res, err := http.Get(srv.URL + "/api/v1/missing")
	if err != nil {
		t.Fatal(err)
	}
	if env := decode(t, res); res.StatusCode != http.StatusNotFound || env.Code != perr.ErrorCodeNotFound {
		t.Fatalf("missing = %d %+v", res.StatusCode, env)
	}

	res, err = http.Post(srv.URL+"/api/v1/plan", "application/json", strings.NewReader(`{"identity":""}`))
	if err != nil {
		t.Fatal(err)
	}
	if env := decode(t, res); res.StatusCode != http.StatusBadRequest || env.Field != "identity" {
		t.Fatalf("validation = %d %+v", res.StatusCode, env)
	}

	res, err = http.Get(srv.URL + "/api/v1/boom")
	if err != nil {
		t.Fatal(err)
	}
	if env := decode(t, res); res.StatusCode != http.StatusInternalServerError || env.Code != perr.ErrorCodePanic {
		t.Fatalf("panic = %d %+v", res.StatusCode, env)
	}
}

func TestOKAndError(t *testing.T) {
	if r := OK("x"); r.Status != http.StatusOK || r.Body != "x" {
		t.Fatalf("OK = %+v", r)
	}
	if r := Error(perr.ErrNotFound); r.Body != perr.ErrNotFound {
		t.Fatalf("Error = %+v", r)
	}
}
