package custodesk

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func staticTestApp(t *testing.T, static StaticConfig) *App {
	t.Helper()
	if static.FS == nil {
		static.FS = fstest.MapFS{
			"app.css": &fstest.MapFile{
				Data:    []byte("body{}"),
				ModTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			},
			"js/app.a1b2c3d4.js": &fstest.MapFile{
				Data:    []byte("console.log(1)"),
				ModTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			},
		}
	}
	return newTestApp(t, Config{Static: static, Sync: SyncConfig{Disabled: true}})
}

func TestStaticServesFiles(t *testing.T) {
	app := staticTestApp(t, StaticConfig{})

	rec := get(app, "/static/app.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "body{}" {
		t.Errorf("unexpected body %q", got)
	}

	rec = get(app, "/static/js/app.a1b2c3d4.js")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for nested file, got %d", rec.Code)
	}
}

func TestStaticMissingFileIs404(t *testing.T) {
	app := staticTestApp(t, StaticConfig{})

	rec := get(app, "/static/missing.css")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStaticBlocksTraversal(t *testing.T) {
	fsys := fstest.MapFS{
		"public/ok.txt": &fstest.MapFile{Data: []byte("ok")},
		"secret.txt":    &fstest.MapFile{Data: []byte("secret")},
	}
	sub, err := fs.Sub(fsys, "public")
	if err != nil {
		t.Fatal(err)
	}
	app := staticTestApp(t, StaticConfig{FS: sub})

	if rec := get(app, "/static/ok.txt"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for ok.txt, got %d", rec.Code)
	}

	for _, p := range []string{
		"/static/../secret.txt",
		"/static//etc/passwd",
		"/static/./secret.txt",
		"/static/a/../../secret.txt",
		"/static/..\\secret.txt",
	} {
		req := httptest.NewRequest(http.MethodGet, "http://example.com"+p, nil)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)

		if rec.Code == http.StatusOK && strings.Contains(rec.Body.String(), "secret") {
			t.Errorf("GET %s unexpectedly served escaped content", p)
		}
	}
}

func TestStaticCacheHeaders(t *testing.T) {
	app := staticTestApp(t, StaticConfig{CacheControl: CacheControlProduction})

	rec := get(app, "/static/js/app.a1b2c3d4.js")
	if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "immutable") {
		t.Errorf("fingerprinted asset: expected immutable cache header, got %q", got)
	}

	rec = get(app, "/static/app.css")
	if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "max-age=3600") {
		t.Errorf("plain asset: expected revalidating cache header, got %q", got)
	}

	devApp := staticTestApp(t, StaticConfig{CacheControl: CacheControlNone})
	rec = get(devApp, "/static/app.css")
	if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("expected no-store in dev strategy, got %q", got)
	}
}

func TestStaticCustomHeaders(t *testing.T) {
	app := staticTestApp(t, StaticConfig{
		Headers: map[string]string{"X-Content-Type-Options": "nosniff"},
	})

	rec := get(app, "/static/app.css")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected custom header, got %q", got)
	}
}

func TestIsFingerprinted(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"app.a1b2c3d4.css", true},
		{"js/bundle.deadbeefcafe.js", true},
		{"app.css", false},
		{"app.min.css", false},
		{"app.xyz12345.css", false},
	}
	for _, tc := range cases {
		if got := isFingerprinted(tc.path); got != tc.want {
			t.Errorf("isFingerprinted(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
