package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	pages   map[string]*RawPage
	errs    map[string]error
	visited []string
	closed  int
}

func (s *fakeSession) Visit(ctx context.Context, url string, timeout time.Duration) (*RawPage, error) {
	s.visited = append(s.visited, url)
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if p, ok := s.pages[url]; ok {
		return p, nil
	}
	return nil, errors.New("net::ERR_CONNECTION_REFUSED at " + url)
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeLauncher struct {
	session  *fakeSession
	launches int
	err      error
}

func (l *fakeLauncher) Launch(ctx context.Context) (Session, error) {
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return l.session, nil
}

func TestNavigator_LazyLaunchAndReuse(t *testing.T) {
	session := &fakeSession{pages: map[string]*RawPage{
		"https://acme.example":         {URL: "https://acme.example/", HTML: `<title>Acme</title><a href="/careers">Careers</a>`},
		"https://acme.example/careers": {URL: "https://acme.example/careers", HTML: `<p>jobs@acme.example</p>`},
	}}
	launcher := &fakeLauncher{session: session}
	nav := NewNavigator(launcher, time.Second)

	assert.Equal(t, 0, launcher.launches, "nothing launched before first Open")

	home, err := nav.Open(context.Background(), "acme.example")
	require.NoError(t, err)
	assert.Equal(t, "Acme", home.Title)
	require.Len(t, home.Links, 1)
	assert.Equal(t, "https://acme.example/careers", home.Links[0].Href)

	careers, err := nav.Open(context.Background(), home.Links[0].Href)
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs@acme.example"}, careers.Emails)

	assert.Equal(t, 1, launcher.launches)
	assert.Equal(t, []string{"https://acme.example", "https://acme.example/careers"}, session.visited)

	require.NoError(t, nav.Close())
	require.NoError(t, nav.Close())
	assert.Equal(t, 1, session.closed)
}

func TestNavigator_CloseWithoutOpen(t *testing.T) {
	launcher := &fakeLauncher{session: &fakeSession{}}
	nav := NewNavigator(launcher, 0)

	assert.NoError(t, nav.Close())
	assert.Equal(t, 0, launcher.launches)
}

func TestNavigator_Errors(t *testing.T) {
	session := &fakeSession{errs: map[string]error{
		"https://nxdomain.example": errors.New("page.goto: net::ERR_NAME_NOT_RESOLVED at https://nxdomain.example"),
		"https://slow.example":     errors.New("Timeout 30000ms exceeded."),
		"https://guarded.example":  &NavigationError{URL: "https://guarded.example", Kind: KindBlocked, Err: errors.New("title")},
	}}
	nav := NewNavigator(&fakeLauncher{session: session}, time.Second)
	defer nav.Close()

	tests := []struct {
		url  string
		kind ErrorKind
	}{
		{url: "https://nxdomain.example", kind: KindDNS},
		{url: "https://slow.example", kind: KindTimeout},
		{url: "https://guarded.example", kind: KindBlocked},
		{url: "https://refused.example", kind: KindUnreachable},
		{url: "ftp://files.example", kind: KindInvalidURL},
		{url: "   ", kind: KindInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := nav.Open(context.Background(), tt.url)
			var ne *NavigationError
			require.ErrorAs(t, err, &ne)
			assert.Equal(t, tt.kind, ne.Kind)
		})
	}
}

func TestNavigator_LaunchFailure(t *testing.T) {
	nav := NewNavigator(&fakeLauncher{err: errors.New("no chromium")}, time.Second)

	_, err := nav.Open(context.Background(), "https://acme.example")

	var ne *NavigationError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, KindLaunch, ne.Kind)
	assert.NoError(t, nav.Close())
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"acme.example":            "https://acme.example",
		"http://acme.example/x":   "http://acme.example/x",
		"//cdn.acme.example/jobs": "https://cdn.acme.example/jobs",
	}
	for in, want := range tests {
		got, err := NormalizeURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := NormalizeURL("mailto:hr@acme.example")
	assert.Error(t, err)
}

func TestBlockedPage(t *testing.T) {
	assert.True(t, blockedPage("Just a moment...", 200))
	assert.True(t, blockedPage("Acme", 403))
	assert.False(t, blockedPage("Acme careers", 200))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindTimeout, classify("u", context.DeadlineExceeded).Kind)
	assert.Equal(t, KindBlocked, classify("u", errors.New("net::ERR_BLOCKED_BY_CLIENT")).Kind)
	assert.Equal(t, KindDNS, classify("u", errors.New("dial tcp: lookup x: no such host")).Kind)
}

func TestLoadCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	data := `[
		{"name": "consent", "value": "yes", "domain": ".acme.example", "sameSite": "Lax", "secure": true},
		{"name": "", "value": "skip", "domain": ".acme.example"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cookies, err := LoadCookies(path)
	require.NoError(t, err)
	require.Len(t, cookies, 1)

	c := cookies[0]
	assert.Equal(t, "consent", c.Name)
	assert.Equal(t, ".acme.example", *c.Domain)
	assert.Equal(t, "/", *c.Path)
	assert.True(t, *c.Secure)
	assert.Nil(t, c.HttpOnly)
	assert.Equal(t, playwright.SameSiteAttributeLax, c.SameSite)

	_, err = LoadCookies(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBlockCapture_PathPerHost(t *testing.T) {
	dir := t.TempDir()
	b := NewBlockCapture(filepath.Join(dir, "shots"))
	b.now = func() time.Time { return time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC) }

	assert.Equal(t, filepath.Join(dir, "shots", "acme_example_2026-05-01_09-30-00.png"), b.path("https://acme.example:8443/careers"))
	assert.Equal(t, filepath.Join(dir, "shots", "page_2026-05-01_09-30-00.png"), b.path("::not a url"))
	assert.DirExists(t, filepath.Join(dir, "shots"))
}
