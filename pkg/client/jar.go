package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// FileJar is a cookie jar that persists the cookies of one backend to disk
// after every change, so a session cookie survives between runs.
type FileJar struct {
	path string
	base *url.URL

	mu  sync.Mutex
	jar *cookiejar.Jar
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewFileJar loads cookies for baseURL from path if the file exists.
func NewFileJar(path, baseURL string) (*FileJar, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoBaseURL, baseURL)
	}
	jar, err := newJar()
	if err != nil {
		return nil, err
	}
	j := &FileJar{path: path, base: base, jar: jar}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return j, nil
	case err != nil:
		return nil, fmt.Errorf("client: read cookies: %w", err)
	}
	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		// an unreadable jar is an expired session, not a fatal error
		return j, nil
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, sc := range stored {
		cookies = append(cookies, &http.Cookie{Name: sc.Name, Value: sc.Value, Path: "/"})
	}
	jar.SetCookies(base, cookies)
	return j, nil
}

func newJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("client: cookie jar: %w", err)
	}
	return jar, nil
}

// SetCookies records cookies and persists the base URL's cookies. Write
// errors are ignored; the in-memory jar stays authoritative for this run.
func (j *FileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
	_ = j.saveLocked()
}

func (j *FileJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// Save writes the current cookies to disk.
func (j *FileJar) Save() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.saveLocked()
}

// Clear forgets every cookie and removes the file.
func (j *FileJar) Clear() error {
	jar, err := newJar()
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = jar
	if err := os.Remove(j.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("client: remove cookies: %w", err)
	}
	return nil
}

func (j *FileJar) saveLocked() error {
	cookies := j.jar.Cookies(j.base)
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("client: mkdir cookies: %w", err)
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("client: write cookies: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("client: write cookies: %w", err)
	}
	return nil
}
