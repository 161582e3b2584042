package fetcher

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
)

// rawCapture is an http.RoundTripper that keeps a copy of the most recent
// response body as read off the connection. Colly re-encodes bodies that
// declare a non-UTF-8 charset before its callbacks run; pages are
// fingerprinted over the bytes the server sent.
type rawCapture struct {
	next http.RoundTripper

	mu   sync.Mutex
	last *capturedBody
}

func newRawCapture(next http.RoundTripper) *rawCapture {
	if next == nil {
		next = http.DefaultTransport
	}
	return &rawCapture{next: next}
}

// capturedBody tees everything the reader consumes into buf.
type capturedBody struct {
	io.ReadCloser
	buf    bytes.Buffer
	usable bool
}

func (b *capturedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.buf.Write(p[:n])
	return n, err
}

func (t *rawCapture) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.Body == nil {
		return resp, err
	}

	body := &capturedBody{ReadCloser: resp.Body, usable: !compressed(req, resp)}
	resp.Body = body

	t.mu.Lock()
	t.last = body
	t.mu.Unlock()
	return resp, nil
}

// body returns the bytes read for the final response. ok is false when the
// wire bytes are still compressed and colly's decoded copy must be used.
func (t *rawCapture) body() (b []byte, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil || !t.last.usable {
		return nil, false
	}
	return t.last.buf.Bytes(), true
}

// compressed reports whether colly would gunzip this response itself. The
// Go transport removes Content-Encoding when it decompresses transparently.
func compressed(req *http.Request, resp *http.Response) bool {
	if resp.Header.Get("Content-Encoding") != "" {
		return true
	}
	return strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "gzip") ||
		strings.HasSuffix(strings.ToLower(req.URL.Path), ".xml.gz")
}
