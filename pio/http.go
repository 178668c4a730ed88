package pio

import (
	"fmt"
	"net/url"

	"howett.net/ranger"
)

// URL is a Source reading a remote object with HTTP range requests.
type URL struct {
	url    string
	reader *ranger.Reader
	size   int64
}

// OpenURL opens the remote object at rawURL. The server must support range
// requests, report the content length of the object, and send an ETag or
// Last-Modified header so that reads of successive ranges are consistent.
func OpenURL(rawURL string) (*URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", rawURL, err)
	}

	reader, err := ranger.NewReader(&ranger.HTTPRanger{URL: u})
	if err != nil {
		return nil, wrapError("open", rawURL, 0, err)
	}

	size, err := reader.Length()
	if err != nil {
		return nil, wrapError("stat", rawURL, 0, err)
	}

	return &URL{url: rawURL, reader: reader, size: size}, nil
}

func (u *URL) Name() string { return u.url }

func (u *URL) Size() int64 { return u.size }

func (u *URL) Close() error { return nil }

func (u *URL) ReadAt(b []byte, off int64) (int, error) {
	n, err := u.reader.ReadAt(b, off)
	return n, wrapError("get", u.url, off, err)
}

// MultiReadAt satisfies the ReaderAt interface. The operations are issued
// sequentially on the shared range reader.
func (u *URL) MultiReadAt(ops []Op) {
	for i := range ops {
		op := &ops[i]
		n, err := u.ReadAt(op.Data, op.Off)
		op.Data, op.Err = op.Data[:n], err
	}
}

var (
	_ ReaderAt = (*URL)(nil)
	_ Source   = (*URL)(nil)
)
