package service

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

var cleaned = []byte("cleaned-by-api")

// fakeAPI answers every erase call with cleaned and counts the calls.
type fakeAPI struct {
	*httptest.Server
	hits   int32
	status int
}

func newFakeAPI(t *testing.T, status int) *fakeAPI {
	t.Helper()
	api := &fakeAPI{status: status}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&api.hits, 1)
		w.WriteHeader(api.status)
		if api.status != http.StatusOK {
			_, _ = io.WriteString(w, "upstream unavailable")
			return
		}
		_, _ = io.WriteString(w, `{"edited_image":{"image":"`+base64.StdEncoding.EncodeToString(cleaned)+`"}}`)
	}))
	t.Cleanup(api.Close)
	return api
}

func (a *fakeAPI) Hits() int {
	return int(atomic.LoadInt32(&a.hits))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
