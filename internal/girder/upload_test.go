package girder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkServer emulates Girder's two-step upload and records every chunk.
type chunkServer struct {
	t        *testing.T
	size     int64
	received bytes.Buffer
	offsets  []int64
	initQ    map[string]string
}

func (s *chunkServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch r.URL.Path {
	case "/file":
		s.initQ = map[string]string{}
		for k := range q {
			s.initQ[k] = q.Get(k)
		}

		if s.size == 0 {
			writeJSON(s.t, w, http.StatusOK, `{"_id":"file0","_modelType":"file","name":"`+q.Get("name")+`","itemId":"i1","size":0}`)

			return
		}

		writeJSON(s.t, w, http.StatusOK, `{"_id":"up1","_modelType":"upload","received":0}`)
	case "/file/chunk":
		assert.Equal(s.t, "up1", q.Get("uploadId"))
		assert.Equal(s.t, "application/octet-stream", r.Header.Get("Content-Type"))

		off, err := strconv.ParseInt(q.Get("offset"), 10, 64)
		require.NoError(s.t, err)
		s.offsets = append(s.offsets, off)

		body, err := io.ReadAll(r.Body)
		require.NoError(s.t, err)
		s.received.Write(body)

		if int64(s.received.Len()) >= s.size {
			writeJSON(s.t, w, http.StatusOK, fmt.Sprintf(
				`{"_id":"file1","_modelType":"file","name":"data.bin","itemId":"i1","size":%d,"mimeType":"text/plain"}`,
				s.received.Len()))

			return
		}

		writeJSON(s.t, w, http.StatusOK, fmt.Sprintf(`{"_id":"up1","_modelType":"upload","received":%d}`, s.received.Len()))
	default:
		s.t.Errorf("unexpected path %s", r.URL.Path)
	}
}

func TestUploadFile_Chunked(t *testing.T) {
	content := strings.Repeat("0123456789", 25)
	cs := &chunkServer{t: t, size: int64(len(content))}
	srv := httptest.NewServer(cs)
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(o *Options) { o.ChunkSize = 100 })

	var progress []int64

	f, err := c.UploadFile(context.Background(), ParentItem, "i1", "data.bin",
		strings.NewReader(content), int64(len(content)), "text/plain",
		ProgressFunc(func(n int64) { progress = append(progress, n) }))
	require.NoError(t, err)

	assert.Equal(t, "file1", f.ID)
	assert.Equal(t, int64(250), f.Size)
	assert.Equal(t, content, cs.received.String())
	assert.Equal(t, []int64{0, 100, 200}, cs.offsets)
	assert.Equal(t, []int64{100, 200, 250}, progress)

	assert.Equal(t, "item", cs.initQ["parentType"])
	assert.Equal(t, "i1", cs.initQ["parentId"])
	assert.Equal(t, "250", cs.initQ["size"])
	assert.Equal(t, "text/plain", cs.initQ["mimeType"])
}

func TestUploadFile_ZeroBytes(t *testing.T) {
	cs := &chunkServer{t: t}
	srv := httptest.NewServer(cs)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var progress []int64

	f, err := c.UploadFile(context.Background(), ParentItem, "i1", "empty",
		strings.NewReader(""), 0, "",
		ProgressFunc(func(n int64) { progress = append(progress, n) }))
	require.NoError(t, err)

	assert.Equal(t, "file0", f.ID)
	assert.Equal(t, []int64{0}, progress)
	assert.Empty(t, cs.offsets)
	assert.Equal(t, "application/octet-stream", cs.initQ["mimeType"])
}

func TestUploadFile_ShortSource(t *testing.T) {
	cs := &chunkServer{t: t, size: 10}
	srv := httptest.NewServer(cs)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.UploadFile(context.Background(), ParentItem, "i1", "short",
		strings.NewReader("abc"), 10, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source ended at 3 of 10 bytes")
	assert.Empty(t, cs.offsets)
}

func TestUploadFile_ChunkRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/file" {
			writeJSON(t, w, http.StatusOK, `{"_id":"up1","_modelType":"upload"}`)

			return
		}

		writeJSON(t, w, http.StatusBadRequest, `{"message":"Server has received 0 bytes","type":"validation"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.UploadFile(context.Background(), ParentItem, "i1", "x",
		strings.NewReader("abc"), 3, "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRequest)
}
