package httpcore

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/corehttpd/corehttpd/internal/httperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMultipart(t *testing.T, fields map[string]string, files map[string]string) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return w.FormDataContentType(), buf.Bytes()
}

func TestIsMultipartFormData(t *testing.T) {
	b, ok := IsMultipartFormData("multipart/form-data; boundary=xyz")
	assert.True(t, ok)
	assert.Equal(t, "xyz", b)

	_, ok = IsMultipartFormData("application/json")
	assert.False(t, ok)
}

func TestParseMultipart_FieldsAndUploads(t *testing.T) {
	ct, body := buildMultipart(t, map[string]string{"name": "alice"}, map[string]string{"a.txt": "hello"})
	form, uploads, err := ParseMultipart(ct, body, 1<<20, 10)
	require.NoError(t, err)
	assert.Equal(t, "alice", form["name"])
	require.Len(t, uploads, 1)
	assert.Equal(t, "a.txt", uploads[0].FileName)
	assert.Equal(t, "hello", string(uploads[0].Data))
}

func TestParseMultipart_TooManyParts(t *testing.T) {
	ct, body := buildMultipart(t, map[string]string{"a": "1", "b": "2", "c": "3"}, nil)
	_, _, err := ParseMultipart(ct, body, 1<<20, 2)
	require.Error(t, err)
	assert.Equal(t, httperr.Malformed, httperr.KindOf(err))
}

func TestParseMultipart_OverSizeRejected(t *testing.T) {
	ct, body := buildMultipart(t, map[string]string{"a": "1"}, nil)
	_, _, err := ParseMultipart(ct, body, 1, 10)
	require.Error(t, err)
	e, ok := httperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 413, e.Status)
}

func TestParseMultipart_NotMultipartErrors(t *testing.T) {
	_, _, err := ParseMultipart("application/json", []byte("{}"), 1<<20, 10)
	require.Error(t, err)
	assert.Equal(t, httperr.Malformed, httperr.KindOf(err))
}
