package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestFileCommit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.net")

	s, err := Open(context.Background(), path, Options{})
	require.NoError(t, err)
	_, err = io.WriteString(s, "*Vertices 0\n*Edges\n")
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "destination must not exist before commit")

	require.NoError(t, s.Commit(context.Background()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "*Vertices 0\n*Edges\n", string(data))
	assert.Equal(t, int64(len(data)), s.Written())
	assert.Equal(t, []string{"graph.net"}, dirEntries(t, dir), "temporary file must be gone")

	_, err = s.Write([]byte("more"))
	assert.ErrorIs(t, err, ErrCommitted)
	assert.NoError(t, s.Abort(), "abort after commit is a no-op")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileAbort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(path, []byte("previous export"), 0644))

	s, err := OpenFile(path, Options{})
	require.NoError(t, err)
	io.WriteString(s, `{"nodes": [`)
	require.NoError(t, s.Abort())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous export", string(data), "abort must leave the destination untouched")
	assert.Equal(t, []string{"graph.json"}, dirEntries(t, dir))
	assert.ErrorIs(t, s.Commit(context.Background()), ErrAborted)
}

func TestFileCommitCancelled(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFile(filepath.Join(dir, "out.net"), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Commit(ctx), context.Canceled)
	assert.Empty(t, dirEntries(t, dir))
}

func TestFileSnappy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json.sz")
	payload := bytes.Repeat([]byte(`{"name": "Alice"}`), 200)

	s, err := Open(context.Background(), path, Options{})
	require.NoError(t, err)
	_, err = s.Write(payload)
	require.NoError(t, err)
	require.NoError(t, s.Commit(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(snappy.NewReader(f))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Less(t, s.Written(), int64(len(payload)))
}

func TestFileEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.net")

	s, err := Open(context.Background(), path, Options{Encoding: "windows-1252"})
	require.NoError(t, err)
	io.WriteString(s, `1 "Café ☃"`)
	require.NoError(t, s.Commit(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// é is a single byte in windows-1252; the snowman is not representable
	assert.Equal(t, []byte{'1', ' ', '"', 'C', 'a', 'f', 0xE9, ' '}, data[:8])
	assert.NotContains(t, string(data), "☃")
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "utf-8", "UTF8", "latin1", "windows-1252", "shift_jis"} {
		_, err := LookupEncoding(name)
		assert.NoError(t, err, name)
	}
	_, err := LookupEncoding("klingon")
	assert.ErrorIs(t, err, ErrUnknownEncoding)

	_, err = Open(context.Background(), filepath.Join(t.TempDir(), "x"), Options{Encoding: "klingon"})
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}

// mockS3 is a thread-safe in-memory S3 backend for testing.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Commit(t *testing.T) {
	mock := newMockS3()
	s, err := Open(context.Background(), "s3://exports/graphs/people.json", Options{S3: S3Options{Client: mock}})
	require.NoError(t, err)

	io.WriteString(s, `{"nodes": [], "edges": []}`)
	assert.Empty(t, mock.objects, "nothing is uploaded before commit")

	require.NoError(t, s.Commit(context.Background()))
	assert.Equal(t, `{"nodes": [], "edges": []}`, string(mock.objects["exports/graphs/people.json"]))
	assert.Equal(t, "s3://exports/graphs/people.json", s.Destination())
}

func TestS3Abort(t *testing.T) {
	mock := newMockS3()
	s, err := OpenS3(context.Background(), "s3://exports/graph.net", Options{S3: S3Options{Client: mock}})
	require.NoError(t, err)

	io.WriteString(s, "*Vertices 1\n")
	require.NoError(t, s.Abort())
	assert.Empty(t, mock.objects)
	_, err = os.Stat(s.spool.Name())
	assert.True(t, os.IsNotExist(err), "spool file must be removed")
}

func TestS3UploadFailure(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("access denied")
	s, err := OpenS3(context.Background(), "s3://exports/graph.net", Options{S3: S3Options{Client: mock}})
	require.NoError(t, err)

	err = s.Commit(context.Background())
	assert.ErrorIs(t, err, mock.putErr)
	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrAborted)
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		url     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://b/k", "b", "k", false},
		{"s3://exports/a/b/graph.json.sz", "exports", "a/b/graph.json.sz", false},
		{"s3://bucket-only", "", "", true},
		{"s3://bucket/dir/", "", "", true},
		{"s3:///key", "", "", true},
		{"/tmp/graph.net", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			bucket, key, err := ParseS3URL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDestination)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestOpenEmptyDestination(t *testing.T) {
	_, err := Open(context.Background(), "", Options{})
	assert.ErrorIs(t, err, ErrInvalidDestination)
}
