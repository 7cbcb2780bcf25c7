package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"loandesk-backend/internal/shared/storage/object"
)

// fakeStore is an in-memory object.Store with per-key failure injection.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	modified map[string]time.Time
	putErr   error
	listErr  error
	puts     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:  make(map[string][]byte),
		modified: make(map[string]time.Time),
	}
}

func (f *fakeStore) Put(ctx context.Context, key, contentType string, metadata map[string]string, r io.Reader) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return 0, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.objects[key] = data
	f.modified[key] = time.Now()
	return int64(len(data)), nil
}

func (f *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", key, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]object.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []object.Info
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, object.Info{Key: key, SizeBytes: int64(len(data)), LastModified: f.modified[key]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeStore) ListFolders(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	seen := make(map[string]struct{})
	for key := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, "/"); i > 0 {
			seen[rest[:i]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for folder := range seen {
		out = append(out, folder)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	delete(f.modified, key)
	return nil
}

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func (f *fakeStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for key := range f.objects {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

var _ object.Store = (*fakeStore)(nil)

// flakyRepo wraps a MemoryRepo, failing the first failures inserts with the
// given error.
type flakyRepo struct {
	*MemoryRepo
	failures int
	insertErr error
	inserts  int
}

func (r *flakyRepo) Insert(ctx context.Context, doc Document) error {
	r.inserts++
	if r.inserts <= r.failures {
		return r.insertErr
	}
	return r.MemoryRepo.Insert(ctx, doc)
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:27017: connect: connection refused")
