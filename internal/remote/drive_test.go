package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// fakeDrive is a minimal in-memory Drive v3 backend covering the calls the
// adapter makes: files.list with parent/name queries, metadata and multipart
// creates, multipart updates, and alt=media downloads.
type fakeDrive struct {
	files  map[string]*fakeFile
	nextID int
}

type fakeFile struct {
	id      string
	name    string
	parent  string
	folder  bool
	trashed bool
	content []byte
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: make(map[string]*fakeFile)}
}

func (f *fakeDrive) newID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeDrive) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /drive/v3/files", f.list)
	mux.HandleFunc("POST /drive/v3/files", f.create)
	mux.HandleFunc("POST /upload/drive/v3/files", f.create)
	mux.HandleFunc("GET /drive/v3/files/{id}", f.get)
	mux.HandleFunc("PATCH /drive/v3/files/{id}", f.update)
	mux.HandleFunc("PATCH /upload/drive/v3/files/{id}", f.update)
	return mux
}

func (f *fakeDrive) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	parent := ""
	if i := strings.Index(q, "' in parents"); i > 0 {
		parent = q[strings.Index(q, "'")+1 : i]
	}
	name := ""
	if i := strings.Index(q, "name = '"); i >= 0 {
		rest := q[i+len("name = '"):]
		name = rest[:strings.Index(rest, "'")]
	}
	wantFolder := strings.Contains(q, "mimeType = '")
	wantFile := strings.Contains(q, "mimeType != '")

	type fileJSON struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	var out []fileJSON
	for _, file := range f.files {
		if file.trashed || (parent != "" && file.parent != parent) {
			continue
		}
		if name != "" && file.name != name {
			continue
		}
		if wantFolder && !file.folder {
			continue
		}
		if wantFile && file.folder {
			continue
		}
		out = append(out, fileJSON{ID: file.id, Name: file.name})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"files": out})
}

func (f *fakeDrive) create(w http.ResponseWriter, r *http.Request) {
	meta, content, err := decodeUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file := &fakeFile{
		id:      f.newID(),
		name:    meta.Name,
		folder:  meta.MimeType == "application/vnd.google-apps.folder",
		content: content,
	}
	if len(meta.Parents) > 0 {
		file.parent = meta.Parents[0]
	}
	f.files[file.id] = file
	_ = json.NewEncoder(w).Encode(map[string]any{"id": file.id, "name": file.name})
}

func (f *fakeDrive) get(w http.ResponseWriter, r *http.Request) {
	file, ok := f.files[r.PathValue("id")]
	if !ok {
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("alt") == "media" {
		_, _ = w.Write(file.content)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"id": file.id, "name": file.name})
}

func (f *fakeDrive) update(w http.ResponseWriter, r *http.Request) {
	file, ok := f.files[r.PathValue("id")]
	if !ok {
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
		return
	}

	meta, content, err := decodeUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if content != nil {
		file.content = content
	}
	if meta != nil && meta.Trashed {
		file.trashed = true
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"id": file.id, "name": file.name})
}

type uploadMeta struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents"`
	Trashed  bool     `json:"trashed"`
}

// decodeUpload handles both plain JSON metadata requests and
// multipart/related media uploads (metadata part + content part).
func decodeUpload(r *http.Request) (*uploadMeta, []byte, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil, err
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		var meta uploadMeta
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil && err != io.EOF {
			return nil, nil, err
		}
		return &meta, nil, nil
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	var meta uploadMeta
	var content []byte
	for i := 0; ; i++ {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		b, err := io.ReadAll(part)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			if err := json.Unmarshal(b, &meta); err != nil {
				return nil, nil, err
			}
		} else {
			content = b
		}
	}
	return &meta, content, nil
}

func newTestStore(t *testing.T, backend http.Handler) *DriveStore {
	t.Helper()

	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/drive/v3/"),
		option.WithHTTPClient(ts.Client()),
	)
	if err != nil {
		t.Fatalf("create drive service: %v", err)
	}
	return NewDriveStore(svc, "root")
}

func TestUpsert_CreateThenUpdate(t *testing.T) {
	backend := newFakeDrive()
	s := newTestStore(t, backend.handler())
	ctx := context.Background()

	id1, err := s.Upsert(ctx, "books/drafts/config.json", []byte(`{"chapters":[]}`))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if id1 == "" {
		t.Fatalf("expected file ID")
	}

	// Second upsert to the same path updates the same file: no duplicates.
	id2, err := s.Upsert(ctx, "books/drafts/config.json", []byte(`{"chapters":["a.md"]}`))
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if id2 != id1 {
		t.Errorf("second upsert created a new file: %s vs %s", id2, id1)
	}

	var configs int
	for _, file := range backend.files {
		if file.name == "config.json" {
			configs++
		}
	}
	if configs != 1 {
		t.Errorf("%d config.json files on remote, want 1", configs)
	}

	got, err := s.Read(ctx, "books/drafts/config.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != `{"chapters":["a.md"]}` {
		t.Errorf("content = %s", got)
	}
}

func TestRead_AbsentFileIsRemoteNotFound(t *testing.T) {
	s := newTestStore(t, newFakeDrive().handler())

	// Parent folders exist but the file doesn't.
	if _, err := s.Upsert(context.Background(), "books/drafts/other.md", []byte("x")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	_, err := s.Read(context.Background(), "books/drafts/config.json")
	if !errors.Is(err, ErrRemoteNotFound) {
		t.Fatalf("expected ErrRemoteNotFound, got %v", err)
	}
}

func TestList_AbsentFolderIsRemoteNotFound(t *testing.T) {
	s := newTestStore(t, newFakeDrive().handler())

	_, err := s.List(context.Background(), "books")
	if !errors.Is(err, ErrRemoteNotFound) {
		t.Fatalf("expected ErrRemoteNotFound, got %v", err)
	}
}

func TestList_ReturnsChildNames(t *testing.T) {
	s := newTestStore(t, newFakeDrive().handler())
	ctx := context.Background()

	for _, p := range []string{"books/drafts/config.json", "books/drafts/ch1.md"} {
		if _, err := s.Upsert(ctx, p, []byte("x")); err != nil {
			t.Fatalf("Upsert %s: %v", p, err)
		}
	}

	names, err := s.List(ctx, "books/drafts")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := strings.Join(sorted(names), ",")
	if got != "ch1.md,config.json" {
		t.Errorf("List = %v", names)
	}
}

func TestDelete_TrashesFileAndIgnoresAbsent(t *testing.T) {
	backend := newFakeDrive()
	s := newTestStore(t, backend.handler())
	ctx := context.Background()

	id, err := s.Upsert(ctx, "books/drafts/ch1.md", []byte("x"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Delete(ctx, "books/drafts/ch1.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !backend.files[id].trashed {
		t.Errorf("file not trashed")
	}

	// Deleting again is a no-op.
	if err := s.Delete(ctx, "books/drafts/ch1.md"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuthExpired},
		{"forbidden", http.StatusForbidden, ErrAuthExpired},
		{"server error", http.StatusInternalServerError, ErrNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, fmt.Sprintf(`{"error":{"code":%d}}`, tc.status), tc.status)
			}))

			_, err := s.Read(context.Background(), "books/drafts/config.json")
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMapErr_RateLimit403IsNetwork(t *testing.T) {
	cases := []struct {
		reason string
		want   error
	}{
		{"rateLimitExceeded", ErrNetwork},
		{"userRateLimitExceeded", ErrNetwork},
		{"dailyLimitExceeded", ErrNetwork},
		// A plain permission 403 still means the credential is no good.
		{"insufficientPermissions", ErrAuthExpired},
		{"", ErrAuthExpired},
	}
	for _, tc := range cases {
		apiErr := &googleapi.Error{Code: http.StatusForbidden}
		if tc.reason != "" {
			apiErr.Errors = []googleapi.ErrorItem{{Reason: tc.reason}}
		}

		err := mapErr("list folder", apiErr)
		if !errors.Is(err, tc.want) {
			t.Errorf("reason %q: got %v, want %v", tc.reason, err, tc.want)
		}
		if tc.want == ErrNetwork && errors.Is(err, ErrAuthExpired) {
			t.Errorf("reason %q: throttling must not read as an expired credential", tc.reason)
		}
	}
}

func TestResolveRootFolder_FindOrCreate(t *testing.T) {
	backend := newFakeDrive()

	ts := httptest.NewServer(backend.handler())
	t.Cleanup(ts.Close)
	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/drive/v3/"),
		option.WithHTTPClient(ts.Client()),
	)
	if err != nil {
		t.Fatalf("create drive service: %v", err)
	}

	id1, err := ResolveRootFolder(context.Background(), svc, "Scribe")
	if err != nil {
		t.Fatalf("ResolveRootFolder: %v", err)
	}
	id2, err := ResolveRootFolder(context.Background(), svc, "Scribe")
	if err != nil {
		t.Fatalf("second ResolveRootFolder: %v", err)
	}
	if id1 != id2 {
		t.Errorf("root folder duplicated: %s vs %s", id1, id2)
	}
}

func TestEscapeDriveQuery(t *testing.T) {
	if got := escapeDriveQuery(`it's a\file`); got != `it\'s a\\file` {
		t.Errorf("got %q", got)
	}
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}
