package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveStore implements Store on Google Drive. Logical paths are resolved
// to folder IDs on demand and cached for the lifetime of the store. The
// cache is not goroutine safe; the orchestrator's single-flight discipline
// guarantees one sync cycle uses it at a time.
type DriveStore struct {
	service   *drive.Service
	rootID    string
	folderIDs map[string]string // logical folder path -> Drive folder ID
}

// NewDriveStore creates a Drive-backed store rooted at the given folder ID.
func NewDriveStore(service *drive.Service, rootID string) *DriveStore {
	return &DriveStore{
		service:   service,
		rootID:    rootID,
		folderIDs: make(map[string]string),
	}
}

// ResolveRootFolder finds or creates the named library folder under the
// user's Drive root and returns its ID.
func ResolveRootFolder(ctx context.Context, service *drive.Service, name string) (string, error) {
	s := &DriveStore{service: service, rootID: "root", folderIDs: make(map[string]string)}

	id, err := s.findChild(ctx, "root", name, true)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	return s.createFolder(ctx, "root", name)
}

// Upsert creates or overwrites the file at path and returns its Drive ID.
// Find-or-create keeps the operation idempotent: re-pushing unchanged
// content updates the one existing file.
func (s *DriveStore) Upsert(ctx context.Context, p string, content []byte) (string, error) {
	dir, name := path.Split(p)
	parentID, err := s.resolveFolder(ctx, strings.TrimSuffix(dir, "/"), true)
	if err != nil {
		return "", err
	}

	existingID, err := s.findChild(ctx, parentID, name, false)
	if err != nil {
		return "", err
	}

	if existingID != "" {
		call := s.service.Files.Update(existingID, &drive.File{}).
			Context(ctx).
			Media(bytes.NewReader(content)).
			Fields("id")
		result, err := call.Do()
		if err != nil {
			return "", mapErr("update file", err)
		}
		return result.Id, nil
	}

	file := &drive.File{
		Name:    name,
		Parents: []string{parentID},
	}
	call := s.service.Files.Create(file).
		Context(ctx).
		Media(bytes.NewReader(content)).
		Fields("id")
	result, err := call.Do()
	if err != nil {
		return "", mapErr("create file", err)
	}
	return result.Id, nil
}

// Read returns the content of the file at path, or ErrRemoteNotFound.
func (s *DriveStore) Read(ctx context.Context, p string) ([]byte, error) {
	fileID, err := s.fileID(ctx, p)
	if err != nil {
		return nil, err
	}

	resp, err := s.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, mapErr("download file", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapErr("read file content", err)
	}
	return content, nil
}

// List returns the child names of a folder, or ErrRemoteNotFound if the
// folder does not exist.
func (s *DriveStore) List(ctx context.Context, folderPath string) ([]string, error) {
	folderID, err := s.resolveFolder(ctx, folderPath, false)
	if err != nil {
		return nil, err
	}

	var names []string
	pageToken := ""
	for {
		call := s.service.Files.List().
			Context(ctx).
			Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
			Fields("nextPageToken,files(name)").
			PageSize(1000)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		result, err := call.Do()
		if err != nil {
			return nil, mapErr("list folder", err)
		}
		for _, f := range result.Files {
			names = append(names, f.Name)
		}
		if result.NextPageToken == "" {
			break
		}
		pageToken = result.NextPageToken
	}
	return names, nil
}

// Delete trashes the file at path. Absent files are ignored.
func (s *DriveStore) Delete(ctx context.Context, p string) error {
	fileID, err := s.fileID(ctx, p)
	if err != nil {
		if errors.Is(err, ErrRemoteNotFound) {
			return nil
		}
		return err
	}

	_, err = s.service.Files.Update(fileID, &drive.File{Trashed: true}).
		Context(ctx).
		Do()
	if err != nil {
		return mapErr("trash file", err)
	}
	return nil
}

// fileID resolves a logical file path to a Drive file ID.
func (s *DriveStore) fileID(ctx context.Context, p string) (string, error) {
	dir, name := path.Split(p)
	parentID, err := s.resolveFolder(ctx, strings.TrimSuffix(dir, "/"), false)
	if err != nil {
		return "", err
	}

	id, err := s.findChild(ctx, parentID, name, false)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("file %s: %w", p, ErrRemoteNotFound)
	}
	return id, nil
}

// resolveFolder walks a logical folder path from the root, creating missing
// segments when create is set. Resolved IDs are cached.
func (s *DriveStore) resolveFolder(ctx context.Context, folderPath string, create bool) (string, error) {
	if folderPath == "" || folderPath == "." {
		return s.rootID, nil
	}
	if id, ok := s.folderIDs[folderPath]; ok {
		return id, nil
	}

	currentID := s.rootID
	currentPath := ""
	for _, part := range strings.Split(folderPath, "/") {
		if part == "" {
			continue
		}
		if currentPath == "" {
			currentPath = part
		} else {
			currentPath = currentPath + "/" + part
		}

		if id, ok := s.folderIDs[currentPath]; ok {
			currentID = id
			continue
		}

		id, err := s.findChild(ctx, currentID, part, true)
		if err != nil {
			return "", err
		}
		if id == "" {
			if !create {
				return "", fmt.Errorf("folder %s: %w", currentPath, ErrRemoteNotFound)
			}
			id, err = s.createFolder(ctx, currentID, part)
			if err != nil {
				return "", err
			}
		}

		s.folderIDs[currentPath] = id
		currentID = id
	}
	return currentID, nil
}

// findChild finds a child by name under a parent. folder selects between
// folder and file children. Returns "" when not found.
func (s *DriveStore) findChild(ctx context.Context, parentID, name string, folder bool) (string, error) {
	op := "mimeType != "
	if folder {
		op = "mimeType = "
	}
	query := fmt.Sprintf("'%s' in parents and name = '%s' and %s'%s' and trashed = false",
		parentID, escapeDriveQuery(name), op, folderMimeType)

	result, err := s.service.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id)").
		PageSize(1).
		Do()
	if err != nil {
		return "", mapErr("find child", err)
	}
	if len(result.Files) > 0 {
		return result.Files[0].Id, nil
	}
	return "", nil
}

func (s *DriveStore) createFolder(ctx context.Context, parentID, name string) (string, error) {
	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}
	result, err := s.service.Files.Create(folder).
		Context(ctx).
		Fields("id").
		Do()
	if err != nil {
		return "", mapErr("create folder", err)
	}
	return result.Id, nil
}

// escapeDriveQuery escapes a string for use in Drive API queries.
func escapeDriveQuery(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}

// mapErr classifies an API failure into the adapter's error taxonomy while
// keeping the original error in the chain.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%s: %w", op, errors.Join(ErrAuthExpired, err))
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401:
			return fmt.Errorf("%s: %w", op, errors.Join(ErrAuthExpired, err))
		case apiErr.Code == 403 && !isRateLimited(apiErr):
			return fmt.Errorf("%s: %w", op, errors.Join(ErrAuthExpired, err))
		case apiErr.Code == 404:
			return fmt.Errorf("%s: %w", op, errors.Join(ErrRemoteNotFound, err))
		}
	}

	// Timeouts, transport failures, and rate-limit 403s are all ErrNetwork
	// to the sync layer: transient, safe to retry on the next cycle.
	return fmt.Errorf("%s: %w", op, errors.Join(ErrNetwork, err))
}

// isRateLimited reports whether a 403 is Drive throttling rather than a
// credential or permission problem.
func isRateLimited(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return false
}
