// Package pcloud is a thin client for the pCloud HTTP API. Every call
// carries the caller's access token; the package holds no credentials of
// its own.
package pcloud

import (
	"context"
	"fmt"
	"io"
)

// API result codes this client cares about beyond plain success.
const (
	ResultOK               = 0
	ResultLoginRequired    = 1000
	ResultLoginFailed      = 2000
	ResultAccessDenied     = 2003
	ResultFolderNotFound   = 2005
	ResultInvalidToken     = 2094
	ResultFolderExists     = 2004
	ResultQuotaExceeded    = 2008
	ResultInternalError    = 5000
	ResultInternalUploadER = 5001
)

// Error is a non-zero result from the API envelope.
type Error struct {
	Result  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("pcloud: result %d: %s", e.Result, e.Message)
}

// AuthFailure reports whether the error means the stored token is missing,
// expired or revoked, as opposed to a folder or quota problem.
func (e *Error) AuthFailure() bool {
	switch e.Result {
	case ResultLoginRequired, ResultLoginFailed, ResultInvalidToken:
		return true
	}
	return false
}

// UserInfo is the subset of the userinfo response the app surfaces.
type UserInfo struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailverified"`
	Premium       bool   `json:"premium"`
	Quota         int64  `json:"quota"`
	UsedQuota     int64  `json:"usedquota"`
}

// Folder is a node in the remote folder tree. Contents holds child folders
// only; files are never listed by this client.
type Folder struct {
	FolderID int64    `json:"folderid"`
	Name     string   `json:"name"`
	Contents []Folder `json:"contents,omitempty"`
}

// FileMeta describes an uploaded file.
type FileMeta struct {
	FileID int64  `json:"fileid"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
}

// Client is the remote-storage surface the rest of the app depends on.
type Client interface {
	// Login exchanges credentials for an access token.
	Login(ctx context.Context, username, password string) (string, error)
	// UserInfo validates the token and returns account details.
	UserInfo(ctx context.Context, token string) (*UserInfo, error)
	// ListFolder returns one folder and, when recursive, its whole subtree
	// of folders. Files are excluded.
	ListFolder(ctx context.Context, token string, folderID int64, recursive bool) (*Folder, error)
	// CreateFolderIfNotExists returns the existing folder when the name is
	// already taken, making it safe to call concurrently.
	CreateFolderIfNotExists(ctx context.Context, token string, parentID int64, name string) (*Folder, error)
	// CreateFolder fails with ResultFolderExists when the name is taken.
	CreateFolder(ctx context.Context, token string, parentID int64, name string) (*Folder, error)
	// UploadFile stores data as name inside folderID.
	UploadFile(ctx context.Context, token string, folderID int64, name string, data io.Reader) (*FileMeta, error)
	// Logout invalidates the token server-side.
	Logout(ctx context.Context, token string) error
}
