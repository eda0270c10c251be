package pcloud

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockClient) UserInfo(ctx context.Context, token string) (*UserInfo, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserInfo), args.Error(1)
}

func (m *MockClient) ListFolder(ctx context.Context, token string, folderID int64, recursive bool) (*Folder, error) {
	args := m.Called(ctx, token, folderID, recursive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Folder), args.Error(1)
}

func (m *MockClient) CreateFolderIfNotExists(ctx context.Context, token string, parentID int64, name string) (*Folder, error) {
	args := m.Called(ctx, token, parentID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Folder), args.Error(1)
}

func (m *MockClient) CreateFolder(ctx context.Context, token string, parentID int64, name string) (*Folder, error) {
	args := m.Called(ctx, token, parentID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Folder), args.Error(1)
}

func (m *MockClient) UploadFile(ctx context.Context, token string, folderID int64, name string, data io.Reader) (*FileMeta, error) {
	args := m.Called(ctx, token, folderID, name, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FileMeta), args.Error(1)
}

func (m *MockClient) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
