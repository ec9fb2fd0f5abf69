package mocks

import (
	"context"

	"gamebook-server/internal/artwork"
	"gamebook-server/internal/pipeline"
	"gamebook-server/internal/storage"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Helper()
	Cleanup(func())
}

// MockRenderer is a mock type for the artwork.Renderer type
type MockRenderer struct {
	mock.Mock
}

// Render provides a mock function with given fields: ctx, sceneDescription
func (_m *MockRenderer) Render(ctx context.Context, sceneDescription string) (artwork.Image, error) {
	ret := _m.Called(ctx, sceneDescription)

	var r0 artwork.Image
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(artwork.Image)
	}
	return r0, ret.Error(1)
}

func NewMockRenderer(t testingT) *MockRenderer {
	m := &MockRenderer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ artwork.Renderer = (*MockRenderer)(nil)

// MockUploader is a mock type for the storage.Uploader type
type MockUploader struct {
	mock.Mock
}

// Upload provides a mock function with given fields: ctx, data, contentType, ext
func (_m *MockUploader) Upload(ctx context.Context, data []byte, contentType, ext string) (string, error) {
	ret := _m.Called(ctx, data, contentType, ext)
	return ret.String(0), ret.Error(1)
}

// UploadJSON provides a mock function with given fields: ctx, doc
func (_m *MockUploader) UploadJSON(ctx context.Context, doc interface{}) (string, error) {
	ret := _m.Called(ctx, doc)
	return ret.String(0), ret.Error(1)
}

func NewMockUploader(t testingT) *MockUploader {
	m := &MockUploader{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ storage.Uploader = (*MockUploader)(nil)

// MockMinter is a mock type for the pipeline.Minter type
type MockMinter struct {
	mock.Mock
}

// Mint provides a mock function with given fields: ctx, name, uri
func (_m *MockMinter) Mint(ctx context.Context, name, uri string) (solana.PublicKey, error) {
	ret := _m.Called(ctx, name, uri)

	var r0 solana.PublicKey
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(solana.PublicKey)
	}
	return r0, ret.Error(1)
}

// Transfer provides a mock function with given fields: ctx, asset, newOwner
func (_m *MockMinter) Transfer(ctx context.Context, asset, newOwner solana.PublicKey) error {
	ret := _m.Called(ctx, asset, newOwner)
	return ret.Error(0)
}

func NewMockMinter(t testingT) *MockMinter {
	m := &MockMinter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ pipeline.Minter = (*MockMinter)(nil)
