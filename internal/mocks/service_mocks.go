package mocks

import (
	"context"

	"gamebook-server/internal/ledger"
	"gamebook-server/internal/messaging"
	"gamebook-server/internal/model"
	"gamebook-server/internal/narrative"
	"gamebook-server/internal/service"
	"gamebook-server/internal/watcher"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"
)

// MockChain is a mock type for the ledger.Chain type
type MockChain struct {
	mock.Mock
}

func (_m *MockChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ret := _m.Called(ctx)
	var r0 solana.Hash
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(solana.Hash)
	}
	return r0, ret.Error(1)
}

func (_m *MockChain) RecentSignatures(ctx context.Context, address solana.PublicKey, limit int) ([]ledger.SignatureInfo, error) {
	ret := _m.Called(ctx, address, limit)
	var r0 []ledger.SignatureInfo
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]ledger.SignatureInfo)
	}
	return r0, ret.Error(1)
}

func (_m *MockChain) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	ret := _m.Called(ctx, address)
	var r0 []byte
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	return r0, ret.Error(1)
}

func (_m *MockChain) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ret := _m.Called(ctx, tx)
	var r0 solana.Signature
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(solana.Signature)
	}
	return r0, ret.Error(1)
}

func NewMockChain(t testingT) *MockChain {
	m := &MockChain{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ ledger.Chain = (*MockChain)(nil)

// MockFeeOracle is a mock type for the service.FeeOracle type
type MockFeeOracle struct {
	mock.Mock
}

func (_m *MockFeeOracle) ComputeFee(ctx context.Context) uint64 {
	ret := _m.Called(ctx)
	return ret.Get(0).(uint64)
}

func NewMockFeeOracle(t testingT) *MockFeeOracle {
	m := &MockFeeOracle{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.FeeOracle = (*MockFeeOracle)(nil)

// MockProgressAccounts is a mock type for the service.ProgressAccounts type
type MockProgressAccounts struct {
	mock.Mock
}

func (_m *MockProgressAccounts) Ensure(ctx context.Context, reader solana.PublicKey) (solana.PublicKey, bool, error) {
	ret := _m.Called(ctx, reader)
	var r0 solana.PublicKey
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(solana.PublicKey)
	}
	return r0, ret.Bool(1), ret.Error(2)
}

func (_m *MockProgressAccounts) IncrementChapter(ctx context.Context, reader solana.PublicKey) error {
	ret := _m.Called(ctx, reader)
	return ret.Error(0)
}

func NewMockProgressAccounts(t testingT) *MockProgressAccounts {
	m := &MockProgressAccounts{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.ProgressAccounts = (*MockProgressAccounts)(nil)

// MockWatcher is a mock type for the watcher.Watcher type
type MockWatcher struct {
	mock.Mock
}

func (_m *MockWatcher) Await(ctx context.Context, payer solana.PublicKey, tag string) watcher.Match {
	ret := _m.Called(ctx, payer, tag)
	if rf, ok := ret.Get(0).(func(context.Context, solana.PublicKey, string) watcher.Match); ok {
		return rf(ctx, payer, tag)
	}
	return ret.Get(0).(watcher.Match)
}

func NewMockWatcher(t testingT) *MockWatcher {
	m := &MockWatcher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ watcher.Watcher = (*MockWatcher)(nil)

// MockNarrator is a mock type for the service.Narrator type
type MockNarrator struct {
	mock.Mock
}

func (_m *MockNarrator) Consequence(ctx context.Context, reader, priorText, choice string) (string, error) {
	ret := _m.Called(ctx, reader, priorText, choice)
	return ret.String(0), ret.Error(1)
}

func (_m *MockNarrator) NextScene(ctx context.Context, reader, storySoFar string) (narrative.NextScene, error) {
	ret := _m.Called(ctx, reader, storySoFar)
	var r0 narrative.NextScene
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(narrative.NextScene)
	}
	return r0, ret.Error(1)
}

func NewMockNarrator(t testingT) *MockNarrator {
	m := &MockNarrator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.Narrator = (*MockNarrator)(nil)

// MockAssetReader is a mock type for the service.AssetReader type
type MockAssetReader struct {
	mock.Mock
}

func (_m *MockAssetReader) Fetch(ctx context.Context, asset solana.PublicKey) (ledger.AssetInfo, error) {
	ret := _m.Called(ctx, asset)
	var r0 ledger.AssetInfo
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(ledger.AssetInfo)
	}
	return r0, ret.Error(1)
}

func NewMockAssetReader(t testingT) *MockAssetReader {
	m := &MockAssetReader{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.AssetReader = (*MockAssetReader)(nil)

// MockMetadataReader is a mock type for the service.MetadataReader type
type MockMetadataReader struct {
	mock.Mock
}

func (_m *MockMetadataReader) Fetch(ctx context.Context, uri string) (model.SceneMetadata, error) {
	ret := _m.Called(ctx, uri)
	var r0 model.SceneMetadata
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(model.SceneMetadata)
	}
	return r0, ret.Error(1)
}

func NewMockMetadataReader(t testingT) *MockMetadataReader {
	m := &MockMetadataReader{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.MetadataReader = (*MockMetadataReader)(nil)

// MockNotifier is a mock type for the messaging.Notifier type
type MockNotifier struct {
	mock.Mock
}

func (_m *MockNotifier) NotifySceneAdvanced(ctx context.Context, event messaging.SceneAdvanced) error {
	ret := _m.Called(ctx, event)
	return ret.Error(0)
}

func NewMockNotifier(t testingT) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ messaging.Notifier = (*MockNotifier)(nil)
