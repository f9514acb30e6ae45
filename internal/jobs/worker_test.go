package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rateboard-io/corpus/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockChunkRepository is a mock implementation of ChunkRepository
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) InsertEmbedding(ctx context.Context, embedding *domain.Embedding) error {
	args := m.Called(ctx, embedding)
	return args.Error(0)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingClient) Model() string {
	return "text-embedding-test"
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in goroutine
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// Let it run for a bit
	time.Sleep(250 * time.Millisecond)

	// Stop worker
	worker.Stop()
	wg.Wait()

	// Verify ProcessJobs was called at least once
	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_RunsImmediately tests that the first pass does not wait for a tick
func TestWorker_RunsImmediately(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	// Poll interval far longer than the test runtime
	worker := NewWorker(mockProcessor, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertNumberOfCalls(t, "ProcessJobs", 1)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	// Start worker in goroutine
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// Let it run for a bit
	time.Sleep(150 * time.Millisecond)

	// Cancel context
	cancel()
	wg.Wait()

	// Verify ProcessJobs was called
	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContinuesAfterProcessorError tests the loop survives processor failures
func TestWorker_ContinuesAfterProcessorError(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("transient failure"))

	worker := NewWorker(mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(180 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	// The immediate pass plus at least two ticks despite every pass failing
	calls := len(mockProcessor.Calls)
	assert.GreaterOrEqual(t, calls, 3)
}

// TestEmbeddingRepairWorker_NoPendingChunks tests when every chunk has an embedding
func TestEmbeddingRepairWorker_NoPendingChunks(t *testing.T) {
	mockChunks := new(MockChunkRepository)
	mockEmbedder := new(MockEmbeddingClient)

	mockChunks.On("ListMissingEmbeddings", mock.Anything, DefaultRepairBatchSize).Return([]*domain.Chunk{}, nil)

	worker := NewEmbeddingRepairWorker(mockChunks, mockEmbedder, 0)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockChunks.AssertExpectations(t)
	mockEmbedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	mockChunks.AssertNotCalled(t, "InsertEmbedding", mock.Anything, mock.Anything)
}

// TestEmbeddingRepairWorker_RepairsChunks tests successful embedding backfill
func TestEmbeddingRepairWorker_RepairsChunks(t *testing.T) {
	mockChunks := new(MockChunkRepository)
	mockEmbedder := new(MockEmbeddingClient)

	pending := []*domain.Chunk{
		{ID: "chunk-1", DocumentID: "doc-1", ChunkIndex: 0, Content: "Standard double room rates."},
		{ID: "chunk-2", DocumentID: "doc-1", ChunkIndex: 1, Content: "Breakfast included from April."},
	}

	mockChunks.On("ListMissingEmbeddings", mock.Anything, 10).Return(pending, nil)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "Standard double room rates.").Return([]float32{0.1, 0.2}, nil)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "Breakfast included from April.").Return([]float32{0.3, 0.4}, nil)

	mockChunks.On("InsertEmbedding", mock.Anything, mock.MatchedBy(func(e *domain.Embedding) bool {
		return e.ChunkID == "chunk-1" && e.Model == "text-embedding-test" && e.ID != "" && len(e.Vector) == 2
	})).Return(nil)
	mockChunks.On("InsertEmbedding", mock.Anything, mock.MatchedBy(func(e *domain.Embedding) bool {
		return e.ChunkID == "chunk-2" && e.Model == "text-embedding-test" && e.ID != "" && len(e.Vector) == 2
	})).Return(nil)

	worker := NewEmbeddingRepairWorker(mockChunks, mockEmbedder, 10)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockChunks.AssertExpectations(t)
	mockEmbedder.AssertExpectations(t)
}

// TestEmbeddingRepairWorker_ContinuesAfterFailure tests one failed chunk does not block the rest
func TestEmbeddingRepairWorker_ContinuesAfterFailure(t *testing.T) {
	mockChunks := new(MockChunkRepository)
	mockEmbedder := new(MockEmbeddingClient)

	pending := []*domain.Chunk{
		{ID: "chunk-1", DocumentID: "doc-1", ChunkIndex: 0, Content: "first"},
		{ID: "chunk-2", DocumentID: "doc-1", ChunkIndex: 1, Content: "second"},
	}

	mockChunks.On("ListMissingEmbeddings", mock.Anything, 10).Return(pending, nil)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "first").Return(nil, errors.New("rate limited"))
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "second").Return([]float32{0.5}, nil)
	mockChunks.On("InsertEmbedding", mock.Anything, mock.MatchedBy(func(e *domain.Embedding) bool {
		return e.ChunkID == "chunk-2"
	})).Return(nil)

	worker := NewEmbeddingRepairWorker(mockChunks, mockEmbedder, 10)
	err := worker.ProcessJobs(context.Background())

	// Per-chunk failures are logged, not returned
	assert.NoError(t, err)
	mockChunks.AssertExpectations(t)
	mockEmbedder.AssertExpectations(t)
	mockChunks.AssertNumberOfCalls(t, "InsertEmbedding", 1)
}

// TestEmbeddingRepairWorker_InsertFailureContinues tests a failed insert does not block the rest
func TestEmbeddingRepairWorker_InsertFailureContinues(t *testing.T) {
	mockChunks := new(MockChunkRepository)
	mockEmbedder := new(MockEmbeddingClient)

	pending := []*domain.Chunk{
		{ID: "chunk-1", DocumentID: "doc-1", ChunkIndex: 0, Content: "first"},
		{ID: "chunk-2", DocumentID: "doc-1", ChunkIndex: 1, Content: "second"},
	}

	mockChunks.On("ListMissingEmbeddings", mock.Anything, 10).Return(pending, nil)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "first").Return([]float32{0.1}, nil)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "second").Return([]float32{0.2}, nil)
	mockChunks.On("InsertEmbedding", mock.Anything, mock.MatchedBy(func(e *domain.Embedding) bool {
		return e.ChunkID == "chunk-1"
	})).Return(errors.New("connection reset"))
	mockChunks.On("InsertEmbedding", mock.Anything, mock.MatchedBy(func(e *domain.Embedding) bool {
		return e.ChunkID == "chunk-2"
	})).Return(nil)

	worker := NewEmbeddingRepairWorker(mockChunks, mockEmbedder, 10)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockChunks.AssertExpectations(t)
	mockEmbedder.AssertExpectations(t)
}

// TestEmbeddingRepairWorker_ListError tests repository error handling
func TestEmbeddingRepairWorker_ListError(t *testing.T) {
	mockChunks := new(MockChunkRepository)
	mockEmbedder := new(MockEmbeddingClient)

	mockChunks.On("ListMissingEmbeddings", mock.Anything, 10).Return(nil, errors.New("database error"))

	worker := NewEmbeddingRepairWorker(mockChunks, mockEmbedder, 10)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list chunks missing embeddings")
	mockChunks.AssertExpectations(t)
	mockEmbedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

// TestEmbeddingRepairWorker_StopsOnCancelledContext tests the pass aborts mid-batch
func TestEmbeddingRepairWorker_StopsOnCancelledContext(t *testing.T) {
	mockChunks := new(MockChunkRepository)
	mockEmbedder := new(MockEmbeddingClient)

	pending := []*domain.Chunk{
		{ID: "chunk-1", DocumentID: "doc-1", ChunkIndex: 0, Content: "first"},
		{ID: "chunk-2", DocumentID: "doc-1", ChunkIndex: 1, Content: "second"},
	}

	ctx, cancel := context.WithCancel(context.Background())

	mockChunks.On("ListMissingEmbeddings", mock.Anything, 10).Return(pending, nil)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "first").Run(func(args mock.Arguments) {
		cancel()
	}).Return([]float32{0.1}, nil)
	mockChunks.On("InsertEmbedding", mock.Anything, mock.Anything).Return(nil)

	worker := NewEmbeddingRepairWorker(mockChunks, mockEmbedder, 10)
	err := worker.ProcessJobs(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	mockEmbedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, "second")
}
