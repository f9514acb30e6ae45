//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rateboard-io/corpus/internal/api/handlers"
	"github.com/rateboard-io/corpus/internal/extract"
	"github.com/rateboard-io/corpus/internal/openai"
	"github.com/rateboard-io/corpus/internal/repository"
	"github.com/rateboard-io/corpus/internal/server"
	"github.com/rateboard-io/corpus/internal/service"
	"github.com/rateboard-io/corpus/internal/storage"
	"github.com/rateboard-io/corpus/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	Store        *storage.S3Store
	Embedder     *openai.Client
	Embeddings   *embeddingStub
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	// Start PostgreSQL container
	pgC := testutil.NewPostgresContainer(ctx, t)

	// Start RustFS container
	s3C := testutil.NewRustFSContainer(ctx, t)

	// Create connection pool and run migrations
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	// Create document store
	store, err := storage.NewS3Store(ctx, storage.S3StoreConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create document store: %v", err)
	}

	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	// Stand-in embedding API so tests never call OpenAI
	stub := newEmbeddingStub()
	embedder := openai.NewClientWithConfig(openai.Config{
		APIKey:  "test-key",
		BaseURL: stub.URL(),
	})

	// Find free port for server
	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	serverCloser := startServer(t, pool, store, embedder, port)

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		Store:        store,
		Embedder:     embedder,
		Embeddings:   stub,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}

	// Wait for server to be ready
	if err := waitForServer(serverURL + "/health"); err != nil {
		env.Cleanup()
		t.Fatalf("server failed to start: %v", err)
	}

	return env
}

// Cleanup tears down all E2E test resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Embeddings != nil {
		e.Embeddings.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		_ = e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		_ = e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinary builds the corpusd binary for CLI tests
func (e *E2ETestEnv) BuildBinary() {
	tmpDir, err := os.MkdirTemp("", "corpus-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "corpusd"), "./cmd/corpusd")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build corpusd: %v\n%s", err, out)
	}
}

// RunCorpusd runs the corpusd CLI against the test containers
func (e *E2ETestEnv) RunCorpusd(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "corpusd"), args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("CORPUS_DATABASE_URL=%s", e.PostgresC.ConnectionString()),
		fmt.Sprintf("CORPUS_S3_ENDPOINT=%s", e.RustFSC.Endpoint()),
		"CORPUS_S3_ACCESS_KEY_ID=rustfsadmin",
		"CORPUS_S3_SECRET_ACCESS_KEY=rustfsadmin",
		"CORPUS_S3_BUCKET=test-documents",
		"CORPUS_OPENAI_API_KEY=test-key",
		fmt.Sprintf("CORPUS_OPENAI_BASE_URL=%s", e.Embeddings.URL()),
		"CORPUS_EMBED_INTERVAL=10ms",
		"CORPUS_REPAIR_ENABLED=false",
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// startServer wires the full router against real repositories and returns a closer.
func startServer(t *testing.T, pool *pgxpool.Pool, store *storage.S3Store, embedder *openai.Client, port int) func() {
	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)

	// Short batch interval keeps multi-batch ingests fast in tests.
	ingestSvc := service.NewIngestServiceWithConfig(
		docRepo,
		chunkRepo,
		store,
		extract.New(),
		embedder,
		repository.NewTxRunner(pool),
		service.IngestConfig{
			Chunking:      service.DefaultChunkConfig(),
			BatchSize:     service.DefaultEmbedBatchSize,
			BatchInterval: 10 * time.Millisecond,
		},
	)
	docSvc := service.NewDocumentService(docRepo, store)
	retrievalSvc := service.NewRetrievalServiceWithSearchLog(
		repository.NewSearchRepository(pool),
		docRepo,
		chunkRepo,
		embedder,
		repository.NewSearchLogRepository(pool),
	)

	router := server.NewRouter(server.RouterConfig{
		DocumentsHandler: handlers.NewDocumentsHandler(ingestSvc, docSvc, retrievalSvc),
		SearchHandler:    handlers.NewSearchHandler(retrievalSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// waitForServer polls the health endpoint until the server responds
func waitForServer(healthURL string) error {
	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(10 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within 10s")
}

// getFreePort finds an available TCP port
func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// StoreFile puts content into object storage so it can be ingested by path.
func (e *E2ETestEnv) StoreFile(path, content string) {
	e.T.Helper()
	if err := e.Store.Store(e.Ctx, path, strings.NewReader(content)); err != nil {
		e.T.Fatalf("failed to store %s: %v", path, err)
	}
}

// APIResponse is the envelope every endpoint wraps its payload in
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// doRequest makes an HTTP request as the given user and returns the parsed response
func (e *E2ETestEnv) doRequest(method, path, userID string, body interface{}) (*APIResponse, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (status %d): %s", resp.StatusCode, string(respBody))
	}

	if resp.StatusCode >= 400 {
		return &apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// Get makes a GET request as the given user
func (e *E2ETestEnv) Get(path, userID string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, userID, nil)
}

// Post makes a POST request as the given user
func (e *E2ETestEnv) Post(path, userID string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, userID, body)
}

// Delete makes a DELETE request as the given user
func (e *E2ETestEnv) Delete(path, userID string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, userID, nil)
}

// embeddingStub serves the OpenAI embeddings wire format with deterministic
// vectors derived from the input text, so similarity ranking is stable
// across runs without network access.
type embeddingStub struct {
	server   *httptest.Server
	failNext atomic.Int32
}

func newEmbeddingStub() *embeddingStub {
	stub := &embeddingStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(stub.handle))
	return stub
}

func (s *embeddingStub) URL() string {
	return s.server.URL
}

func (s *embeddingStub) Close() {
	s.server.Close()
}

// FailNext makes the next n embedding calls return HTTP 500.
func (s *embeddingStub) FailNext(n int32) {
	s.failNext.Store(n)
}

func (s *embeddingStub) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/embeddings") {
		http.NotFound(w, r)
		return
	}

	if s.failNext.Load() > 0 {
		s.failNext.Add(-1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"simulated embedding outage","type":"server_error"}}`))
		return
	}

	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	type embeddingData struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	}
	data := make([]embeddingData, len(req.Input))
	for i, text := range req.Input {
		data[i] = embeddingData{
			Object:    "embedding",
			Index:     i,
			Embedding: hashEmbedding(text),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"object": "list",
		"data":   data,
		"model":  req.Model,
	})
}

// hashEmbedding maps text to a unit vector where each distinct word
// contributes to one dimension. Texts sharing words end up with higher
// cosine similarity, which is enough to rank search results in tests.
func hashEmbedding(text string) []float32 {
	vec := make([]float32, openai.DefaultEmbeddingDimensions)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, `.,;:!?"'()`)
		if word == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[int(h.Sum32())%len(vec)] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
