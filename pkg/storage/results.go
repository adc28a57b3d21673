package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	serrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/search"
)

// StoredResult is the JSON document persisted for a finished search.
// Solutions are stored rendered, not as live state values, so results
// stay readable without the problem code that produced them.
type StoredResult struct {
	RunID     string       `json:"run_id"`
	Problem   string       `json:"problem"`
	Solutions []string     `json:"solutions"`
	Stats     search.Stats `json:"stats"`
	Completed bool         `json:"completed"`
	SavedAt   time.Time    `json:"saved_at"`
}

// ResultStore persists search results to blob storage, one document per
// run.
type ResultStore struct {
	blobClient BlobClient
	logger     *zap.Logger
}

// NewResultStore creates a result store over a blob client.
func NewResultStore(blobClient BlobClient, logger *zap.Logger) (*ResultStore, error) {
	if blobClient == nil {
		return nil, serrors.ErrStoreUnavailable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultStore{blobClient: blobClient, logger: logger}, nil
}

// ResultPath returns the blob path for a run's result document.
func ResultPath(problem, runID string) string {
	return fmt.Sprintf("results/%s/%s.json", problem, runID)
}

// Save persists the result and returns the blob URL.
func (s *ResultStore) Save(ctx context.Context, problem string, result *search.Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result is required")
	}

	doc := StoredResult{
		RunID:     result.RunID,
		Problem:   problem,
		Solutions: result.SolutionStrings(),
		Stats:     result.Stats,
		Completed: result.Completed,
		SavedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	blobPath := ResultPath(problem, result.RunID)
	blobURL, err := s.blobClient.Upload(ctx, blobPath, data, map[string]string{
		"problem":   problem,
		"run_id":    result.RunID,
		"solutions": fmt.Sprintf("%d", len(doc.Solutions)),
		"completed": fmt.Sprintf("%t", result.Completed),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload result: %w", err)
	}

	s.logger.Info("Persisted search result",
		zap.String("problem", problem),
		zap.String("runID", result.RunID),
		zap.Int("solutions", len(doc.Solutions)),
		zap.String("blobPath", blobPath))

	return blobURL, nil
}

// Load fetches and decodes a run's result document.
func (s *ResultStore) Load(ctx context.Context, problem, runID string) (*StoredResult, error) {
	data, err := s.blobClient.Download(ctx, ResultPath(problem, runID))
	if err != nil {
		return nil, fmt.Errorf("failed to download result: %w", err)
	}

	var doc StoredResult
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &doc, nil
}
