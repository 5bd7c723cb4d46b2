package generation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"genserver/internal/domain"
	"genserver/internal/infra"
)

// ObjectStore persists a result artifact and returns its public URL.
type ObjectStore interface {
	Store(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// TransferService downloads completed result artifacts from the provider CDN
// and re-homes them in our own storage. Provider URLs expire; stored copies
// do not.
type TransferService struct {
	store      ObjectStore
	repo       domain.GenerationRepository
	httpClient *http.Client
	logger     *infra.Logger
}

func NewTransferService(store ObjectStore, repo domain.GenerationRepository, logger *infra.Logger) *TransferService {
	return &TransferService{
		store:      store,
		repo:       repo,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}
}

// TransferResults fetches every result URL and stores a copy. URLs that fail
// to transfer keep their original provider URL so a partial transfer never
// loses results. The stored list replaces the record's result URLs.
func (s *TransferService) TransferResults(ctx context.Context, gen *domain.Generation, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	stored := make([]string, 0, len(urls))
	var firstErr error
	for i, sourceURL := range urls {
		storedURL, err := s.transferOne(ctx, gen.ID, i, sourceURL)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Warn().
				Err(err).
				Str("generation_id", gen.ID).
				Str("url_sample", maskURL(sourceURL)).
				Msg("artifact transfer failed, keeping provider url")
			stored = append(stored, sourceURL)
			continue
		}
		stored = append(stored, storedURL)
	}
	if err := s.repo.Update(ctx, gen.ID, domain.GenerationUpdate{ResultURLs: stored}); err != nil {
		return fmt.Errorf("persist stored result urls: %w", err)
	}
	return firstErr
}

func (s *TransferService) transferOne(ctx context.Context, genID string, index int, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download artifact: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	key := fmt.Sprintf("%s/result-%d%s", genID, index, artifactExtension(sourceURL, contentType))
	return s.store.Store(ctx, key, contentType, resp.Body)
}

func artifactExtension(sourceURL, contentType string) string {
	if ext := path.Ext(strings.SplitN(sourceURL, "?", 2)[0]); ext != "" && len(ext) <= 5 {
		return ext
	}
	switch contentType {
	case "video/mp4":
		return ".mp4"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
