package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"intake-backend/internal/models"
	"intake-backend/internal/quiz"
)

const maxQuestionnaireBytes = 1 << 20

// QuestionSource supplies the canonical questionnaire.
type QuestionSource interface {
	Fetch(ctx context.Context) (*models.QuizData, error)
}

// HTTPQuestionSource fetches the questionnaire document from a remote URL.
type HTTPQuestionSource struct {
	url        string
	httpClient *http.Client
}

func NewHTTPQuestionSource(url string, timeout time.Duration) *HTTPQuestionSource {
	return &HTTPQuestionSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPQuestionSource) Fetch(ctx context.Context) (*models.QuizData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build questionnaire request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("questionnaire request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error! status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxQuestionnaireBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read questionnaire: %w", err)
	}
	data, err := quiz.ParseQuizData(body)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

type questionnaireRepository interface {
	GetQuestions(ctx context.Context, id string) (*models.QuizData, error)
}

// RepoQuestionSource reads one questionnaire from the database.
type RepoQuestionSource struct {
	repo questionnaireRepository
	id   string
}

func NewRepoQuestionSource(repo questionnaireRepository, id string) *RepoQuestionSource {
	return &RepoQuestionSource{repo: repo, id: id}
}

func (s *RepoQuestionSource) Fetch(ctx context.Context) (*models.QuizData, error) {
	data, err := s.repo.GetQuestions(ctx, s.id)
	if err != nil {
		return nil, fmt.Errorf("failed to load questionnaire %s: %w", s.id, err)
	}
	return data, nil
}

// FileQuestionSource reads a questionnaire from a JSON or YAML file.
type FileQuestionSource struct {
	path string
}

func NewFileQuestionSource(path string) *FileQuestionSource {
	return &FileQuestionSource{path: path}
}

func (s *FileQuestionSource) Fetch(_ context.Context) (*models.QuizData, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questionnaire file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		// Round-trip through JSON so option values keep their string/bool kind.
		var doc interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse questionnaire file: %w", err)
		}
		raw, err = json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert questionnaire file: %w", err)
		}
	}

	data, err := quiz.ParseQuizData(raw)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// FallbackQuestionSource tries each source in order and falls back to the
// bundled questionnaire. It never returns an error.
type FallbackQuestionSource struct {
	sources  []QuestionSource
	fallback func() models.QuizData
}

func NewFallbackQuestionSource(sources ...QuestionSource) *FallbackQuestionSource {
	return &FallbackQuestionSource{sources: sources, fallback: quiz.FallbackData}
}

func (s *FallbackQuestionSource) Fetch(ctx context.Context) (*models.QuizData, error) {
	for _, source := range s.sources {
		if source == nil {
			continue
		}
		data, err := source.Fetch(ctx)
		if err == nil && data != nil {
			return data, nil
		}
		log.Printf("Failed to fetch quiz data: %v", err)
	}
	data := s.fallback()
	return &data, nil
}

// QuestionnaireSources are the configured places canonical questions can be
// read from. Unconfigured ones stay nil.
type QuestionnaireSources struct {
	Remote QuestionSource
	Stored QuestionSource
	File   QuestionSource
}

// Chain orders the sources. The remote questionnaire is authoritative; the
// database copy and the local file cover remote outages, and the bundled
// questionnaire comes last.
func (s QuestionnaireSources) Chain() *FallbackQuestionSource {
	return NewFallbackQuestionSource(s.Remote, s.Stored, s.File)
}
