package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"intake-backend/internal/models"
	"intake-backend/internal/quiz"
)

const questionnaireJSON = `{"questions":[{"question":"Any allergies?","type":"ChoiceType","options":[
	{"display":"Yes","value":true,"isRejection":true},
	{"display":"No","value":false,"isRejection":false}]}]}`

func TestHTTPQuestionSource_Fetch(t *testing.T) {
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(questionnaireJSON))
	}))
	defer server.Close()

	data, err := NewHTTPQuestionSource(server.URL, time.Second).Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected JSON content type header, got %q", gotContentType)
	}
	if len(data.Questions) != 1 || len(data.Questions[0].Options) != 2 {
		t.Fatalf("unexpected questionnaire: %+v", data)
	}
	if v, ok := data.Questions[0].Options[0].Value.Bool(); !ok || !v {
		t.Fatalf("expected boolean true option value")
	}
}

func TestHTTPQuestionSource_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPQuestionSource(server.URL, time.Second).Fetch(context.Background())
	if err == nil || err.Error() != "HTTP error! status: 503" {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestHTTPQuestionSource_MissingQuestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"no questions here"}`))
	}))
	defer server.Close()

	if _, err := NewHTTPQuestionSource(server.URL, time.Second).Fetch(context.Background()); err == nil {
		t.Fatalf("expected error for document without questions")
	}
}

func TestFileQuestionSource(t *testing.T) {
	dir := t.TempDir()
	yamlDoc := `questions:
  - question: Any allergies?
    type: ChoiceType
    options:
      - display: "Yes"
        value: true
        isRejection: true
      - display: "No"
        value: false
        isRejection: false
  - question: Pick one
    type: ChoiceType
    options:
      - display: Temples
        value: Temples
        isRejection: false
`
	tests := []struct {
		name    string
		file    string
		content string
		count   int
	}{
		{"json", "q.json", questionnaireJSON, 1},
		{"yaml", "q.yaml", yamlDoc, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.file)
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatalf("failed to write fixture: %v", err)
			}

			data, err := NewFileQuestionSource(path).Fetch(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(data.Questions) != tc.count {
				t.Fatalf("expected %d questions, got %d", tc.count, len(data.Questions))
			}
			if v, ok := data.Questions[0].Options[0].Value.Bool(); !ok || !v {
				t.Fatalf("expected boolean option value to survive decoding")
			}
		})
	}

	t.Run("yaml string value", func(t *testing.T) {
		path := filepath.Join(dir, "q.yaml")
		data, err := NewFileQuestionSource(path).Fetch(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !data.Questions[1].Options[0].Value.Equal(models.StringValue("Temples")) {
			t.Fatalf("expected string option value, got %v", data.Questions[1].Options[0].Value)
		}
	})
}

func TestFileQuestionSource_MissingFile(t *testing.T) {
	if _, err := NewFileQuestionSource(filepath.Join(t.TempDir(), "nope.json")).Fetch(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

type stubQuestionnaireRepo struct {
	data   *models.QuizData
	err    error
	lastID string
}

func (r *stubQuestionnaireRepo) GetQuestions(ctx context.Context, id string) (*models.QuizData, error) {
	r.lastID = id
	return r.data, r.err
}

func TestRepoQuestionSource(t *testing.T) {
	repo := &stubQuestionnaireRepo{data: oneQuestion("from db")}

	data, err := NewRepoQuestionSource(repo, "972423").Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.lastID != "972423" {
		t.Fatalf("expected lookup by configured id, got %q", repo.lastID)
	}
	if data.Questions[0].Text != "from db" {
		t.Fatalf("unexpected questionnaire: %+v", data)
	}

	repo.err = errors.New("no rows")
	if _, err := NewRepoQuestionSource(repo, "972423").Fetch(context.Background()); err == nil {
		t.Fatalf("expected repository error to surface")
	}
}

func TestFallbackQuestionSource(t *testing.T) {
	failing := &stubSource{err: errors.New("offline")}
	working := &stubSource{data: oneQuestion("second")}
	unused := &stubSource{data: oneQuestion("third")}

	data, err := NewFallbackQuestionSource(failing, nil, working, unused).Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if data.Questions[0].Text != "second" {
		t.Fatalf("expected first working source, got %q", data.Questions[0].Text)
	}
	if unused.calls != 0 {
		t.Fatalf("expected later sources to be skipped")
	}
}

func TestFallbackQuestionSource_AllFail(t *testing.T) {
	data, err := NewFallbackQuestionSource(&stubSource{err: errors.New("offline")}).Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(data.Questions) != len(quiz.FallbackData().Questions) {
		t.Fatalf("expected bundled questionnaire")
	}
}

func TestQuestionnaireSources_RemoteComesFirst(t *testing.T) {
	remote := &stubSource{data: oneQuestion("remote")}
	stored := &stubSource{data: oneQuestion("stored")}
	sources := QuestionnaireSources{Remote: remote, Stored: stored}

	data, _ := sources.Chain().Fetch(context.Background())
	if data.Questions[0].Text != "remote" {
		t.Fatalf("expected remote questionnaire, got %q", data.Questions[0].Text)
	}
	if stored.calls != 0 {
		t.Fatalf("expected stored questionnaire not to be read while remote works")
	}

	remote.data, remote.err = nil, errors.New("offline")
	data, _ = sources.Chain().Fetch(context.Background())
	if data.Questions[0].Text != "stored" {
		t.Fatalf("expected stored questionnaire during a remote outage, got %q", data.Questions[0].Text)
	}
}
