package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"intake-backend/internal/quiz"
	"intake-backend/internal/repository"
	"intake-backend/internal/services"
)

func main() {
	home, _ := os.UserHomeDir()
	defaultStore := filepath.Join(home, ".intake", "quiz_state.json")

	storePath := flag.String("store", defaultStore, "path of the local quiz state file")
	questionnaireURL := flag.String("url", "https://manual-case-study.herokuapp.com/questionnaires/972423.json", "questionnaire URL")
	questionnaireFile := flag.String("file", "", "questionnaire JSON or YAML file")
	offline := flag.Bool("offline", false, "skip fetching the questionnaire and use the bundled one")
	noColor := flag.Bool("no-color", false, "disable colors")
	flag.Parse()

	store, err := repository.NewFileStore(*storePath)
	if err != nil {
		log.Fatalf("✗ Could not open state store: %v", err)
	}
	gateway := services.NewSnapshotGateway(store)

	var sources []services.QuestionSource
	if *questionnaireFile != "" {
		sources = append(sources, services.NewFileQuestionSource(*questionnaireFile))
	}
	if !*offline && *questionnaireURL != "" {
		sources = append(sources, services.NewHTTPQuestionSource(*questionnaireURL, 5*time.Second))
	}

	ctx := context.Background()
	fresh, _ := services.NewFallbackQuestionSource(sources...).Fetch(ctx)
	snapshot, _ := gateway.Load(ctx, uuid.Nil)
	state, intact := quiz.Initialize(fresh, snapshot)

	session := services.NewQuizSession(uuid.Nil, state, intact, services.DirectWriter{Gateway: gateway}, nil)
	session.OpenQuiz(ctx)

	p := tea.NewProgram(newModel(session, *noColor))
	if _, err := p.Run(); err != nil {
		log.Fatalf("✗ %v", err)
	}
}
