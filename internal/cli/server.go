package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"internmatch-service/internal/app"
	"internmatch-service/internal/config"
	"internmatch-service/internal/domain"
	"internmatch-service/internal/infra/memory"
	pginfra "internmatch-service/internal/infra/postgres"
	redisinfra "internmatch-service/internal/infra/redis"
	transport "internmatch-service/internal/transport/http"
	"internmatch-service/internal/trust"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the recommendation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	if pool != nil {
		loader = pginfra.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var bank app.QuestionBank
	if redisClient != nil {
		bank = redisinfra.NewQuestionBank(redisClient, loader, bankTTL)
	} else {
		bank = memory.NewQuestionBank(loader, bankTTL)
	}

	var attempts app.AttemptStore = memory.NewAttemptStore()
	if redisClient != nil {
		attempts = redisinfra.NewAttemptStore(redisClient)
	}

	var candidates app.CandidateDirectory
	var catalog app.InternshipCatalog
	var ratings app.RatingSource
	if pool != nil {
		pgCatalog := pginfra.NewCatalog(pool)
		candidates = pgCatalog
		catalog = pgCatalog
		ratings = pginfra.NewRatingSource(pool)
	} else {
		memCatalog := memory.NewCatalog(sampleCandidates(), sampleInternships())
		candidates = memCatalog
		catalog = memCatalog
		ratings = memory.NewRatingLog()
	}

	trustCfg := trust.DefaultConfig()
	if cfg.Trust.RatingConfidenceK > 0 {
		trustCfg.RatingConfidenceK = cfg.Trust.RatingConfidenceK
	}
	if cfg.Trust.RecencyWindowDays > 0 {
		trustCfg.RecencyWindow = time.Duration(cfg.Trust.RecencyWindowDays) * 24 * time.Hour
	}

	verification := app.NewVerificationService(bank, memory.NewSessionStore(), attempts)
	recommendation := app.NewRecommendationService(candidates, catalog, ratings, attempts, trustCfg, cfg.Rank.TrustFloor)

	verifyHandler := transport.NewVerifyHandler(verification)
	recommendHandler := transport.NewRecommendHandler(recommendation, cfg.Rank.DefaultTopN)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/verify", verifyHandler.ServeWS)
	mux.HandleFunc("/recommendations", recommendHandler.ServeRecommendations)
	mux.HandleFunc("/match", recommendHandler.ServeMatch)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting internmatch service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks provides a minimal question pool; swap the loader for the
// Postgres-backed one in production.
func sampleBanks() map[string]domain.SkillBank {
	return map[string]domain.SkillBank{
		"python": {
			Skill: domain.Skill{ID: "python", Name: "Python", Tier: domain.DifficultyEasy},
			Questions: []domain.Question{
				{
					ID: "py-q1", SkillID: "python", Difficulty: domain.DifficultyEasy,
					Prompt: "Which keyword defines a function in Python?",
					Options: []domain.Option{
						{ID: "o1", Text: "func", Correct: false},
						{ID: "o2", Text: "def", Correct: true},
						{ID: "o3", Text: "fn", Correct: false},
					},
				},
				{
					ID: "py-q2", SkillID: "python", Difficulty: domain.DifficultyEasy,
					Prompt: "What does len([1, 2, 3]) return?",
					Options: []domain.Option{
						{ID: "o1", Text: "2", Correct: false},
						{ID: "o2", Text: "3", Correct: true},
						{ID: "o3", Text: "4", Correct: false},
					},
				},
				{
					ID: "py-q3", SkillID: "python", Difficulty: domain.DifficultyEasy,
					Prompt: "Which type is immutable?",
					Options: []domain.Option{
						{ID: "o1", Text: "list", Correct: false},
						{ID: "o2", Text: "dict", Correct: false},
						{ID: "o3", Text: "tuple", Correct: true},
					},
				},
				{
					ID: "py-q4", SkillID: "python", Difficulty: domain.DifficultyTough,
					Prompt: "What does the GIL serialize?",
					Options: []domain.Option{
						{ID: "o1", Text: "Bytecode execution across threads", Correct: true},
						{ID: "o2", Text: "Disk I/O", Correct: false},
						{ID: "o3", Text: "Network sockets", Correct: false},
					},
				},
				{
					ID: "py-q5", SkillID: "python", Difficulty: domain.DifficultyTough,
					Prompt: "Which call creates a shallow copy of a dict d?",
					Options: []domain.Option{
						{ID: "o1", Text: "d.clone()", Correct: false},
						{ID: "o2", Text: "dict(d)", Correct: true},
						{ID: "o3", Text: "copy.deepcopy(d)", Correct: false},
					},
				},
			},
		},
	}
}

func sampleCandidates() map[string]domain.CandidateProfile {
	return map[string]domain.CandidateProfile{
		"cand-1": {
			CandidateID: "cand-1",
			Skills: []domain.CandidateSkill{
				{SkillID: "python", Name: "Python", Context: "Django REST services and data pipelines"},
				{SkillID: "sql", Name: "SQL", Context: "PostgreSQL schema design"},
			},
		},
	}
}

func sampleInternships() []domain.Internship {
	return []domain.Internship{
		{
			ID: "int-1", Title: "Backend Intern", Company: "Acme",
			Description: "Build Python Django services backed by PostgreSQL",
			SkillTags:   []string{"Python", "SQL"},
		},
		{
			ID: "int-2", Title: "Frontend Intern", Company: "Initech",
			Description: "React dashboards and component libraries",
			SkillTags:   []string{"JavaScript", "React"},
		},
	}
}
