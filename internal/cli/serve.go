package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	api "github.com/mcq-platform/backend/internal/api/http"
	"github.com/mcq-platform/backend/internal/auth"
	"github.com/mcq-platform/backend/internal/bank"
	"github.com/mcq-platform/backend/internal/config"
	"github.com/mcq-platform/backend/internal/db"
	"github.com/mcq-platform/backend/internal/quiz"
	"github.com/mcq-platform/backend/internal/rbac"
	"github.com/mcq-platform/backend/internal/storage"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config) error {
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbh.Close()

	bankStore := bank.NewSQLStore(dbh, cfg.DBDriver)
	quizStore := quiz.NewSQLStore(dbh, cfg.DBDriver)

	bs, err := storage.NewFSStore(cfg.UploadBasePath)
	if err != nil {
		return err
	}
	importer := bank.NewImporter(bankStore, bs)

	authSvc := auth.NewService(cfg.AuthHMACSecret, cfg.AdminSecretFile)

	r := newRouter(cfg, bankStore, quizStore, importer, bs, authSvc)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRouter(cfg config.Config, bankStore bank.Store, quizStore quiz.Store, importer *bank.Importer, bs storage.BlobStore, authSvc *auth.Service) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	// Student surface, no auth. Tests are addressed by opaque numeric id;
	// shared review links use the interactive test UID instead.
	r.Route("/api", func(ar chi.Router) {
		ar.Get("/subjects", api.ListSubjectsHandler(bankStore))

		ar.Post("/tests", api.StartTestHandler(quizStore))
		ar.Route("/tests/{testID}", func(tr chi.Router) {
			tr.Get("/", api.GetTestHandler(quizStore))
			tr.Delete("/", api.DiscardTestHandler(quizStore))
			tr.Get("/questions/{seq}", api.QuestionHandler(quizStore))
			tr.Post("/answers", api.SubmitAnswerHandler(quizStore))
			tr.Post("/finish", api.FinishTestHandler(quizStore))
			tr.Get("/summary", api.SummaryHandler(quizStore))
			tr.Get("/review/{seq}", api.ReviewHandler(quizStore))
		})

		ar.Route("/shared/{testUID}", func(sr chi.Router) {
			sr.Get("/summary", api.SharedSummaryHandler(quizStore))
			sr.Get("/review", api.SharedReviewHandler(quizStore))
			sr.Get("/review/{seq}", api.SharedReviewHandler(quizStore))
		})

		// Admin surface (JWT → role in context → RBAC).
		ar.Group(func(pr chi.Router) {
			pr.Use(auth.JWTMiddleware(authSvc))

			pr.Route("/admin", func(adm chi.Router) {
				adm.With(rbac.Require("subject:create")).
					Post("/subjects", api.CreateSubjectHandler(bankStore))
				adm.With(rbac.Require("subject:update")).
					Put("/subjects/{subjectID}", api.UpdateSubjectHandler(bankStore))
				adm.With(rbac.Require("subject:delete")).
					Delete("/subjects/{subjectID}", api.DeleteSubjectHandler(bankStore))

				adm.With(rbac.Require("question:list")).
					Get("/questions", api.ListQuestionsHandler(bankStore))
				adm.With(rbac.Require("question:create")).
					Post("/questions", api.CreateQuestionHandler(bankStore, bs))
				adm.With(rbac.Require("question:view")).
					Get("/questions/{questionID}", api.GetQuestionHandler(bankStore))
				adm.With(rbac.Require("question:update")).
					Put("/questions/{questionID}", api.UpdateQuestionHandler(bankStore, bs))
				adm.With(rbac.Require("question:delete")).
					Delete("/questions/{questionID}", api.DeleteQuestionHandler(bankStore))

				adm.With(rbac.Require("bank:import")).
					Post("/questions/bulk", api.BulkUploadHandler(importer))
				adm.With(rbac.Require("bank:import")).
					Get("/questions/template.csv", api.TemplateCSVHandler())
				adm.With(rbac.Require("bank:maintain")).
					Post("/maintenance/recompute-difficulty", api.RecomputeDifficultyHandler(bankStore))
			})
		})
	})

	r.Get("/uploads/*", api.UploadsHandler(bs))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	return r
}
