package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ojodaltonico/bot-moderador/internal/config"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	s3infra "github.com/ojodaltonico/bot-moderador/internal/infra/s3"
	"github.com/ojodaltonico/bot-moderador/internal/jobs/expiry"
	pgrepo "github.com/ojodaltonico/bot-moderador/internal/repo/postgres"
	redrepo "github.com/ojodaltonico/bot-moderador/internal/repo/redis"
	appealsvc "github.com/ojodaltonico/bot-moderador/internal/services/appeals"
	chatsvc "github.com/ojodaltonico/bot-moderador/internal/services/chat"
	identitysvc "github.com/ojodaltonico/bot-moderador/internal/services/identity"
	ingestsvc "github.com/ojodaltonico/bot-moderador/internal/services/ingest"
	strikesvc "github.com/ojodaltonico/bot-moderador/internal/services/strikes"
	workflowsvc "github.com/ojodaltonico/bot-moderador/internal/services/workflow"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	expiryJob  *expiry.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewAppealSessionRepo(redisClient)

	userRepo := pgrepo.NewUserRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	caseRepo := pgrepo.NewCaseRepo(pool)
	moderatorRepo := pgrepo.NewModeratorRepo(pool)
	actionRepo := pgrepo.NewActionRepo(pool)
	ledgerStore := pgrepo.NewLedgerStore(pool)

	var signer *s3infra.Signer
	if s, err := s3infra.NewSigner(cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Bucket, cfg.S3.UseSSL); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		signer = s
	}

	ledger := strikesvc.NewService(ledgerStore, cfg.Moderation.BanThreshold)
	identityService := identitysvc.NewService(moderatorRepo, userRepo, cfg.Moderation.AdminPhone)
	appealService := appealsvc.NewService(sessionRepo, caseRepo, messageRepo, actionRepo,
		cfg.Moderation.AppealSessionTTL, cfg.Moderation.AppealHistoryLimit)
	workflowService := workflowsvc.NewService(caseRepo, messageRepo, userRepo, ledger, signer, workflowsvc.Config{
		AssignRetries: cfg.Moderation.AssignRetries,
		MediaURLTTL:   cfg.Moderation.MediaURLTTL,
		BanThreshold:  cfg.Moderation.BanThreshold,
	})
	ingestService := ingestsvc.NewService(userRepo, messageRepo, caseRepo, ingestsvc.Config{
		ModeratedChatID:      cfg.Moderation.ModeratedChatID,
		Keywords:             cfg.Moderation.FlagKeywords,
		InfringementPriority: cfg.Moderation.InfringementPriority,
		ImageReviewPriority:  cfg.Moderation.ImageReviewPriority,
	})
	chatService := chatsvc.NewService(identityService, appealService, workflowService, log)

	expiryJob := expiry.New(appealService, logDispatcher{log}, cfg.Moderation.AppealSweepInterval, log)

	RegisterRoutes(r, Dependencies{
		IngestService:   ingestService,
		ChatService:     chatService,
		WorkflowService: workflowService,
		IdentityService: identityService,
		AppealService:   appealService,
		UserRepo:        userRepo,
		ActionRepo:      actionRepo,
		ModeratorRepo:   moderatorRepo,
		Logger:          log,
		Config:          cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		expiryJob:  expiryJob,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// RunJobs blocks running the periodic appeal expiry sweep until ctx ends.
// A failing sweep stops the loop with a warning; the API keeps serving.
func (a *App) RunJobs(ctx context.Context) {
	if a.expiryJob == nil {
		return
	}
	if err := a.expiryJob.RunLoop(ctx); err != nil {
		a.logger.Warn("appeal expiry loop stopped", zap.Error(err))
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// logDispatcher is the default sink for expiry notifications: without a
// messaging bridge attached, instructions are logged for the operator.
type logDispatcher struct {
	log *zap.Logger
}

func (d logDispatcher) Dispatch(_ context.Context, instructions []model.Instruction) error {
	for _, ins := range instructions {
		d.log.Info("outbound instruction",
			zap.String("kind", string(ins.Kind)),
			zap.String("to", ins.To),
		)
	}
	return nil
}
