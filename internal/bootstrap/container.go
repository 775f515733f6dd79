package bootstrap

import (
	"context"
	"time"

	"temporalos-be/internal/config"
	"temporalos-be/internal/controller"
	"temporalos-be/internal/handler"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/internal/repository/contract"
	"temporalos-be/internal/repository/fallback"
	"temporalos-be/internal/repository/implementation"
	"temporalos-be/internal/repository/memory"
	"temporalos-be/internal/service"
	"temporalos-be/internal/websocket"
	"temporalos-be/pkg/classifier"
	"temporalos-be/pkg/ehr"
	"temporalos-be/pkg/engine"
	"temporalos-be/pkg/events"
	"temporalos-be/pkg/llm/factory"
	"temporalos-be/pkg/medication"
	pktNats "temporalos-be/pkg/nats"
	"temporalos-be/pkg/nlp"
	"temporalos-be/pkg/poller"
	"temporalos-be/pkg/recommendation"
	"temporalos-be/pkg/voicecall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// memoryTTL bounds how long an idle session survives in the in-memory store.
const memoryTTL = 24 * time.Hour

type Container struct {
	Logger logger.ILogger

	// Controllers
	SessionController    controller.ISessionController
	ModeController       controller.IModeController
	ReasoningController  controller.IReasoningController
	MedicationController controller.IMedicationController
	ClinicalController   controller.IClinicalController

	ModeStreamHandler *handler.ModeStreamHandler

	// Services
	SessionService  service.ISessionService
	ConsumerService service.IConsumerService

	// Background infrastructure (run and stopped by main.go)
	Registry     *engine.Registry
	Scheduler    *poller.CronScheduler
	WebSocketHub *websocket.Hub

	closers []func()
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	// 1. Logging
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	// 2. In-process bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Outside event bus
	var eventPublisher events.Publisher = events.NopPublisher{}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "NATS unavailable, events will be dropped", map[string]interface{}{"error": err.Error()})
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 4. Redis for cross-instance websocket fan-out
	rdb := connectRedis(ctx, cfg.App.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	c.WebSocketHub = websocket.NewHub(rdb, logger.NewIsolatedLogger("logs/websocket.log"))

	// 5. Model provider
	llmProvider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel(),
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		GeminiAPIKey:  cfg.Ai.GeminiAPIKey,
		Timeout:       cfg.Ai.RemoteTimeout,
	})
	if err != nil {
		// Every model consumer has a rule-based path, so the server still starts.
		sysLogger.Warn("BOOTSTRAP", "LLM provider unavailable, using rule-based fallbacks", map[string]interface{}{
			"provider": cfg.Ai.LLMProvider,
			"error":    err.Error(),
		})
		llmProvider = nil
	} else {
		sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{
			"provider": cfg.Ai.LLMProvider,
			"model":    cfg.Ai.LLMModel(),
		})
	}

	var extractor nlp.EntityExtractor
	if cfg.Ai.EntityAPIURL != "" {
		extractor = nlp.NewHTTPExtractor(cfg.Ai.EntityAPIURL, "", cfg.Ai.RemoteTimeout)
	}
	modeClassifier := classifier.New(llmProvider, cfg.Ai.RemoteTimeout, sysLogger)
	textAnalyzer := nlp.NewAnalyzer(extractor, sysLogger)

	// 6. Storage
	var sessionPrimary contract.SessionRepository
	var logPrimary contract.MedicationLogRepository
	if db != nil {
		sessionPrimary = implementation.NewSessionRepository(db)
		logPrimary = implementation.NewMedicationLogRepository(db)
	}
	sessionStore := fallback.NewSessionRepository(sessionPrimary, memory.NewSessionRepository(memoryTTL), sysLogger)
	logStore := fallback.NewMedicationLogRepository(logPrimary, memory.NewMedicationLogRepository(memoryTTL), sysLogger)

	// 7. Clinical integrations
	ehrProvider := ehr.NewProvider(cfg.Ehr.BaseURL, cfg.Ehr.APIKey, cfg.Ai.RemoteTimeout)
	calls := voicecall.NewClient(voicecall.Config{
		APIKey:        cfg.Vapi.APIKey,
		PhoneNumberID: cfg.Vapi.PhoneNumberID,
		AssistantID:   cfg.Vapi.AssistantID,
	})

	// 8. Services
	sessionService := service.NewSessionService(sessionStore)
	publisherService := service.NewPublisherService(pubSub)
	medicationService := service.NewMedicationService(
		logStore,
		medication.NewAnalyzer(llmProvider, cfg.Ai.RemoteTimeout, sysLogger),
		eventPublisher,
		sysLogger,
	)
	recommendationService := service.NewRecommendationService(
		recommendation.NewGenerator(llmProvider, cfg.Ai.RemoteTimeout, sysLogger),
		medicationService,
		ehrProvider,
		sysLogger,
	)

	// 9. Mode engines
	c.Scheduler = poller.NewCronScheduler(sysLogger)
	pipeline := engine.NewPipeline(modeClassifier, textAnalyzer, engine.PipelineConfig{
		StrictPatientContext: cfg.Engine.StrictPatientContext,
		AllowedHosts:         cfg.Engine.AllowedEHRHosts,
	}, sysLogger)
	c.Registry = engine.NewRegistry(engine.Deps{
		Detector:  pipeline,
		Effects:   service.NewModeCoordinator(sessionService, publisherService, sysLogger),
		Scheduler: c.Scheduler,
		Logger:    sysLogger,
	}, engine.Options{
		PollInterval:       cfg.Engine.PollInterval,
		SpeechRestartDelay: cfg.Engine.SpeechRestartDelay,
	})

	modeService := service.NewModeService(c.Registry, sessionService, medicationService, ehrProvider, c.WebSocketHub, sysLogger)

	c.SessionService = sessionService
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		service.TopicModeChanged,
		eventPublisher,
		recommendationService,
		medicationService,
		c.Registry,
		sysLogger,
	)

	// 10. Transport
	c.SessionController = controller.NewSessionController(sessionService)
	c.ModeController = controller.NewModeController(modeService)
	c.ReasoningController = controller.NewReasoningController(service.NewReasoningService(modeClassifier, textAnalyzer))
	c.MedicationController = controller.NewMedicationController(medicationService, recommendationService)
	c.ClinicalController = controller.NewClinicalController(service.NewClinicalService(ehrProvider, calls, sysLogger))
	c.ModeStreamHandler = handler.NewModeStreamHandler(modeService, c.WebSocketHub, cfg.App.JwtSecret, sysLogger)

	return c
}

// Close releases bus and cache connections. Engines are closed by the caller first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func connectRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("BOOTSTRAP", "Redis unavailable, websocket fan-out stays local", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
