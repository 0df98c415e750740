package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cancelBookingHandler "github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers/cancel_booking"
	createBookingHandler "github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers/create_booking"
	getAvailableSlotsHandler "github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers/get_available_slots"
	getBookingHandler "github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers/get_booking"
	getSessionHandler "github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers/get_session"
	listBookingsHandler "github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers/list_bookings"
	updateBookingStatusHandler "github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers/update_booking_status"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/middleware"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/ws"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/config"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/events"
	bookingRepo "github.com/humanaid-digital/mindbuddy-scheduler/internal/infra/storage/booking"
	chatStore "github.com/humanaid-digital/mindbuddy-scheduler/internal/infra/storage/chat"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/jitsi"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/notifier"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/payment"
	providerServiceClient "github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/providerservice"
	bookingsService "github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/signaling"
	createBookingUC "github.com/humanaid-digital/mindbuddy-scheduler/internal/usecase/create_booking"
	getAvailableSlotsUC "github.com/humanaid-digital/mindbuddy-scheduler/internal/usecase/get_available_slots"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/actortoken"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/dbmetrics"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/keylock"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/logger"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/metrics"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/txmanager"
)

// bookingStore репозиторий, нужный и use case создания, и сервису бронирований
type bookingStore interface {
	createBookingUC.BookingRepository
	getAvailableSlotsUC.BookingRepository
	bookingsService.BookingRepository
}

// paymentGateway списание и возврат оплаты
type paymentGateway interface {
	createBookingUC.PaymentGateway
	bookingsService.RefundGateway
}

func main() {
	configPath := "config.toml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	// Загружаем конфигурацию
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level, cfg.Logs.Format)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting mindbuddy-scheduler...")
	log.Info("Configuration loaded from %s", configPath)

	location, err := cfg.Booking.Location()
	if err != nil {
		log.Fatal("Invalid booking timezone: %v", err)
	}

	// Инициализируем метрики (если включены); nil коллектор безопасен
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Хранилище бронирований и менеджер транзакций
	var (
		bookingRepository bookingStore
		txMgr             createBookingUC.TransactionManager
		db                *sql.DB
	)
	switch cfg.Database.Driver {
	case "memory":
		memRepo := bookingRepo.NewMemoryRepository()
		bookingRepository = memRepo
		txMgr = memRepo
		log.Warn("Using in-memory booking storage, data is lost on restart")
	default:
		db, err = sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			log.Fatal("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Настраиваем connection pool
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

		if err := db.Ping(); err != nil {
			log.Fatal("Failed to ping database: %v", err)
		}
		log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

		var wrappedDB *dbmetrics.DB
		if cfg.Metrics.Enabled {
			wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
			log.Info("Database metrics collection started")
		} else {
			wrappedDB = dbmetrics.Wrap(db, nil)
		}
		bookingRepository = bookingRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	}

	// Инициализируем интеграционных клиентов
	providerClient := providerServiceClient.NewClient(
		cfg.ProviderService.URL,
		time.Duration(cfg.ProviderService.Timeout)*time.Second,
		log,
	)
	log.Info("Provider service client initialized (url=%s timeout=%ds)",
		cfg.ProviderService.URL, cfg.ProviderService.Timeout)

	var payments paymentGateway
	if cfg.Payment.Enabled {
		payments = payment.NewStripeGateway(cfg.Payment.SecretKey, cfg.Payment.Currency, cfg.Payment.PaymentMethod, log)
		log.Info("Stripe payment gateway enabled (currency=%s)", cfg.Payment.Currency)
	} else {
		payments = payment.NewOfflineGateway(log)
		log.Warn("Payment gateway disabled, fees are recorded as paid offline")
	}

	// Redis: история чата сессий и очередь уведомлений
	redisClient := chatStore.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisClient.Close()
	chat := chatStore.NewRedisStore(
		redisClient,
		time.Duration(cfg.Redis.ChatTTLHours)*time.Hour,
		cfg.Redis.ChatMaxMessages,
		log,
	)

	// Фоновые компоненты живут до сигнала завершения
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	bus := events.NewBus(log)

	var dispatcher *notifier.Dispatcher
	if cfg.Notifications.Enabled {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()

		dispatcher = notifier.NewDispatcher(
			notifier.NewAsynqSink(asynqClient, cfg.Notifications.Queue, cfg.Notifications.TaskMaxRetry),
			cfg.Notifications.QueueSize,
			cfg.Notifications.Workers,
			notifier.RetryPolicy{
				MaxRetries:    cfg.Notifications.MaxRetries,
				InitialDelay:  time.Duration(cfg.Notifications.InitialDelay) * time.Millisecond,
				MaxDelay:      time.Duration(cfg.Notifications.MaxDelay) * time.Millisecond,
				BackoffFactor: cfg.Notifications.BackoffFactor,
			},
			time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
			log,
			metricsCollector,
		)
		dispatcher.Start(bgCtx)
		bus.Subscribe(events.AllEvents, dispatcher.Emit)
		log.Info("Notification dispatcher started (queue=%s, workers=%d)", cfg.Notifications.Queue, cfg.Notifications.Workers)
	}

	// Сигналинг: реестр комнат и ретранслятор
	registry := signaling.NewRegistry(time.Duration(cfg.Signaling.IdleTimeoutMinutes)*time.Minute, log, metricsCollector)
	relay := signaling.NewRelay(registry, chat, cfg.Signaling.ChatQueueSize, log, metricsCollector)
	go registry.Run(bgCtx, time.Duration(cfg.Signaling.ReapIntervalSeconds)*time.Second)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(bgCtx)
	}()

	bus.Subscribe(events.EventBookingInProgress, func(e domain.StatusChangedEvent) error {
		if e.SessionID != "" {
			registry.Activate(e.SessionID)
		}
		return nil
	})
	bus.Subscribe(events.EventBookingCompleted, func(e domain.StatusChangedEvent) error {
		if e.SessionID != "" {
			relay.SessionEnded(e.SessionID, e.BookingID)
		}
		return nil
	})

	// Инициализируем сервисы
	videoRooms := jitsi.NewRooms(jitsi.Config{
		Domain: cfg.Jitsi.Domain,
		AppID:  cfg.Jitsi.AppID,
		Secret: []byte(cfg.Jitsi.Secret),
		TTL:    time.Duration(cfg.Jitsi.TokenTTLHours) * time.Hour,
	})

	bookingSvc := bookingsService.NewService(
		bookingRepository,
		payments,
		chat,
		videoRooms,
		bus,
		metricsCollector,
		domain.CancellationPolicy{Window: cfg.Booking.CancellationWindow(), Location: location},
		log,
	)

	// Инициализируем use cases
	createBookingUseCase := createBookingUC.NewUseCase(
		bookingRepository,
		providerClient,
		payments,
		txMgr,
		keylock.New(),
		bus,
		metricsCollector,
		createBookingUC.Policy{
			Location:           location,
			MinDurationMinutes: cfg.Booking.MinDurationMinutes,
			MaxDurationMinutes: cfg.Booking.MaxDurationMinutes,
			LockTimeout:        time.Duration(cfg.Booking.LockTimeoutSeconds) * time.Second,
			ChargeTimeout:      time.Duration(cfg.Booking.ChargeTimeoutSeconds) * time.Second,
		},
		log,
	)

	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		bookingRepository,
		providerClient,
		getAvailableSlotsUC.Policy{
			Location:               location,
			StepMinutes:            cfg.Booking.SlotStepMinutes,
			DefaultDurationMinutes: getAvailableSlotsUC.DefaultPolicy().DefaultDurationMinutes,
			MinDurationMinutes:     cfg.Booking.MinDurationMinutes,
			MaxDurationMinutes:     cfg.Booking.MaxDurationMinutes,
		},
		log,
	)

	// Проверка токенов актора
	tokens, err := actortoken.NewCodec(actortoken.Config{
		Secret:   []byte(cfg.Auth.Secret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	if err != nil {
		log.Fatal("Failed to initialize token verifier: %v", err)
	}
	auth := middleware.Auth(tokens, log)

	// Инициализируем handlers
	createBooking := createBookingHandler.NewHandler(createBookingUseCase, log)
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	listBookings := listBookingsHandler.NewHandler(bookingSvc, log)
	cancelBooking := cancelBookingHandler.NewHandler(bookingSvc, log)
	updateBookingStatus := updateBookingStatusHandler.NewHandler(bookingSvc, log)
	getSession := getSessionHandler.NewHandler(bookingSvc, log)
	sessionSocket := ws.NewHandler(bookingSvc, registry, relay, ws.Config{
		AllowedOrigins:  cfg.Signaling.AllowedOrigins,
		SendBuffer:      cfg.Signaling.SendBufferSize,
		MaxFrameBytes:   cfg.Signaling.MaxFrameBytes,
		FramesPerSecond: cfg.Signaling.FramesPerSecond,
		FrameBurst:      cfg.Signaling.FrameBurst,
		MaxViolations:   cfg.Signaling.MaxViolations,
	}, log, metricsCollector)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.Recovery(log))

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Свободные слоты консультанта на дату
	api.HandleFunc("/providers/{providerId}/slots", getAvailableSlots.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют токен актора)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth)

	// --- Бронирования ---
	protected.HandleFunc("/bookings", createBooking.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/bookings", listBookings.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)

	// --- Переходы статуса ---
	protected.HandleFunc("/bookings/{bookingId}/confirm", updateBookingStatus.Confirm).Methods(http.MethodPut)
	protected.HandleFunc("/bookings/{bookingId}/cancel", cancelBooking.Handle).Methods(http.MethodPut)
	protected.HandleFunc("/bookings/{bookingId}/start", updateBookingStatus.Start).Methods(http.MethodPut)
	protected.HandleFunc("/bookings/{bookingId}/end", updateBookingStatus.End).Methods(http.MethodPut)
	protected.HandleFunc("/bookings/{bookingId}/no-show", updateBookingStatus.MarkNoShow).Methods(http.MethodPut)

	// --- Сессии ---
	protected.HandleFunc("/sessions/{sessionId}", getSession.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/sessions/{sessionId}/messages", getSession.Messages).Methods(http.MethodGet)
	protected.HandleFunc("/sessions/{sessionId}/end", getSession.End).Methods(http.MethodPut)

	// Websocket сигналинга; токен можно передать в access_token
	r.Handle("/ws/sessions/{sessionId}", auth(sessionSocket)).Methods(http.MethodGet)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Hijacked websocket-соединения Shutdown не закрывает
	socketsClosed := make(chan struct{})
	srv.RegisterOnShutdown(func() {
		defer close(socketsClosed)
		registry.CloseAll()
	})

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}
	<-socketsClosed

	// Останавливаем фоновые компоненты и дожидаемся сохранения очередей
	stopBackground()
	<-relayDone
	if dispatcher != nil {
		dispatcher.Wait()
	}

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	log.Info("Server stopped gracefully")
}
