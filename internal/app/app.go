// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт хранилище, кеш, сервисы, обработчики,
// HTTP-сервер и планировщик.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gaqt-backend/internal/api"
	"serotonyl.ru/gaqt-backend/internal/api/middleware"
	"serotonyl.ru/gaqt-backend/internal/cache"
	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/config"
	"serotonyl.ru/gaqt-backend/internal/db/memory"
	"serotonyl.ru/gaqt-backend/internal/db/postgres"
	"serotonyl.ru/gaqt-backend/internal/features/achievements"
	"serotonyl.ru/gaqt-backend/internal/features/admin"
	"serotonyl.ru/gaqt-backend/internal/features/auth"
	"serotonyl.ru/gaqt-backend/internal/features/leaderboard"
	"serotonyl.ru/gaqt-backend/internal/features/quests"
	"serotonyl.ru/gaqt-backend/internal/features/referrals"
	"serotonyl.ru/gaqt-backend/internal/features/users"
	"serotonyl.ru/gaqt-backend/internal/jobs"
	"serotonyl.ru/gaqt-backend/internal/telegram/initdata"
	"serotonyl.ru/gaqt-backend/internal/telegram/notify"
)

// App содержит все компоненты приложения.
type App struct {
	Server    *api.Server
	Scheduler *jobs.Scheduler

	closers []func()
}

// Close освобождает ресурсы в обратном порядке создания.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// stores — хранилища всех фич.
type stores struct {
	users        users.Store
	quests       quests.Store
	seeder       quests.Seeder
	referrals    referrals.Store
	achievements achievements.Store
	leaderboard  leaderboard.Store
	admin        admin.Store
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	common.SetLocation(common.LoadLocation(cfg.AppTimezone))

	// === 1. Хранилище ===
	st, err := a.openStorage(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	if n, err := st.seeder.SeedQuests(ctx, quests.DefaultCatalog()); err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка заполнения каталога квестов: %w", err)
	} else if n > 0 {
		log.WithField("count", n).Info("Каталог квестов заполнен")
	}

	// === 2. Кеш ===
	c := a.openCache(ctx, cfg)

	// === 3. Telegram ===
	verifier, err := newVerifier(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.NotifyEnabled {
		tg, err := notify.NewTelego(ctx, cfg.TelegramBotToken)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
		}
		notifier = tg
	}

	// === 4. Сервисы ===
	achievementService := achievements.NewService(st.achievements, notifier)
	userService := users.NewService(st.users, c, achievementService, cfg.UserStartEnergy)
	questService := quests.NewService(st.quests, c, achievementService)
	referralService := referrals.NewService(st.referrals, c, achievementService, notifier)
	leaderboardService := leaderboard.NewService(st.leaderboard, c, achievementService)
	authService := auth.NewService(verifier, userService, referralService)
	adminService := admin.NewService(st.admin, cfg.AdminPasswordHash, cfg.AdminMaxFailedAttempts, cfg.AdminLockout)
	if !adminService.Enabled() {
		log.Warn("ADMIN_PASSWORD_HASH не задан, админ-API отключено")
	}

	// === 5. Обработчики ===
	handlers := api.Handlers{
		Auth:         auth.NewHandler(authService),
		Users:        users.NewHandler(userService),
		Quests:       quests.NewHandler(questService),
		Referrals:    referrals.NewHandler(referralService),
		Achievements: achievements.NewHandler(achievementService),
		Leaderboard:  leaderboard.NewHandler(leaderboardService),
		Admin:        admin.NewHandler(adminService, questService, achievementService, userService, cfg.DailyQuestMultiplier),
	}

	// === 6. HTTP-сервер ===
	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	a.closers = append(a.closers, limiter.Close)

	router := api.NewRouter(handlers, api.Options{
		Verifier:       verifier,
		Resolver:       userService,
		RateLimiter:    limiter,
		RequestTimeout: cfg.HTTPRequestTimeout,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	a.Server = api.NewServer(cfg.HTTPAddr, router, cfg.HTTPReadTimeout, cfg.HTTPWriteTimeout)

	// === 7. Планировщик задач ===
	a.Scheduler = jobs.NewScheduler(jobs.Config{
		Location:              common.Location(),
		EnergyRegenSchedule:   cfg.EnergyRegenSchedule,
		DailyRotationSchedule: cfg.DailyRotationSchedule,
		TopPlayersSchedule:    cfg.TopPlayersSchedule,
		DailyQuestCount:       cfg.DailyQuestCount,
		DailyMultiplier:       cfg.DailyQuestMultiplier,
	}, userService, questService, leaderboardService)

	return a, nil
}

// openStorage подключает выбранное хранилище и применяет миграции.
func (a *App) openStorage(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.DBDriver == config.DriverMemory {
		log.Warn("DB_DRIVER=memory: данные хранятся только в памяти процесса")
		m := memory.New()
		return &stores{
			users:        m,
			quests:       m,
			seeder:       m,
			referrals:    m,
			achievements: m,
			leaderboard:  m,
			admin:        m,
		}, nil
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      cfg.DatabaseDSN(),
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	return postgresStores(pool), nil
}

func postgresStores(pool *pgxpool.Pool) *stores {
	questRepo := quests.NewRepository(pool)
	return &stores{
		users:        users.NewRepository(pool),
		quests:       questRepo,
		seeder:       questRepo,
		referrals:    referrals.NewRepository(pool),
		achievements: achievements.NewRepository(pool),
		leaderboard:  leaderboard.NewRepository(pool),
		admin:        admin.NewRepository(pool),
	}
}

// openCache выбирает кеш: Redis, если задан REDIS_ADDR, иначе LRU
// в памяти процесса, иначе без кеша. Недоступный Redis не мешает старту.
func (a *App) openCache(ctx context.Context, cfg *config.Config) cache.Cache {
	if cfg.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			a.closers = append(a.closers, func() {
				if err := r.Close(); err != nil {
					log.WithError(err).Warn("Ошибка закрытия Redis")
				}
			})
			return r
		}
		log.WithError(err).Warn("Redis недоступен, используем кеш в памяти")
	}

	if cfg.CacheLocalSize > 0 {
		l, err := cache.NewLRU(cfg.CacheLocalSize)
		if err == nil {
			return l
		}
		log.WithError(err).Warn("Не удалось создать LRU-кеш")
	}

	log.Info("Кеш отключён")
	return cache.NewNoop()
}

// newVerifier выбирает проверку initData. Режим разработки возможен
// только без токена бота, это гарантирует config.Validate.
func newVerifier(cfg *config.Config) (initdata.Verifier, error) {
	if cfg.AuthDevMode {
		if cfg.TelegramBotToken != "" {
			return nil, fmt.Errorf("AUTH_DEV_MODE несовместим с TELEGRAM_BOT_TOKEN")
		}
		log.Warn("AUTH_DEV_MODE: подпись initData НЕ проверяется")
		return initdata.NewDevValidator(), nil
	}
	return initdata.NewValidator(cfg.TelegramBotToken, cfg.AuthMaxAge), nil
}
