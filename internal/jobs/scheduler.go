// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: регенерация энергии, выбор квестов
// дня и выдача достижений лучшим игрокам.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EnergyRegenerator начисляет энергию неактивным пользователям.
type EnergyRegenerator interface {
	RegenerateEnergy(ctx context.Context) (int64, error)
}

// DailyRotator выбирает квесты дня.
type DailyRotator interface {
	RotateDaily(ctx context.Context, count int, multiplier decimal.Decimal) (int, error)
}

// TopAwarder выдаёт достижения лучшим игрокам.
type TopAwarder interface {
	AwardTopPlayers(ctx context.Context) (int, error)
}

// Config — расписания задач.
type Config struct {
	Location              *time.Location
	EnergyRegenSchedule   string
	DailyRotationSchedule string
	TopPlayersSchedule    string
	DailyQuestCount       int
	DailyMultiplier       decimal.Decimal
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron   *cron.Cron
	cfg    Config
	energy EnergyRegenerator
	daily  DailyRotator
	top    TopAwarder
}

// NewScheduler создаёт планировщик в часовом поясе cfg.Location.
func NewScheduler(cfg Config, energy EnergyRegenerator, daily DailyRotator, top TopAwarder) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		cfg:    cfg,
		energy: energy,
		daily:  daily,
		top:    top,
	}
}

// Start регистрирует задачи, сразу выбирает квесты дня (если их ещё нет)
// и запускает cron. Некорректное расписание — ошибка старта.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context)
	}{
		{"регенерация энергии", s.cfg.EnergyRegenSchedule, s.regenerateEnergy},
		{"квесты дня", s.cfg.DailyRotationSchedule, s.rotateDaily},
		{"топ игроков", s.cfg.TopPlayersSchedule, s.awardTopPlayers},
	}

	for _, job := range jobs {
		if job.schedule == "" {
			continue
		}
		run := job.run
		if _, err := s.cron.AddFunc(job.schedule, func() { run(ctx) }); err != nil {
			return fmt.Errorf("некорректное расписание %q (%s): %w", job.schedule, job.name, err)
		}
	}

	s.rotateDaily(ctx)

	s.cron.Start()
	log.WithField("timezone", s.cron.Location().String()).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт выполняющиеся задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) regenerateEnergy(ctx context.Context) {
	if s.energy == nil {
		return
	}
	affected, err := s.energy.RegenerateEnergy(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка регенерации энергии")
		return
	}
	if affected > 0 {
		log.WithField("users", affected).Debug("[CRON] Энергия восстановлена")
	}
}

func (s *Scheduler) rotateDaily(ctx context.Context) {
	if s.daily == nil {
		return
	}
	if _, err := s.daily.RotateDaily(ctx, s.cfg.DailyQuestCount, s.cfg.DailyMultiplier); err != nil {
		log.WithError(err).Error("[CRON] Ошибка выбора квестов дня")
	}
}

func (s *Scheduler) awardTopPlayers(ctx context.Context) {
	if s.top == nil {
		return
	}
	if _, err := s.top.AwardTopPlayers(ctx); err != nil {
		log.WithError(err).Error("[CRON] Ошибка выдачи достижений за топ")
	}
}
