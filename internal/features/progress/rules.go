// Package progress содержит правила игрового леджера: уровень из очков,
// потолок энергии, начисления и множитель ежедневных квестов.
//
// Все репозитории (Postgres и in-memory) начисляют очки и энергию только
// через Ledger.Apply, поэтому уровень всегда совпадает с формулой LevelFor.
package progress

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxEnergy — потолок энергии
	MaxEnergy = 1000
	// PointsPerLevel — сколько очков нужно на один уровень
	PointsPerLevel = 10000
	// MaxPoints — потолок очков. Начисления сверх него не переполняют int64.
	MaxPoints int64 = 1_000_000_000_000_000

	// ReferralBonusPoints и ReferralBonusEnergy начисляются обоим участникам реферала
	ReferralBonusPoints = 1000
	ReferralBonusEnergy = 100

	// AchievementBonusPoints начисляется один раз за каждое достижение
	AchievementBonusPoints = 500

	// RegenEnergyAmount — прибавка энергии за один проход регенерации
	RegenEnergyAmount = 10
	// RegenInterval — минимальный интервал с последней синхронизации
	RegenInterval = 5 * time.Minute
)

// ReferralBonus — начисление за реферал каждому из двух участников.
var ReferralBonus = Credit{Points: ReferralBonusPoints, Energy: ReferralBonusEnergy}

// AchievementBonus — начисление за новое достижение.
var AchievementBonus = Credit{Points: AchievementBonusPoints}

// LevelFor вычисляет уровень: floor(points / 10000) + 1.
// Отрицательные очки считаются нулём.
func LevelFor(points int64) int {
	if points < 0 {
		points = 0
	}
	return int(points/PointsPerLevel) + 1
}

// ClampEnergy ограничивает энергию диапазоном 0..MaxEnergy.
func ClampEnergy(energy int) int {
	switch {
	case energy < 0:
		return 0
	case energy > MaxEnergy:
		return MaxEnergy
	default:
		return energy
	}
}

// Credit — начисление очков и энергии.
type Credit struct {
	Points int64
	Energy int
}

// IsZero сообщает, что начисление ничего не меняет.
func (c Credit) IsZero() bool {
	return c.Points == 0 && c.Energy == 0
}

// Ledger — очки, энергия и уровень пользователя.
type Ledger struct {
	Points int64
	Energy int
	Level  int
}

// Apply возвращает леджер после начисления. Энергия обрезается по потолку,
// очки по MaxPoints, уровень пересчитывается из новых очков.
func (l Ledger) Apply(c Credit) Ledger {
	points := addPoints(l.Points, c.Points)
	return Ledger{
		Points: points,
		Energy: addEnergy(l.Energy, c.Energy),
		Level:  LevelFor(points),
	}
}

// addPoints складывает очки с насыщением в диапазоне 0..MaxPoints.
func addPoints(current, delta int64) int64 {
	current = ClampPoints(current)
	switch {
	case delta > MaxPoints-current:
		return MaxPoints
	case delta < -current:
		return 0
	default:
		return current + delta
	}
}

// ClampPoints ограничивает очки диапазоном 0..MaxPoints.
func ClampPoints(points int64) int64 {
	switch {
	case points < 0:
		return 0
	case points > MaxPoints:
		return MaxPoints
	default:
		return points
	}
}

// addEnergy складывает энергию без переполнения int.
func addEnergy(current, delta int) int {
	current = ClampEnergy(current)
	if delta > MaxEnergy {
		delta = MaxEnergy
	}
	if delta < -MaxEnergy {
		delta = -MaxEnergy
	}
	return ClampEnergy(current + delta)
}

// ApplyDailyMultiplier вычисляет награду ежедневного квеста:
// floor(basePoints * multiplier). Множитель меньше 1 не уменьшает награду.
//
//	ApplyDailyMultiplier(100, 2.5) → 250
//	ApplyDailyMultiplier(99, 2.0)  → 198
func ApplyDailyMultiplier(basePoints int64, multiplier decimal.Decimal) int64 {
	if multiplier.LessThan(decimal.NewFromInt(1)) {
		return basePoints
	}
	return decimal.NewFromInt(basePoints).Mul(multiplier).Floor().IntPart()
}
