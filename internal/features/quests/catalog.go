package quests

import (
	"context"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/db/postgres"
)

// Seeder заполняет пустой каталог.
type Seeder interface {
	SeedQuests(ctx context.Context, catalog []Quest) (int, error)
}

func ptr[T any](v T) *T { return &v }

// DefaultCatalog — стартовый каталог квестов.
func DefaultCatalog() []Quest {
	return []Quest{
		{
			Type: TypeSocial, Title: "Join the G.A.Q.T. channel",
			Description:  "Subscribe to the official Telegram channel",
			RewardPoints: 500, RewardEnergy: 50, IconEmoji: "📢", OrderIndex: 1,
		},
		{
			Type: TypeSocial, Title: "Share with friends",
			Description:  "Repost the game announcement to any chat",
			RewardPoints: 750, RewardEnergy: 50, IconEmoji: "🔁", OrderIndex: 2,
		},
		{
			Type: TypeAffiliate, Title: "Visit our partner",
			Description:  "Open the partner page and look around",
			RewardPoints: 1000, RewardEnergy: 100, IconEmoji: "🤝", OrderIndex: 3,
			AffiliateURL: ptr("https://t.me/gaqt_partners"),
		},
		{
			Type: TypeTon, Title: "Connect a TON wallet",
			Description:  "Link your TON wallet to the profile",
			RewardPoints: 2000, RewardEnergy: 200, IconEmoji: "💎", OrderIndex: 4,
		},
		{
			Type: TypeIAP, Title: "Energy pack",
			Description:  "Buy an energy refill with Telegram Stars",
			RewardPoints: 1500, RewardEnergy: 500, IconEmoji: "⭐", OrderIndex: 5,
			StarsPrice: ptr(50),
		},
	}
}

// SeedQuests заливает catalog, если таблица quests пуста.
// Возвращает число добавленных квестов.
func (r *Repository) SeedQuests(ctx context.Context, catalog []Quest) (int, error) {
	inserted := 0
	err := postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quests)`).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}
		for _, q := range catalog {
			_, err := tx.Exec(ctx, `
				INSERT INTO quests (type, title, description, reward_points, reward_energy,
					affiliate_url, stars_price, icon_emoji, is_active, order_index)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9)
			`, q.Type, q.Title, q.Description, q.RewardPoints, q.RewardEnergy,
				q.AffiliateURL, q.StarsPrice, q.IconEmoji, q.OrderIndex)
			if err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, common.Storage("ошибка заполнения каталога квестов", err)
	}
	return inserted, nil
}
