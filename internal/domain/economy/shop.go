package economy

import (
	"time"

	"github.com/okian/anchor/internal/domain/model"
)

// Catalog is a read-only list of shop rewards.
type Catalog struct {
	items []model.Reward
	byID  map[string]model.Reward
}

// NewCatalog indexes items by id.
func NewCatalog(items []model.Reward) *Catalog {
	c := &Catalog{
		items: append([]model.Reward(nil), items...),
		byID:  make(map[string]model.Reward, len(items)),
	}
	for _, it := range items {
		c.byID[it.ID] = it
	}
	return c
}

// Items returns a copy of the catalog.
func (c *Catalog) Items() []model.Reward {
	return append([]model.Reward(nil), c.items...)
}

// Lookup finds a reward by id.
func (c *Catalog) Lookup(id string) (model.Reward, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Purchase buys reward for p at time at.
func Purchase(p model.Player, reward model.Reward, at time.Time) (Change, model.Purchase, error) {
	ch, err := Spend(p, reward.Cost)
	if err != nil {
		return ch, model.Purchase{}, err
	}
	return ch, model.Purchase{
		RewardID:    reward.ID,
		Name:        reward.Name,
		Cost:        reward.Cost,
		PurchasedAt: at,
	}, nil
}
