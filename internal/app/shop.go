package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/anchor/internal/adapters/repository"
	"github.com/okian/anchor/internal/domain/economy"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/pkg/logger"
	"github.com/okian/anchor/pkg/metrics"
)

// PurchaseOutcome is a successful purchase and the player after paying.
type PurchaseOutcome struct {
	Purchase model.Purchase `json:"purchase"`
	Player   model.Player   `json:"player"`
}

// Shop returns the reward catalog.
func (s *Service) Shop(context.Context) []model.Reward {
	return s.catalog.Items()
}

// Purchase buys a catalog reward. With too little gold it fails with
// economy.ErrInsufficientFunds and nothing changes.
func (s *Service) Purchase(ctx context.Context, rewardID string) (PurchaseOutcome, error) {
	reward, ok := s.catalog.Lookup(rewardID)
	if !ok {
		metrics.RecordPurchase("unknown")
		return PurchaseOutcome{}, fmt.Errorf("%w: reward %q", ErrNotFound, rewardID)
	}

	var purchase model.Purchase
	st, err := s.store.Update(ctx, func(st *repository.State) error {
		change, p, err := economy.Purchase(st.Player, reward, s.calendar.Now())
		if err != nil {
			return err
		}
		st.Player = change.After
		purchase = p
		return nil
	})
	if err != nil {
		if errors.Is(err, economy.ErrInsufficientFunds) {
			metrics.RecordPurchase("insufficient_funds")
		}
		return PurchaseOutcome{}, err
	}

	s.historyMu.Lock()
	s.history = append(s.history, purchase)
	s.historyMu.Unlock()

	metrics.RecordPurchase("ok")
	s.publishPlayer(st.Player)
	s.logger.Info(ctx, "reward purchased",
		logger.String("reward", reward.ID),
		logger.Int("cost", reward.Cost),
		logger.Int("gold", st.Player.Gold))
	return PurchaseOutcome{Purchase: purchase, Player: st.Player}, nil
}

// PurchaseHistory returns this process's purchases, oldest first.
func (s *Service) PurchaseHistory(context.Context) []model.Purchase {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	return append([]model.Purchase{}, s.history...)
}
