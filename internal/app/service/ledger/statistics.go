package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/pkg/types"
)

type StatisticType string

const (
	StatisticTypeDailyChargeCount StatisticType = "daily_charge_count"
	StatisticTypeDailyGross       StatisticType = "daily_gross"
	StatisticTypeDailyRefunded    StatisticType = "daily_refunded"
)

var statisticTypes = []StatisticType{
	StatisticTypeDailyChargeCount,
	StatisticTypeDailyGross,
	StatisticTypeDailyRefunded,
}

type StatisticRequest struct {
	// From and To bound created_at, inclusive. Zero values mean the last 30 days.
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	DataItems []StatisticType `json:"data_items"`
}

type StatisticDataItem struct {
	Date  string `json:"date"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticDataItem `json:"data_items"`
}

const statisticDateLayout = "2006-01-02"

// GetDailyStatistic aggregates succeeded ledger rows per UTC day and currency.
func (s *Service) GetDailyStatistic(ctx context.Context, req *StatisticRequest, now time.Time) (*StatisticResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	items := req.DataItems
	if len(items) == 0 {
		items = statisticTypes
	}
	for _, it := range items {
		if !lo.Contains(statisticTypes, it) {
			return nil, fmt.Errorf("invalid data item id: %s", it)
		}
	}
	to := req.To
	if to.IsZero() {
		to = now
	}
	from := req.From
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if from.After(to) {
		return nil, fmt.Errorf("invalid range: from %s after to %s", from, to)
	}

	var rows []*models.PaymentTransaction
	err := s.db.WithContext(ctx).
		Select("type", "amount", "currency", "created_at").
		Where("status = ?", types.TransactionStatusSucceeded).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load ledger rows for statistics: %w", err)
	}

	type key struct {
		date, currency string
	}
	counts := map[key]int64{}
	gross := map[key]int64{}
	refunded := map[key]int64{}
	for _, r := range rows {
		k := key{date: r.CreatedAt.UTC().Format(statisticDateLayout), currency: r.Currency}
		switch r.Type {
		case types.TransactionTypeCharge:
			counts[key{date: k.date}]++
			gross[k] += r.Amount
		case types.TransactionTypeRefund:
			refunded[k] += r.Amount
		}
	}

	res := &StatisticResponse{DataItems: map[StatisticType][]StatisticDataItem{}}
	for _, it := range items {
		var src map[key]int64
		switch it {
		case StatisticTypeDailyChargeCount:
			src = counts
		case StatisticTypeDailyGross:
			src = gross
		case StatisticTypeDailyRefunded:
			src = refunded
		}
		out := make([]StatisticDataItem, 0, len(src))
		for k, v := range src {
			out = append(out, StatisticDataItem{Date: k.date, Label: k.currency, Value: v})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Date != out[j].Date {
				return out[i].Date > out[j].Date
			}
			return out[i].Label < out[j].Label
		})
		res.DataItems[it] = out
	}
	return res, nil
}
