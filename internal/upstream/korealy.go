package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/miraiskin/platform/internal/domain"
)

// Korealy — клиент API поставщика Korealy (выписки по заказам)
type Korealy struct {
	c *Client
}

func NewKorealy(c *Client) *Korealy {
	return &Korealy{c: c}
}

// FetchSettlement забирает строки выписки за последние days дней
func (k *Korealy) FetchSettlement(ctx context.Context, days int) ([]domain.SettlementRow, error) {
	var out struct {
		Rows []domain.SettlementRow `json:"rows"`
	}
	path := fmt.Sprintf("/v1/settlement?days=%d", days)
	if err := k.c.call(ctx, "korealy.settlement", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}
