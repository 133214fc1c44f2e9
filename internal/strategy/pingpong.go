package strategy

import (
	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

// PingPong quotes a single level that alternates sides: buy while flat,
// sell once the base position covers the quote size. The skew gate still
// applies on top.
type PingPong struct{}

func NewPingPong() *PingPong { return &PingPong{} }

func (p *PingPong) Name() string { return "pingpong" }

func (p *PingPong) Levels(in PolicyInput) []LevelSpec {
	if in.Mid <= 0 || in.Offset <= 0 {
		return nil
	}

	suppressBuy, suppressSell := suppressed(in)
	qty := in.Inst.RoundQty(in.BaseSize)
	if qty <= 0 {
		return nil
	}

	if in.Inventory.CanSell(qty) {
		if suppressSell {
			return nil
		}
		price := in.Inst.RoundPrice(in.Mid + in.Offset)
		if in.Inst.ValidateOrder(price, qty) != nil {
			return nil
		}
		return []LevelSpec{{Level: 1, Side: domain.SideSell, Price: price, Qty: qty}}
	}

	if suppressBuy {
		return nil
	}
	price := in.Inst.RoundPrice(in.Mid - in.Offset)
	if in.Inst.ValidateOrder(price, qty) != nil {
		return nil
	}
	return []LevelSpec{{Level: 1, Side: domain.SideBuy, Price: price, Qty: qty}}
}
