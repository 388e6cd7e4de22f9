package engine

import (
	"testing"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		dir       models.Direction
		last      models.PositionSide
		wantTrade bool
		wantSide  models.OrderSide
	}{
		{"buy from flat", models.DirectionBuy, "", true, models.OrderBuy},
		{"buy flips short", models.DirectionBuy, models.PositionShort, true, models.OrderBuy},
		{"buy when already long", models.DirectionBuy, models.PositionLong, false, ""},
		{"sell from flat", models.DirectionSell, "", true, models.OrderSell},
		{"sell flips long", models.DirectionSell, models.PositionLong, true, models.OrderSell},
		{"sell when already short", models.DirectionSell, models.PositionShort, false, ""},
		{"wait from flat", models.DirectionWait, "", false, ""},
		{"wait when long", models.DirectionWait, models.PositionLong, false, ""},
	}
	for _, tc := range tests {
		sig := models.Signal{InstID: "BTC-USDT-SWAP", Direction: tc.dir, Reason: "test reason"}
		dec := Decide(sig, tc.last)
		if dec.Trade != tc.wantTrade {
			t.Fatalf("%s: expected trade=%v, got %v (%s)", tc.name, tc.wantTrade, dec.Trade, dec.Reason)
		}
		if dec.Side != tc.wantSide {
			t.Fatalf("%s: expected side %q, got %q", tc.name, tc.wantSide, dec.Side)
		}
		if dec.Reason == "" {
			t.Fatalf("%s: expected non-empty reason", tc.name)
		}
	}
}

func TestDecideDedupReasons(t *testing.T) {
	sig := models.Signal{Direction: models.DirectionBuy, Reason: "uptrend"}
	dec := Decide(sig, models.PositionLong)
	if dec.Reason != "already long" {
		t.Fatalf("expected reason %q, got %q", "already long", dec.Reason)
	}
	sig.Direction = models.DirectionSell
	dec = Decide(sig, models.PositionShort)
	if dec.Reason != "already short" {
		t.Fatalf("expected reason %q, got %q", "already short", dec.Reason)
	}
}
