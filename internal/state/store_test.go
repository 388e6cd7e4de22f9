package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

func testStore() *Store {
	return New(models.TradeConfig{Margin: 100, Leverage: 5, MaxLeverage: 20}, 0)
}

func fill(inst string, side models.PositionSide, size, price float64) Fill {
	return Fill{
		InstID:   inst,
		Side:     side,
		Size:     size,
		Price:    price,
		Leverage: 5,
		OrderID:  "ord-1",
		Mode:     "cross",
		At:       time.Now(),
	}
}

func TestApplyFillOpensPosition(t *testing.T) {
	s := testStore()
	closed, pos, err := s.ApplyFill(fill("BTC-USDT-SWAP", models.PositionLong, 0.5, 40000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed != nil {
		t.Fatalf("expected no closed position, got %+v", closed)
	}
	if pos.ID != "pos-1" {
		t.Fatalf("expected id pos-1, got %s", pos.ID)
	}
	if pos.Size != 0.5 || pos.EntryPrice != 40000 {
		t.Fatalf("expected 0.5@40000, got %v@%v", pos.Size, pos.EntryPrice)
	}
	if got := s.Positions(); len(got) != 1 {
		t.Fatalf("expected 1 open position, got %d", len(got))
	}
}

func TestApplyFillMergesSameSide(t *testing.T) {
	s := testStore()
	if _, _, err := s.ApplyFill(fill("BTC-USDT-SWAP", models.PositionLong, 10, 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	closed, pos, err := s.ApplyFill(fill("BTC-USDT-SWAP", models.PositionLong, 10, 200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed != nil {
		t.Fatalf("merge must not close anything, got %+v", closed)
	}
	if pos.Size != 20 {
		t.Fatalf("expected merged size 20, got %v", pos.Size)
	}
	if pos.EntryPrice != 150 {
		t.Fatalf("expected weighted entry 150, got %v", pos.EntryPrice)
	}
	if got := s.Positions(); len(got) != 1 {
		t.Fatalf("expected single merged position, got %d", len(got))
	}
}

func TestApplyFillFlipsOppositeSide(t *testing.T) {
	s := testStore()
	if _, _, err := s.ApplyFill(fill("ETH-USDT-SWAP", models.PositionLong, 2, 3000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	closed, pos, err := s.ApplyFill(fill("ETH-USDT-SWAP", models.PositionShort, 1, 3100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed == nil {
		t.Fatal("expected flip to close the long")
	}
	if closed.Side != models.PositionLong {
		t.Fatalf("expected closed side long, got %s", closed.Side)
	}
	if closed.CurrentPrice != 3100 {
		t.Fatalf("expected closed exit price 3100, got %v", closed.CurrentPrice)
	}
	if pnl := closed.PnL(closed.CurrentPrice); pnl != 200 {
		t.Fatalf("expected realized pnl 200, got %v", pnl)
	}
	if pos.Side != models.PositionShort || pos.Size != 1 {
		t.Fatalf("expected new short 1, got %s %v", pos.Side, pos.Size)
	}
	open := s.Positions()
	if len(open) != 1 {
		t.Fatalf("flip must never leave both sides open, got %d positions", len(open))
	}
	if open[0].Side != models.PositionShort {
		t.Fatalf("expected the short to survive, got %s", open[0].Side)
	}
}

func TestApplyFillRejectsMalformed(t *testing.T) {
	s := testStore()
	cases := []Fill{
		fill("BTC-USDT-SWAP", models.PositionLong, 0, 100),
		fill("BTC-USDT-SWAP", models.PositionLong, -1, 100),
		fill("BTC-USDT-SWAP", models.PositionLong, 1, 0),
		{InstID: "BTC-USDT-SWAP", Side: models.PositionLong, Size: 1, Price: 100, Leverage: 0},
	}
	for i, f := range cases {
		if _, _, err := s.ApplyFill(f); err == nil {
			t.Fatalf("case %d: expected error for malformed fill %+v", i, f)
		}
	}
	if got := s.Positions(); len(got) != 0 {
		t.Fatalf("malformed fills must not mutate state, got %d positions", len(got))
	}
}

func TestClosePosition(t *testing.T) {
	s := testStore()
	_, pos, _ := s.ApplyFill(fill("BTC-USDT-SWAP", models.PositionLong, 1, 100))
	got, ok := s.ClosePosition(pos.ID)
	if !ok {
		t.Fatal("expected close to find the position")
	}
	if got.ID != pos.ID {
		t.Fatalf("expected %s, got %s", pos.ID, got.ID)
	}
	if _, ok := s.ClosePosition(pos.ID); ok {
		t.Fatal("expected second close to miss")
	}
}

func TestCloseAllPositions(t *testing.T) {
	s := testStore()
	s.ApplyFill(fill("BTC-USDT-SWAP", models.PositionLong, 1, 100))
	s.ApplyFill(fill("ETH-USDT-SWAP", models.PositionShort, 2, 3000))
	closed := s.CloseAllPositions()
	if len(closed) != 2 {
		t.Fatalf("expected 2 closed, got %d", len(closed))
	}
	if got := s.Positions(); len(got) != 0 {
		t.Fatalf("expected empty book, got %d", len(got))
	}
}

func TestUpdateMarketPriceFansOut(t *testing.T) {
	s := testStore()
	s.ApplyFill(fill("BTC-USDT-SWAP", models.PositionLong, 1, 100))
	s.ApplyFill(fill("ETH-USDT-SWAP", models.PositionShort, 2, 3000))
	s.UpdateMarketPrice("BTC-USDT-SWAP", 120)
	for _, p := range s.Positions() {
		switch p.InstID {
		case "BTC-USDT-SWAP":
			if p.CurrentPrice != 120 {
				t.Fatalf("expected currentPrice 120, got %v", p.CurrentPrice)
			}
		case "ETH-USDT-SWAP":
			if p.CurrentPrice != 3000 {
				t.Fatalf("foreign instrument must keep its price, got %v", p.CurrentPrice)
			}
		}
	}
	if st := s.InstrumentState("BTC-USDT-SWAP"); st.LastPrice != 120 {
		t.Fatalf("expected lastPrice 120, got %v", st.LastPrice)
	}
	// мусорные цены игнорируются
	s.UpdateMarketPrice("BTC-USDT-SWAP", 0)
	if st := s.InstrumentState("BTC-USDT-SWAP"); st.LastPrice != 120 {
		t.Fatalf("zero price must be ignored, got %v", st.LastPrice)
	}
}

func TestLogRing(t *testing.T) {
	s := New(models.TradeConfig{Margin: 10, Leverage: 1, MaxLeverage: 10}, 3)
	for i := 0; i < 5; i++ {
		s.AppendLog(models.LogInfo, "msg %d", i)
	}
	logs := s.Logs()
	if len(logs) != 3 {
		t.Fatalf("expected capacity 3, got %d", len(logs))
	}
	for i, want := range []string{"msg 4", "msg 3", "msg 2"} {
		if logs[i].Message != want {
			t.Fatalf("expected %q at %d, got %q", want, i, logs[i].Message)
		}
	}
}

func TestSetTradeConfigClamps(t *testing.T) {
	s := testStore()
	cfg := s.SetTradeConfig(250, 100)
	if cfg.Leverage != 20 {
		t.Fatalf("expected leverage clamped to 20, got %d", cfg.Leverage)
	}
	if cfg.Margin != 250 {
		t.Fatalf("expected margin 250, got %v", cfg.Margin)
	}
	cfg = s.SetTradeConfig(-5, 0)
	if cfg.Margin != 250 {
		t.Fatalf("non-positive margin must be ignored, got %v", cfg.Margin)
	}
	if cfg.Leverage != 1 {
		t.Fatalf("expected leverage clamped to 1, got %d", cfg.Leverage)
	}
}

func TestRecordTradeAndInstrumentState(t *testing.T) {
	s := testStore()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.RecordTrade("BTC-USDT-SWAP", models.PositionLong, at)
	st := s.InstrumentState("BTC-USDT-SWAP")
	if st.LastPosition != models.PositionLong {
		t.Fatalf("expected long, got %s", st.LastPosition)
	}
	if !st.LastTradeAt.Equal(at) {
		t.Fatalf("expected %v, got %v", at, st.LastTradeAt)
	}
	if st := s.InstrumentState("UNKNOWN"); st.LastPosition != "" || st.LastSignal != nil {
		t.Fatalf("expected zero state for unknown instrument, got %+v", st)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := testStore()
	s.ApplyFill(fill("BTC-USDT-SWAP", models.PositionLong, 1, 100))
	s.AppendLog(models.LogTrade, "opened")
	snap := s.Snapshot()
	snap.Positions[0].Size = 999
	snap.Logs[0] = models.LogEntry{Message: "tampered"}
	snap.Instruments["BTC-USDT-SWAP"] = models.InstrumentState{LastPrice: -1}
	if s.Positions()[0].Size != 1 {
		t.Fatal("snapshot mutation leaked into the store")
	}
	if s.Logs()[0].Message != "opened" {
		t.Fatal("snapshot log mutation leaked into the store")
	}
}

func TestPositionIDsMonotonic(t *testing.T) {
	s := testStore()
	for i := 0; i < 3; i++ {
		inst := fmt.Sprintf("INST-%d-USDT-SWAP", i)
		_, pos, _ := s.ApplyFill(fill(inst, models.PositionLong, 1, 100))
		want := fmt.Sprintf("pos-%d", i+1)
		if pos.ID != want {
			t.Fatalf("expected %s, got %s", want, pos.ID)
		}
	}
}
