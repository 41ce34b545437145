package domain

// Phase is the derived lifecycle phase of a symbol's position. It is
// computed from TotalBase and AnchorPrice, never stored.
type Phase string

const (
	PhaseFlatUnarmed Phase = "FLAT_UNARMED"
	PhaseFlatArmed   Phase = "FLAT_ARMED"
	PhasePositioned  Phase = "POSITIONED"
)

// OpenOrder is a resting order this process placed and still expects to
// see fill. PlacedAt lets stale identifiers expire instead of sitting in
// the open set forever.
type OpenOrder struct {
	ClientID string `json:"client_id"`
	PlacedAt int64  `json:"placed_at"` // unix seconds
}

// SymbolState is the durable position bookkeeping for one trading pair.
type SymbolState struct {
	Symbol         string      `json:"symbol"`
	AvgEntry       float64     `json:"avg_entry"`
	TotalBase      float64     `json:"total_base"`
	OpenBuyOrders  []OpenOrder `json:"open_buy_orders"`
	OpenSellOrders []OpenOrder `json:"open_sell_orders"`
	AnchorPrice    float64     `json:"anchor_price"` // 0 means unarmed
	LastSignalTS   int64       `json:"last_signal_ts"`
	TPBasis        float64     `json:"tp_basis"` // avg entry the resting TP set was priced from
}

// NewSymbolState returns the default flat, unarmed state for a symbol.
func NewSymbolState(symbol string) *SymbolState {
	return &SymbolState{Symbol: symbol}
}

func (s *SymbolState) Phase() Phase {
	if s.TotalBase > 0 {
		return PhasePositioned
	}
	if s.AnchorPrice > 0 {
		return PhaseFlatArmed
	}
	return PhaseFlatUnarmed
}

// Armed reports whether an entry anchor is currently set.
func (s *SymbolState) Armed() bool {
	return s.AnchorPrice > 0
}

// PositionUSD is the quote-currency value of the tracked position at cost.
func (s *SymbolState) PositionUSD() float64 {
	return s.AvgEntry * s.TotalBase
}

// Reset returns the state to flat/unarmed and drops all tracked orders.
func (s *SymbolState) Reset() {
	s.AvgEntry = 0
	s.TotalBase = 0
	s.OpenBuyOrders = nil
	s.OpenSellOrders = nil
	s.AnchorPrice = 0
	s.TPBasis = 0
}

// Disarm clears the entry anchor without touching the position.
func (s *SymbolState) Disarm() {
	s.AnchorPrice = 0
}

func (s *SymbolState) AddBuyOrder(clientID string, placedAt int64) {
	s.OpenBuyOrders = append(s.OpenBuyOrders, OpenOrder{ClientID: clientID, PlacedAt: placedAt})
}

func (s *SymbolState) AddSellOrder(clientID string, placedAt int64) {
	s.OpenSellOrders = append(s.OpenSellOrders, OpenOrder{ClientID: clientID, PlacedAt: placedAt})
}

// RemoveBuyOrder deletes the identifier from the open buy set. It reports
// whether the identifier was present.
func (s *SymbolState) RemoveBuyOrder(clientID string) bool {
	var ok bool
	s.OpenBuyOrders, ok = removeOrder(s.OpenBuyOrders, clientID)
	return ok
}

// RemoveSellOrder deletes the identifier from the open sell set. It
// reports whether the identifier was present.
func (s *SymbolState) RemoveSellOrder(clientID string) bool {
	var ok bool
	s.OpenSellOrders, ok = removeOrder(s.OpenSellOrders, clientID)
	return ok
}

func (s *SymbolState) HasBuyOrder(clientID string) bool {
	return hasOrder(s.OpenBuyOrders, clientID)
}

func (s *SymbolState) HasSellOrder(clientID string) bool {
	return hasOrder(s.OpenSellOrders, clientID)
}

func removeOrder(orders []OpenOrder, clientID string) ([]OpenOrder, bool) {
	for i, o := range orders {
		if o.ClientID == clientID {
			return append(orders[:i], orders[i+1:]...), true
		}
	}
	return orders, false
}

func hasOrder(orders []OpenOrder, clientID string) bool {
	for _, o := range orders {
		if o.ClientID == clientID {
			return true
		}
	}
	return false
}
