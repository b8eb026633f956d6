package api

import "time"

// Direction is the side of an order.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// OrderType selects how an order rests or sweeps the book.
type OrderType string

const (
	OrderTypeLimit             OrderType = "limit"
	OrderTypeMarket            OrderType = "market"
	OrderTypeFillOrKill        OrderType = "fill-or-kill"
	OrderTypeImmediateOrCancel OrderType = "immediate-or-cancel"
)

// Heartbeat is the top-level API liveness response.
type Heartbeat struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// VenueHeartbeat reports liveness for one venue.
type VenueHeartbeat struct {
	OK    bool   `json:"ok"`
	Venue string `json:"venue"`
	Error string `json:"error"`
}

// Stock is one tradeable listing on a venue.
type Stock struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Stocks lists the symbols a venue trades.
type Stocks struct {
	OK      bool    `json:"ok"`
	Error   string  `json:"error"`
	Symbols []Stock `json:"symbols"`
}

// BookEntry is one resting price level side entry in the order book.
type BookEntry struct {
	Price int  `json:"price"`
	Qty   int  `json:"qty"`
	IsBuy bool `json:"isBuy"`
}

// OrderBook is a point-in-time view of resting interest for a symbol.
type OrderBook struct {
	OK        bool        `json:"ok"`
	Error     string      `json:"error"`
	Venue     string      `json:"venue"`
	Symbol    string      `json:"symbol"`
	Bids      []BookEntry `json:"bids"`
	Asks      []BookEntry `json:"asks"`
	Timestamp time.Time   `json:"ts"`
}

// Quote is a snapshot of the market for a symbol. Best bid/ask are pointers
// because a side with no resting interest is absent, and zero is a real price.
type Quote struct {
	OK             bool      `json:"ok"`
	Error          string    `json:"error"`
	Venue          string    `json:"venue"`
	Symbol         string    `json:"symbol"`
	Bid            *int      `json:"bid"`
	Ask            *int      `json:"ask"`
	BidSize        int       `json:"bidSize"`
	AskSize        int       `json:"askSize"`
	BidDepth       int       `json:"bidDepth"`
	AskDepth       int       `json:"askDepth"`
	LastTradePrice int       `json:"last"`
	LastTradeSize  int       `json:"lastSize"`
	LastTradeTime  time.Time `json:"lastTrade"`
	QuoteTime      time.Time `json:"quoteTime"`
}

// BestBid returns the best bid price, reporting absence explicitly.
func (q Quote) BestBid() (int, bool) {
	if q.Bid == nil {
		return 0, false
	}
	return *q.Bid, true
}

// BestAsk returns the best ask price, reporting absence explicitly.
func (q Quote) BestAsk() (int, bool) {
	if q.Ask == nil {
		return 0, false
	}
	return *q.Ask, true
}

// Fill is a single execution against an order.
type Fill struct {
	Price     int       `json:"price"`
	Qty       int       `json:"qty"`
	Timestamp time.Time `json:"ts"`
}

// Order is the venue's view of an order: returned by place/cancel round trips
// and delivered on the executions feed. Qty is the quantity left outstanding;
// Price is the order's limit price and may not match the price of any fill.
type Order struct {
	OK          bool      `json:"ok"`
	Error       string    `json:"error"`
	Venue       string    `json:"venue"`
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	OriginalQty int       `json:"originalQty"`
	Qty         int       `json:"qty"`
	Price       int       `json:"price"`
	Type        OrderType `json:"orderType"`
	ID          int       `json:"id"`
	Account     string    `json:"account"`
	Timestamp   time.Time `json:"ts"`
	Fills       []Fill    `json:"fills"`
	TotalFilled int       `json:"totalFilled"`
	Open        bool      `json:"open"`
}

// FilledQty sums the fill quantities carried on this report.
func (o Order) FilledQty() int {
	total := 0
	for _, f := range o.Fills {
		total += f.Qty
	}
	return total
}

// FilledNotional sums qty*price over the fills carried on this report.
func (o Order) FilledNotional() int64 {
	var total int64
	for _, f := range o.Fills {
		total += int64(f.Qty) * int64(f.Price)
	}
	return total
}

type placeOrderRequest struct {
	Account   string    `json:"account"`
	Venue     string    `json:"venue"`
	Stock     string    `json:"stock"`
	Price     int       `json:"price"`
	Qty       int       `json:"qty"`
	Direction Direction `json:"direction"`
	Type      OrderType `json:"orderType"`
}

type quoteEnvelope struct {
	OK    bool  `json:"ok"`
	Quote Quote `json:"quote"`
}

type orderEnvelope struct {
	OK    bool  `json:"ok"`
	Order Order `json:"order"`
}
