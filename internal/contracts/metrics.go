package contracts

// ProcessedTrade is one closed round trip
type ProcessedTrade struct {
	ID             int     `json:"id"`
	Date           string  `json:"date"` // exit date, 2006-01-02 UTC
	Type           Side    `json:"type"` // entry side
	EntryPrice     float64 `json:"price"`
	Size           float64 `json:"size"`
	PnL            float64 `json:"pnl"`
	RunningPnL     float64 `json:"runningPnl"`
	RunningCapital float64 `json:"runningCapital"`
}

// EquityPoint is the account value after a round trip
type EquityPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// MonthlyReturn is realized P&L of one calendar month over initial capital
type MonthlyReturn struct {
	Month  string  `json:"month"` // "Jan 2006"
	Return float64 `json:"return"`
}

// DrawdownPoint marks an equity point more than the threshold below its peak
type DrawdownPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"` // negative fraction
}

// ClusterID buckets a round trip by the sign of its P&L
type ClusterID int

const (
	ClusterWin       ClusterID = 0
	ClusterLoss      ClusterID = 1
	ClusterBreakeven ClusterID = 2
)

// TradeCluster is a scatter point for the clustering view
type TradeCluster struct {
	X       float64   `json:"x"` // holding-period proxy
	Y       float64   `json:"y"` // return on entry price
	Z       float64   `json:"z"` // size proxy
	Cluster ClusterID `json:"cluster"`
}

// ProcessedMetrics is the full result of one metrics computation
// ⭐ SSOT: 지표 계산 결과는 이 구조체 하나로만 전달
type ProcessedMetrics struct {
	StrategyName   string  `json:"strategyName"`
	StrategyParams string  `json:"strategyParams"`
	InitialCapital float64 `json:"initialCapital"`

	// 수익률
	TotalReturn  float64 `json:"totalReturn"`
	AnnualReturn float64 `json:"annualReturn"`

	// 리스크 지표
	SharpeRatio float64 `json:"sharpeRatio"`
	MaxDrawdown float64 `json:"maxDrawdown"`

	// 트레이딩 지표
	AvgProfit    float64 `json:"avgProfit"`
	WinRate      float64 `json:"winRate"`
	ProfitFactor float64 `json:"profitFactor"`
	WinLossRatio float64 `json:"winLossRatio"`

	Trades         []ProcessedTrade `json:"trades"`
	EquityCurve    []EquityPoint    `json:"equityCurve"`
	MonthlyReturns []MonthlyReturn  `json:"monthlyReturns"`
	Drawdowns      []DrawdownPoint  `json:"drawdowns"`
	TradeClusters  []TradeCluster   `json:"tradeClusters"`
}

// RoundTrips returns the number of closed positions
func (m *ProcessedMetrics) RoundTrips() int {
	return len(m.Trades)
}

// FinalCapital returns the running capital after the last round trip
func (m *ProcessedMetrics) FinalCapital() float64 {
	if len(m.Trades) == 0 {
		return m.InitialCapital
	}
	return m.Trades[len(m.Trades)-1].RunningCapital
}

// Clone returns a copy whose slices can be modified independently
func (m *ProcessedMetrics) Clone() *ProcessedMetrics {
	c := *m
	c.Trades = append([]ProcessedTrade{}, m.Trades...)
	c.EquityCurve = append([]EquityPoint{}, m.EquityCurve...)
	c.MonthlyReturns = append([]MonthlyReturn{}, m.MonthlyReturns...)
	c.Drawdowns = append([]DrawdownPoint{}, m.Drawdowns...)
	c.TradeClusters = append([]TradeCluster{}, m.TradeClusters...)
	return &c
}
