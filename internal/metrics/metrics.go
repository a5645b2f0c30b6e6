package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	OrdersSeen          Counter
	OrderAlerts         Counter
	PositionReports     Counter
	AlertsFailed        Counter
	OrderFetchFailed    Counter
	PositionFetchFailed Counter
	RowsRejected        Counter
	IterationsFailed    Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		OrdersSeen:          n,
		OrderAlerts:         n,
		PositionReports:     n,
		AlertsFailed:        n,
		OrderFetchFailed:    n,
		PositionFetchFailed: n,
		RowsRejected:        n,
		IterationsFailed:    n,
	}
}
