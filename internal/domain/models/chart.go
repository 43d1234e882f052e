package models

// ChartPoint is one chart sample.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartSeries is a FIFO window of at most Capacity samples.
type ChartSeries struct {
	Capacity int
	points   []ChartPoint
}

func NewChartSeries(capacity int) *ChartSeries {
	if capacity <= 0 {
		capacity = 10
	}
	return &ChartSeries{Capacity: capacity, points: make([]ChartPoint, 0, capacity+1)}
}

// Append pushes p and evicts the oldest samples beyond Capacity.
func (s *ChartSeries) Append(p ChartPoint) {
	s.points = append(s.points, p)
	if over := len(s.points) - s.Capacity; over > 0 {
		s.points = append(s.points[:0], s.points[over:]...)
	}
}

func (s *ChartSeries) Len() int { return len(s.points) }

// Points returns a copy of the samples, oldest first.
func (s *ChartSeries) Points() []ChartPoint {
	out := make([]ChartPoint, len(s.points))
	copy(out, s.points)
	return out
}

// ChartFrame is what a renderer draws: parallel labels and values plus the
// number of decimals for y-axis ticks.
type ChartFrame struct {
	Labels       []string  `json:"labels"`
	Values       []float64 `json:"values"`
	TickDecimals int       `json:"tick_decimals"`
}

// Frame converts the series into a ChartFrame.
func (s *ChartSeries) Frame(tickDecimals int) ChartFrame {
	f := ChartFrame{
		Labels:       make([]string, len(s.points)),
		Values:       make([]float64, len(s.points)),
		TickDecimals: tickDecimals,
	}
	for i, p := range s.points {
		f.Labels[i] = p.Label
		f.Values[i] = p.Value
	}
	return f
}
