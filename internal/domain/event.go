package domain

import "time"

// EventKind identifies what a notification is about.
type EventKind string

const (
	EventTradeDetected   EventKind = "trade_detected"
	EventSampleCollected EventKind = "sample_collected"
	EventTradeCompleted  EventKind = "trade_completed"
	EventStatusUpdate    EventKind = "status_update"
	EventAnalysisUpdated EventKind = "analysis_updated"
)

// Event is a fire-and-forget notification pushed to the sink.
type Event struct {
	Kind      EventKind `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key,omitempty"` // platform trade id or bucket key, used for partitioning
	Payload   any       `json:"data"`
}

// TradeDetectedPayload is the data of a trade_detected event.
type TradeDetectedPayload struct {
	TradeID         string    `json:"tradeId"`
	PlatformTradeID string    `json:"platformTradeId"`
	Asset           string    `json:"asset"`
	TradeType       TradeType `json:"tradeType,omitempty"`
	Timeframe       string    `json:"timeframe"`
	DurationSeconds int       `json:"durationSeconds"`
	Amount          float64   `json:"amount,omitempty"`
	StartTime       time.Time `json:"startTime"`
}

// SampleCollectedPayload is the data of a sample_collected event.
type SampleCollectedPayload struct {
	TradeID         string      `json:"tradeId"`
	PlatformTradeID string      `json:"platformTradeId"`
	Sample          ColorSample `json:"sample"`
}

// CaptureStatus is the live view of the tracker, sent as status_update.
type CaptureStatus struct {
	IsActive         bool       `json:"isActive"`
	ChartDetection   bool       `json:"chartDetection"`
	TradeDetection   bool       `json:"tradeDetection"`
	TimerDetection   bool       `json:"timerDetection"`
	ResultDetection  bool       `json:"resultDetection"`
	LastCapture      time.Time  `json:"lastCapture"`
	ChartColor       ChartColor `json:"chartColor"`
	Confidence       float64    `json:"confidence"`
	CurrentAsset     string     `json:"currentAsset"`
	CurrentTimeframe string     `json:"currentTimeframe"`
	ActiveTradeCount int        `json:"activeTradeCount"`
	TradesDetected   int        `json:"tradesDetected"`
	ConsecutiveFails int        `json:"consecutiveFailures"`
}

// MonitoringSession is one start/stop run of the tracker.
type MonitoringSession struct {
	ID              string     `json:"id"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	IsActive        bool       `json:"isActive"`
	CaptureConfig   string     `json:"captureConfig,omitempty"`   // JSON
	DetectionStatus string     `json:"detectionStatus,omitempty"` // JSON
}
