package events

import "time"

type EventType string

const (
	EventLocationIndexed EventType = "location_indexed"
	EventPageFetched     EventType = "page_fetched"
	EventPageDropped     EventType = "page_dropped"
	EventQueryAnswered   EventType = "query_answered"
)

// Event is anything the collector can publish. The key picks the partition.
type Event interface {
	EventKey() string
	Kind() EventType
}

type IndexEvent struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Location  string    `json:"location"`
	Source    string    `json:"source"`
	Words     int       `json:"words"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

func (e IndexEvent) EventKey() string { return e.Location }
func (e IndexEvent) Kind() EventType  { return e.Type }

type CrawlEvent struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	URL       string    `json:"url"`
	Bytes     int       `json:"bytes,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e CrawlEvent) EventKey() string { return e.URL }
func (e CrawlEvent) Kind() EventType  { return e.Type }

type QueryEvent struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Query     string    `json:"query"`
	Exact     bool      `json:"exact"`
	Results   int       `json:"results"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

func (e QueryEvent) EventKey() string { return e.Query }
func (e QueryEvent) Kind() EventType  { return e.Type }
