package broadcaster

// Metrics records broadcaster activity. internal/observability provides a
// Prometheus implementation.
type Metrics interface {
	RecordPublish(err error)
	RecordDelivery(err error)
	RecordListenerFailure()
	RecordReconnect()
	SetListenerState(state State)
	SetSubscriptions(channels, subscriptions int)
}

type nopMetrics struct{}

func (nopMetrics) RecordPublish(error)       {}
func (nopMetrics) RecordDelivery(error)      {}
func (nopMetrics) RecordListenerFailure()    {}
func (nopMetrics) RecordReconnect()          {}
func (nopMetrics) SetListenerState(State)    {}
func (nopMetrics) SetSubscriptions(int, int) {}
