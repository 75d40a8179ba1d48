package membership

// Recorder receives engine events for metrics. Business outcomes and storage
// failures are reported through separate methods so they are never counted
// together.
type Recorder interface {
	CheckIn(outcome Outcome)
	Retry(operation string)
	StorageFailure(operation string)
}

type noopRecorder struct{}

func (noopRecorder) CheckIn(Outcome) {}

func (noopRecorder) Retry(string) {}

func (noopRecorder) StorageFailure(string) {}
