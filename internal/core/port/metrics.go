package port

import "time"

type Stage string

const (
	StageFetch     Stage = "fetch"
	StageComposite Stage = "composite"
	StageEncode    Stage = "encode"
)

type MetricsRecorder interface {
	// ObserveStage records how long one pipeline stage of a request took.
	ObserveStage(stage Stage, d time.Duration)
	// ObserveRequest records the response status of a finished request.
	ObserveRequest(format string, status int, d time.Duration)
	// InFlight adjusts the gauge of requests holding a limiter permit.
	InFlight(delta int)
}
