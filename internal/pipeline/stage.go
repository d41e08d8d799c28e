package pipeline

import "fmt"

// Stage names the phases of one pipeline request. Transitions are strictly
// sequential; no stage starts before its predecessor's output is fully
// materialized.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageGenerating   Stage = "generating"
	StageMerging      Stage = "merging"
	StageClassifying  Stage = "classifying"
	StageCompositing  Stage = "compositing"
	StageMuxing       Stage = "muxing"
	StageSubtitleBurn Stage = "subtitle_burn"
	StageDone         Stage = "done"
)

// StageError attributes a pipeline failure to the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
