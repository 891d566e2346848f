package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateStage is returned when two stages share a name.
	ErrDuplicateStage = errors.New("pipeline: duplicate stage")

	// ErrInvalidStage is returned for a stage with an empty name or no producer.
	ErrInvalidStage = errors.New("pipeline: invalid stage")

	// ErrUnknownDependency is returned when a stage depends on an undeclared stage.
	ErrUnknownDependency = errors.New("pipeline: unknown dependency")

	// ErrUnknownStage is returned when a stage name is not in the graph.
	ErrUnknownStage = errors.New("pipeline: unknown stage")

	// ErrStageTimeout marks a producer that did not return within the stage timeout.
	ErrStageTimeout = errors.New("pipeline: stage timed out")

	// ErrEmptyBrief is returned by Run for a blank brief.
	ErrEmptyBrief = errors.New("pipeline: brief is empty")
)

// CyclicDependency is returned by NewGraph when the dependency graph contains
// a cycle. Cycle lists the stages along the cycle, first and last equal.
type CyclicDependency struct {
	Cycle []string
}

func (e *CyclicDependency) Error() string {
	return "pipeline: cyclic dependency: " + strings.Join(e.Cycle, " → ")
}

// MissingDependencyOutput is returned when a stage is invoked without the
// completed output of one of its declared dependencies.
type MissingDependencyOutput struct {
	Stage      string
	Dependency string
}

func (e *MissingDependencyOutput) Error() string {
	return fmt.Sprintf("pipeline: stage %q: missing output of dependency %q", e.Stage, e.Dependency)
}

// GenerationFailed tags a producer failure with its stage name.
type GenerationFailed struct {
	Stage string
	Err   error
}

func (e *GenerationFailed) Error() string {
	return fmt.Sprintf("pipeline: stage %q failed: %v", e.Stage, e.Err)
}

func (e *GenerationFailed) Unwrap() error { return e.Err }

// Blocked reports a stage that never started because an ancestor failed.
type Blocked struct {
	Stage            string
	FailedDependency string
}

func (e *Blocked) Error() string {
	return fmt.Sprintf("pipeline: stage %q blocked by failed stage %q", e.Stage, e.FailedDependency)
}

// failed wraps err as a GenerationFailed for stage unless it already is one.
func failed(stage string, err error) error {
	var gf *GenerationFailed
	if errors.As(err, &gf) && gf.Stage == stage {
		return err
	}
	return &GenerationFailed{Stage: stage, Err: err}
}
