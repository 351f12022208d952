package main

import "github.com/HatiCode/profilesnap/pkg/adapters"

// Failure names a point in a run where something can go wrong.
type Failure string

const (
	FailureTransport Failure = Failure(adapters.KindTransport)
	FailureStatus    Failure = Failure(adapters.KindStatus)
	FailureDecode    Failure = Failure(adapters.KindDecode)
	FailureUpstream  Failure = Failure(adapters.KindUpstream)
	FailureWrite     Failure = "write"
	FailureCommit    Failure = "commit"
	FailurePublish   Failure = "publish"
)

// Action is what a run does after a failure.
type Action string

const (
	// ActionSkip drops the current category; the next one still runs.
	ActionSkip Action = "skip"
	// ActionContinue keeps the written snapshot and carries on.
	ActionContinue Action = "continue"
	// ActionEndRun stops the run. Nothing is retried.
	ActionEndRun Action = "end_run"
)

// failurePolicy is the complete error policy of a run and Updater.Tick acts
// on it: skip and continue move on to the next category, end_run stops the
// run before publishing. No step is ever retried. With the table below no
// failure aborts the remaining categories.
var failurePolicy = map[Failure]Action{
	FailureTransport: ActionSkip,
	FailureStatus:    ActionSkip,
	FailureDecode:    ActionSkip,
	FailureUpstream:  ActionSkip,
	FailureWrite:     ActionSkip,
	FailureCommit:    ActionContinue,
	FailurePublish:   ActionEndRun,
}

// actionFor returns the policy for f. Unknown failures are skipped.
func actionFor(f Failure) Action {
	if a, ok := failurePolicy[f]; ok {
		return a
	}
	return ActionSkip
}

// fetchFailure maps a fetch error to its policy key.
func fetchFailure(err error) Failure {
	if k := adapters.KindOf(err); k != "" {
		return Failure(k)
	}
	return FailureTransport
}
