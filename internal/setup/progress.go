package setup

import "time"

// Stage describes a setup phase.
type Stage string

const (
	// StageLoad reads the nuclear data libraries.
	StageLoad Stage = "load"
	// StageDraft builds material drafts from the problem file.
	StageDraft Stage = "draft"
	// StageRegister finalizes and registers one material.
	StageRegister Stage = "register"
	// StageCells resolves cell material references.
	StageCells Stage = "cells"
	// StageSeal freezes the registry.
	StageSeal Stage = "seal"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one item (a library path or a material label),
// or for the whole setup when Item is empty.
type Event struct {
	Item    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// FuncSink adapts a function to ProgressSink.
type FuncSink func(Event)

func (f FuncSink) OnEvent(evt Event) {
	if f != nil {
		f(evt)
	}
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
