package tracker

type (
	// Action describes a user action that can be performed on the model, which
	// can be initiated by calling the Do() method. It is usually initiated by a
	// key press or a command. Action advertises whether it is enabled, so a UI
	// can e.g. gray out buttons when the underlying action is not allowed.
	// The underlying Doer can optionally implement the Enabler interface to
	// decide if the action is enabled or not; if it does not implement the
	// Enabler interface, the action is always allowed.
	Action struct {
		doer Doer
	}

	// Doer is an interface that defines a single Do() method, which is called
	// when an action is performed.
	Doer interface {
		Do()
	}

	// Enabler is an interface that defines a single Enabled() method, which
	// is used by the UI to check if an Action is enabled or not.
	Enabler interface {
		Enabled() bool
	}
)

// Action methods

func MakeAction(doer Doer) Action {
	return Action{doer: doer}
}

func (a Action) Do() {
	e, ok := a.doer.(Enabler)
	if ok && !e.Enabled() {
		return
	}
	if a.doer != nil {
		a.doer.Do()
	}
}

func (a Action) Enabled() bool {
	if a.doer == nil {
		return false // no doer, not allowed
	}
	e, ok := a.doer.(Enabler)
	if !ok {
		return true // not enabler, always allowed
	}
	return e.Enabled()
}

// togglePlay
type togglePlay Model

func (m *Model) TogglePlay() Action { return MakeAction((*togglePlay)(m)) }
func (m *togglePlay) Do() {
	m.playing = !m.playing
	(*Model)(m).sendToPlayer(RunMsg{Running: m.playing})
}

// rewind
type rewind Model

func (m *Model) Rewind() Action { return MakeAction((*rewind)(m)) }
func (m *rewind) Do()           { (*Model)(m).sendToPlayer(ResetMsg{Hard: true}) }

// startRecording
type startRecording Model

func (m *Model) StartRecording() Action { return MakeAction((*startRecording)(m)) }
func (m *startRecording) Enabled() bool { return !m.recording && m.broker != nil }
func (m *startRecording) Do() {
	// discard the notes played before recording started
drain:
	for {
		select {
		case <-m.broker.ToRecorder:
		default:
			break drain
		}
	}
	m.broker.CloseRecorder = make(chan struct{}, 1)
	m.broker.FinishedRecorder = make(chan struct{})
	m.recording = true
	go RunRecorder(m.broker, m.record.BPM, m.record.SampleRate)
	(*Model)(m).Alerts().AddNamed("Recording", "Recording MIDI notes", Info)
}

// stopRecording
type stopRecording Model

func (m *Model) StopRecording() Action { return MakeAction((*stopRecording)(m)) }
func (m *stopRecording) Enabled() bool { return m.recording }
func (m *stopRecording) Do() {
	m.recording = false
	TrySend(m.broker.CloseRecorder, struct{}{})
}
