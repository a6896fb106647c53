package tracker

type (
	Bool struct {
		BoolData
	}

	BoolData interface {
		Value() bool
		Enabled() bool
		setValue(bool)
	}

	IsRecording Model
	Playing     Model
)

func (v Bool) Toggle() {
	v.Set(!v.Value())
}

func (v Bool) Set(value bool) {
	if v.Enabled() && v.Value() != value {
		v.setValue(value)
	}
}

// Model methods

func (m *Model) IsRecording() *IsRecording { return (*IsRecording)(m) }
func (m *Model) Playing() *Playing         { return (*Playing)(m) }

// IsRecording methods

func (m *IsRecording) Bool() Bool  { return Bool{m} }
func (m *IsRecording) Value() bool { return m.recording }
func (m *IsRecording) setValue(val bool) {
	if val {
		(*Model)(m).StartRecording().Do()
	} else {
		(*Model)(m).StopRecording().Do()
	}
}
func (m *IsRecording) Enabled() bool { return m.recording || m.broker != nil }

// Playing methods

func (m *Playing) Bool() Bool        { return Bool{m} }
func (m *Playing) Value() bool       { return m.playing }
func (m *Playing) setValue(val bool) { (*Model)(m).TogglePlay().Do() }
func (m *Playing) Enabled() bool     { return true }
