package composite

import (
	"github.com/squinkylabs/seq4"
	"github.com/squinkylabs/seq4/clock"
)

type (
	ParamID  int
	InputID  int
	OutputID int
	LightID  int

	// PortAccess is how the sequencer sees its host: the jacks, knobs and
	// lights of the module. Input and output voltages are polyphonic with up
	// to seq4.MaxVoices channels. InputChannels returns 0 for an unconnected
	// input. All the methods are called from the audio thread and must not
	// block.
	PortAccess interface {
		Input(id InputID, ch int) float32
		InputChannels(id InputID) int
		Param(id ParamID) float32
		SetOutput(id OutputID, ch int, v float32)
		SetOutputChannels(id OutputID, n int)
		SetLight(id LightID, v float32)
	}

	// Ports is a PortAccess backed by plain arrays, for driving the sequencer
	// without a host: offline rendering, the command line player and tests.
	Ports struct {
		Params      [NumParams]float32
		Inputs      [NumInputs][seq4.MaxVoices]float32
		InputCount  [NumInputs]int
		Outputs     [NumOutputs][seq4.MaxVoices]float32
		OutputCount [NumOutputs]int
		Lights      [NumLights]float32
	}
)

const (
	ParamClockRate ParamID = iota
	ParamClockSource
	ParamTempo
	ParamRunning
	ParamNumVoices0
	ParamNumVoices1
	ParamNumVoices2
	ParamNumVoices3
	ParamCVMode0
	ParamCVMode1
	ParamCVMode2
	ParamCVMode3
	ParamSelectOctave
	ParamTriggerImmediate
	ParamAssignMode
	NumParams
)

const (
	InputClock InputID = iota
	InputReset
	InputRun
	InputMod0
	InputMod1
	InputMod2
	InputMod3
	InputSelectCV
	InputSelectGate
	NumInputs
)

const (
	OutputCV0 OutputID = iota
	OutputCV1
	OutputCV2
	OutputCV3
	OutputGate0
	OutputGate1
	OutputGate2
	OutputGate3
	OutputEOC
	NumOutputs
)

const (
	LightRun LightID = iota
	NumLights
)

// DefaultParams returns the knob positions of a freshly added module: stopped,
// internal clock at x4 and 120 BPM, one voice per track.
func DefaultParams() [NumParams]float32 {
	var p [NumParams]float32
	p[ParamClockRate] = float32(clock.DefaultExternalRate)
	p[ParamClockSource] = float32(clock.Internal)
	p[ParamTempo] = clock.DefaultTempo
	for i := 0; i < seq4.NumTracks; i++ {
		p[ParamNumVoices0+ParamID(i)] = 1
	}
	p[ParamSelectOctave] = 4
	return p
}

func NewPorts() *Ports {
	return &Ports{Params: DefaultParams()}
}

func (p *Ports) Input(id InputID, ch int) float32 {
	if id < 0 || id >= NumInputs || ch < 0 || ch >= seq4.MaxVoices {
		return 0
	}
	return p.Inputs[id][ch]
}

func (p *Ports) InputChannels(id InputID) int {
	if id < 0 || id >= NumInputs {
		return 0
	}
	return p.InputCount[id]
}

func (p *Ports) Param(id ParamID) float32 {
	if id < 0 || id >= NumParams {
		return 0
	}
	return p.Params[id]
}

func (p *Ports) SetOutput(id OutputID, ch int, v float32) {
	if id < 0 || id >= NumOutputs || ch < 0 || ch >= seq4.MaxVoices {
		return
	}
	p.Outputs[id][ch] = v
}

func (p *Ports) SetOutputChannels(id OutputID, n int) {
	if id < 0 || id >= NumOutputs {
		return
	}
	p.OutputCount[id] = max(min(n, seq4.MaxVoices), 0)
}

func (p *Ports) SetLight(id LightID, v float32) {
	if id < 0 || id >= NumLights {
		return
	}
	p.Lights[id] = v
}

// SetInput sets an input voltage and connects the input, widening it to at
// least ch+1 channels.
func (p *Ports) SetInput(id InputID, ch int, v float32) {
	if id < 0 || id >= NumInputs || ch < 0 || ch >= seq4.MaxVoices {
		return
	}
	p.Inputs[id][ch] = v
	p.InputCount[id] = max(p.InputCount[id], ch+1)
}

// Disconnect unplugs an input and zeroes its voltages.
func (p *Ports) Disconnect(id InputID) {
	if id < 0 || id >= NumInputs {
		return
	}
	p.Inputs[id] = [seq4.MaxVoices]float32{}
	p.InputCount[id] = 0
}

// Output returns the voltage of an output channel, or 0 if the channel is not
// active.
func (p *Ports) Output(id OutputID, ch int) float32 {
	if id < 0 || id >= NumOutputs || ch < 0 || ch >= p.OutputCount[id] {
		return 0
	}
	return p.Outputs[id][ch]
}

func (p *Ports) OutputChannels(id OutputID) int {
	if id < 0 || id >= NumOutputs {
		return 0
	}
	return p.OutputCount[id]
}
