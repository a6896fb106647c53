package dsp_test

import (
	"testing"

	"github.com/squinkylabs/seq4/dsp"
)

func TestSchmittTrigger(t *testing.T) {
	var s dsp.SchmittTrigger
	input := []float32{0, 1.5, 2.5, 10, 1.5, 3, 0.5, 2}
	want := []bool{false, false, true, false, false, false, false, true}
	for i, v := range input {
		if got := s.Process(v); got != want[i] {
			t.Errorf("sample %d (%gV): rising = %v, want %v", i, v, got, want[i])
		}
	}
}

func TestDivider(t *testing.T) {
	var d dsp.Divider
	d.SetDivisor(4)
	fired := 0
	for i := 0; i < 16; i++ {
		if d.Step() {
			if i%4 != 0 {
				t.Errorf("divider fired on step %d", i)
			}
			fired++
		}
	}
	if fired != 4 {
		t.Fatalf("divider fired %d times in 16 steps, want 4", fired)
	}
}

func TestPulseGenerator(t *testing.T) {
	var p dsp.PulseGenerator
	p.Trigger(3)
	p.Trigger(1) // must not shorten
	high := 0
	for i := 0; i < 10; i++ {
		if p.Process() {
			high++
		}
	}
	if high != 3 {
		t.Fatalf("pulse was high for %d samples, want 3", high)
	}
}
