package lipsync

import (
	"math"
	"testing"
)

func TestEnvelope_LevelStaysBounded(t *testing.T) {
	cfg := DefaultConfig()
	env := NewEnvelope(cfg)

	inputs := []float64{0, 0.01, 0.5, 5.0, 100.0, 0.3, 0, 0, 2.0, 0.0001, 1.0, 0}
	for i := 0; i < 200; i++ {
		level := env.Update(inputs[i%len(inputs)])
		if level < 0 || level > cfg.MaxOpen {
			t.Fatalf("tick %d: level %f outside [0, %f]", i, level, cfg.MaxOpen)
		}
	}
}

func TestEnvelope_AttackFasterThanRelease(t *testing.T) {
	cfg := DefaultConfig()
	env := NewEnvelope(cfg)

	// Sustained loud input: count ticks to get within 1% of the target.
	target := cfg.MaxOpen
	attackTicks := 0
	for env.Update(1.0) < target*0.99 {
		attackTicks++
		if attackTicks > 1000 {
			t.Fatal("envelope never reached target")
		}
	}

	// Drop to silence: count ticks until fully closed.
	releaseTicks := 0
	for env.Update(0) > 0 {
		releaseTicks++
		if releaseTicks > 1000 {
			t.Fatal("envelope never decayed to zero")
		}
	}

	if attackTicks >= releaseTicks {
		t.Errorf("expected attack (%d ticks) faster than release (%d ticks)", attackTicks, releaseTicks)
	}
}

func TestEnvelope_SpeakingThresholdGate(t *testing.T) {
	cfg := DefaultConfig()
	env := NewEnvelope(cfg)

	// Loudness so low the filtered level never clears the gate.
	level := env.Update(0.001)
	if level != 0 {
		t.Errorf("expected gate to force level to exactly 0, got %f", level)
	}
}

func TestEnvelope_GateSnapsDecayToZero(t *testing.T) {
	cfg := DefaultConfig()
	env := NewEnvelope(cfg)

	for i := 0; i < 20; i++ {
		env.Update(1.0)
	}
	if env.Level() == 0 {
		t.Fatal("expected open mouth after sustained input")
	}

	for i := 0; i < 500; i++ {
		if env.Update(0) == 0 {
			return
		}
	}
	t.Error("level decayed asymptotically instead of snapping to 0 below the gate")
}

func TestEnvelope_GainAndCap(t *testing.T) {
	cfg := DefaultConfig()
	env := NewEnvelope(cfg)

	// Even huge loudness caps at MaxOpen.
	var level float64
	for i := 0; i < 100; i++ {
		level = env.Update(1000)
	}
	if math.Abs(level-cfg.MaxOpen) > 1e-9 {
		t.Errorf("expected level to converge on MaxOpen %f, got %f", cfg.MaxOpen, level)
	}
}
