package pattern

import (
	"fmt"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
)

const (
	minPosition = 0
	maxPosition = 100
)

// script collects the points of one run.
type script struct {
	name      string
	maxPoints int
	logger    Logger

	points actuation.Waveform
	// err is the domain error that aborted the run, if any.
	err error
}

func (s *script) register(L *lua.LState) {
	L.SetGlobal("point", L.NewFunction(s.luaPoint))
	L.SetGlobal("ramp", L.NewFunction(s.luaRamp))
	L.SetGlobal("sine", L.NewFunction(s.luaSine))
	L.SetGlobal("print", L.NewFunction(s.luaPrint))
}

// add appends a point or aborts the script.
func (s *script) add(L *lua.LState, ms int, pos float64) {
	if ms < 0 {
		L.RaiseError("time must not be negative: %dms", ms)
		return
	}
	if n := len(s.points); n > 0 && ms < s.points[n-1].AtMS {
		s.fail(L, fmt.Errorf("%w: %s: %dms after %dms", ErrOutOfOrder, s.name, ms, s.points[n-1].AtMS))
		return
	}
	if len(s.points) >= s.maxPoints {
		s.fail(L, fmt.Errorf("%w: %s: limit %d", ErrTooManyPoints, s.name, s.maxPoints))
		return
	}
	s.points = append(s.points, actuation.Point{AtMS: ms, Position: clampPosition(pos)})
}

func (s *script) fail(L *lua.LState, err error) {
	s.err = err
	L.RaiseError("%s", err.Error())
}

// point(ms, pos)
func (s *script) luaPoint(L *lua.LState) int {
	s.add(L, L.CheckInt(1), float64(L.CheckNumber(2)))
	return 0
}

// ramp(from_ms, to_ms, from_pos, to_pos, step_ms)
func (s *script) luaRamp(L *lua.LState) int {
	from, to := L.CheckInt(1), L.CheckInt(2)
	fromPos, toPos := float64(L.CheckNumber(3)), float64(L.CheckNumber(4))
	step := L.OptInt(5, 100)
	if step <= 0 {
		L.ArgError(5, "step must be positive")
		return 0
	}
	if to < from {
		L.ArgError(2, "end before start")
		return 0
	}

	span := float64(to - from)
	for t := from; t < to; t += step {
		s.add(L, t, fromPos+(toPos-fromPos)*float64(t-from)/span)
	}
	s.add(L, to, toPos)
	return 0
}

// sine(from_ms, to_ms, period_ms, step_ms, low, high)
func (s *script) luaSine(L *lua.LState) int {
	from, to := L.CheckInt(1), L.CheckInt(2)
	period, step := L.CheckInt(3), L.OptInt(4, 50)
	low := float64(L.OptNumber(5, minPosition))
	high := float64(L.OptNumber(6, maxPosition))
	if period <= 0 {
		L.ArgError(3, "period must be positive")
		return 0
	}
	if step <= 0 {
		L.ArgError(4, "step must be positive")
		return 0
	}

	mid, amp := (low+high)/2, (high-low)/2
	for t := from; t <= to; t += step {
		phase := 2 * math.Pi * float64(t-from) / float64(period)
		// Start at the bottom of the wave.
		s.add(L, t, mid-amp*math.Cos(phase))
	}
	return 0
}

func (s *script) luaPrint(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	s.logger.Debug("pattern script output", "pattern", s.name, "msg", strings.Join(parts, " "))
	return 0
}

func clampPosition(pos float64) int {
	if math.IsNaN(pos) {
		return minPosition
	}
	p := int(math.Round(pos))
	return max(minPosition, min(maxPosition, p))
}
