// Package pattern generates waveforms from Lua scripts.
//
// A pattern script is a <name>.lua file in the configured patterns directory.
// Running it produces an actuation.Waveform; the script only describes the
// shape, playback is the scheduler's job.
//
// Script API:
//
//	point(ms, pos)                                  -- one point, pos 0-100
//	ramp(from_ms, to_ms, from_pos, to_pos, step_ms) -- linear ramp
//	sine(from_ms, to_ms, period_ms, step_ms, low, high)
//	print(...)                                      -- debug log
//
// Points must be emitted in time order. Scripts run in a fresh state with
// only the base, table, string and math libraries; file access is removed.
// Execution is bounded by a timeout and by a maximum number of points.
//
// Example script:
//
//	for i = 0, 9 do
//	  point(i * 200, 100)
//	  point(i * 200 + 100, 0)
//	end
package pattern
