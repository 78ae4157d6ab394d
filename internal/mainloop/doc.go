// Package mainloop implements the cooperative, single-goroutine event loop that
// owns all editor state.
//
// Tabs, windows and the plugin engine are only ever touched from callbacks run
// by a Loop. Work that blocks (file I/O, printing to disk) runs on its own
// goroutine and hands results back with Post, so completions re-enter editor
// code on the loop goroutine in the order they were posted.
//
// Timeouts and idle callbacks are sources identified by a SourceID, mirroring
// the classic main-context model:
//
//	id := loop.AddTimeout(10*time.Minute, func() bool {
//		save()
//		return true // keep the source installed
//	})
//	loop.Remove(id)
//
// A Loop can be driven by Run, or stepped manually with Iterate. Tests pair
// Iterate with a FakeClock to fire timers deterministically.
package mainloop
