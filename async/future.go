package async

// Future is a resumable asynchronous computation driven by an Executor.
//
// Poll runs one step of the computation. It either completes, returning the
// produced value and true, or suspends, returning false. A future that
// suspends must first register the Context's Waker against whatever event it
// is waiting for; the executor will not poll it again until that Waker fires.
//
// Poll is only ever called from the executor's run loop, never concurrently
// with itself.
type Future[T any] interface {
	Poll(cx *Context) (T, bool)
}

// FutureFunc adapts a plain step function to the Future interface.
type FutureFunc[T any] func(cx *Context) (T, bool)

func (f FutureFunc[T]) Poll(cx *Context) (T, bool) { return f(cx) }

// Ready returns a future that completes immediately with value.
func Ready[T any](value T) Future[T] {
	return FutureFunc[T](func(*Context) (T, bool) { return value, true })
}

// Context is handed to every poll step. It carries the capability to
// reschedule the task being polled.
type Context struct {
	waker   *Waker
	reactor *reactor
}

// Waker returns the waker that re-queues the task currently being polled.
// It may be retained past the poll step and invoked from any goroutine.
func (cx *Context) Waker() *Waker { return cx.waker }
