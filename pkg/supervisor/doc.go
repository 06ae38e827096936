// Package supervisor keeps one external process (frpc or frps) alive.
//
// The Supervisor launches "<binary> -c <config>" and then waits on three
// events: the child exiting, a restart request, or cancellation of its
// context. A crash or launch failure is followed by a backoff delay and a
// relaunch, with no retry cap. A restart request terminates the child
// gracefully (SIGTERM, then SIGKILL after the termination timeout), waits
// the cool-down and relaunches. Cancelling the context terminates the child
// the same way and returns without relaunching.
//
// Restart requests coalesce: any number of calls to Restart while one is
// pending result in a single restart. Requests that arrive before the next
// launch are satisfied by that launch, since it reads the latest config file.
//
// Basic usage:
//
//	sup := supervisor.New(supervisor.FromConfig(cfg), supervisor.ExecLauncher{},
//	    supervisor.WithLogger(logger),
//	)
//	go sup.Run(ctx)
//	...
//	sup.Restart() // config file changed
package supervisor
