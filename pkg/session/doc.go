/*
Package session implements thread management and checkpoint orchestration.

It serializes access to a thread across goroutines with a reference-counted
per-thread mutex and, when configured, across replicas with a distributed
lock. New threads are stamped with the user-context snapshot of their owner.
*/
package session
