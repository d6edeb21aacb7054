// Package alarm delivers exact, wake-the-user alarms on platforms where OS
// notification timing is unreliable.
//
// A single goroutine owns a min-heap of pending alarms keyed by alert id and
// sleeps until the earliest trigger, capped at one minute so wall-clock jumps
// and system sleep are noticed. A fired alarm starts a ringing session that
// loops its sound until it is stopped or snoozed. Pending alarms live only in
// memory; callers re-arm them on startup.
package alarm
