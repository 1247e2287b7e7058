package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
)

// Run starts f in a goroutine whose panic terminates the process.
func Run(f func()) {
	go func() {
		defer Recover()
		f()
	}()
}

func Recover() {
	if r := recover(); r != nil {
		HandlePanic(r)
	}
}

func HandlePanic(panic any) {
	defer os.Exit(1)
	log.Printf("Panic: %v\n\n%s\n\n", panic, stack())
}

func stack() string {
	buf := make([]byte, 100000)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

func PanicF(format string, a ...any) {
	panic(fmt.Sprintf(format, a...))
}

// PanicError is a recovered panic from a per-map job.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Guard wraps f so that a panic is returned as a PanicError instead of
// terminating the process.
func Guard(f func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: stack()}
			}
		}()
		return f()
	}
}

// watchSignals calls cancel on the first interrupt.
func watchSignals(cancel func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	log.Println("interrupted, stopping")
	cancel()
}
