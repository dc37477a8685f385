// Package logging provides component loggers that share one output.
//
// All records pass through a single broker goroutine, which keeps progress
// lines and log records from interleaving. Call Shutdown before the program
// exits to flush pending records.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Level int

const (
	FATAL Level = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

var levelNames = map[Level]string{
	FATAL:   "fatal",
	ERROR:   "error",
	WARNING: "warn",
	INFO:    "",
	DEBUG:   "debug",
}

type Record struct {
	Level     Level
	Component string
	Message   string
}

const (
	CLEARLINE = "\x1b[2K"
)

func Progress(msg string) {
	defaultLogBroker.Progress <- msg
}

func SetQuiet(quiet bool) {
	defaultLogBroker.quiet.Store(quiet)
}

type Logger struct {
	Component string
}

func NewLogger(component string) *Logger {
	return &Logger{component}
}

func (l *Logger) Print(args ...interface{}) {
	defaultLogBroker.Records <- Record{INFO, l.Component, fmt.Sprint(args...)}
}

func (l *Logger) Printf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{INFO, l.Component, fmt.Sprintf(msg, args...)}
}

func (l *Logger) Debugf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{DEBUG, l.Component, fmt.Sprintf(msg, args...)}
}

func (l *Logger) Warn(args ...interface{}) {
	defaultLogBroker.Records <- Record{WARNING, l.Component, fmt.Sprint(args...)}
}

func (l *Logger) Warnf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{WARNING, l.Component, fmt.Sprintf(msg, args...)}
}

func (l *Logger) Errorf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{ERROR, l.Component, fmt.Sprintf(msg, args...)}
}

// Fatal logs the message, flushes all records and exits with status 1.
func (l *Logger) Fatal(args ...interface{}) {
	defaultLogBroker.Records <- Record{FATAL, l.Component, fmt.Sprint(args...)}
	Shutdown()
	os.Exit(1)
}

func (l *Logger) Fatalf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{FATAL, l.Component, fmt.Sprintf(msg, args...)}
	Shutdown()
	os.Exit(1)
}

// StartStep logs the start of a step. Pass the result to StopStep to log
// the duration of the step.
func (l *Logger) StartStep(msg string) string {
	defaultLogBroker.StepStart <- Step{l.Component, msg}
	return msg
}

func (l *Logger) StopStep(msg string) {
	defaultLogBroker.StepStop <- Step{l.Component, msg}
}

type Step struct {
	Component string
	Name      string
}

type LogBroker struct {
	Records      chan Record
	Progress     chan string
	StepStart    chan Step
	StepStop     chan Step
	out          io.Writer
	quiet        atomic.Bool
	quit         chan bool
	wg           *sync.WaitGroup
	newline      bool
	lastProgress string
}

func (l *LogBroker) loop() {
	defer l.wg.Done()
	steps := make(map[Step]time.Time)
For:
	for {
		select {
		case record := <-l.Records:
			l.printRecord(record)
		case progress := <-l.Progress:
			if !l.quiet.Load() {
				l.printProgress(progress)
			}
		case step := <-l.StepStart:
			steps[step] = time.Now()
			l.printRecord(Record{INFO, step.Component, "[step] Starting: " + step.Name})
		case step := <-l.StepStop:
			startTime := steps[step]
			delete(steps, step)
			duration := time.Since(startTime)
			l.printRecord(Record{INFO, step.Component, "[step] Finished: " + step.Name + " in " + duration.String()})
		case <-l.quit:
			break For
		}
	}
Flush:
	// after quit, print all records from chan
	for {
		select {
		case record := <-l.Records:
			l.printRecord(record)
		default:
			break Flush
		}
	}
	if !l.newline {
		fmt.Fprintln(l.out)
	}
}

func (l *LogBroker) printPrefix() {
	fmt.Fprint(l.out, "[", time.Now().Format(time.Stamp), "] ")
}

func (l *LogBroker) printRecord(record Record) {
	if !l.newline {
		fmt.Fprint(l.out, CLEARLINE)
	}
	l.printPrefix()
	if name := levelNames[record.Level]; name != "" {
		fmt.Fprint(l.out, "[", name, "] ")
	}
	if record.Component != "" {
		fmt.Fprint(l.out, "[", record.Component, "] ")
	}
	fmt.Fprintln(l.out, record.Message)
	l.newline = true
	if l.lastProgress != "" && !l.quiet.Load() {
		l.printProgress(l.lastProgress)
	}
}

func (l *LogBroker) printProgress(progress string) {
	l.printPrefix()
	fmt.Fprint(l.out, progress, "\r")
	l.lastProgress = progress
	l.newline = false
}

var shutdownOnce sync.Once

// Shutdown prints all pending records and stops the broker. Loggers must
// not be used after Shutdown.
func Shutdown() {
	shutdownOnce.Do(func() {
		defaultLogBroker.quit <- true
		defaultLogBroker.wg.Wait()
	})
}

var defaultLogBroker *LogBroker

func newLogBroker(out io.Writer) *LogBroker {
	l := &LogBroker{
		Records:   make(chan Record, 8),
		Progress:  make(chan string),
		StepStart: make(chan Step),
		StepStop:  make(chan Step),
		out:       out,
		quit:      make(chan bool),
		wg:        &sync.WaitGroup{},
		newline:   true,
	}
	l.wg.Add(1)
	go l.loop()
	return l
}

func init() {
	defaultLogBroker = newLogBroker(os.Stdout)
}
