// Package nodebrain is the top-level lifecycle API: it wires the
// reactive cell engine, term glossary, time-condition timer queue, rule
// scheduler, and skill registry into one process-owned Engine and
// exposes the narrow surface external collaborators (a textual parser, a
// CLI front end, a transport layer) call into, per spec.md §4.11.
package nodebrain

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/nodebrain/nodebrain/internal/cellgraph"
	"github.com/nodebrain/nodebrain/internal/config"
	"github.com/nodebrain/nodebrain/internal/diag"
	"github.com/nodebrain/nodebrain/internal/nblog"
	"github.com/nodebrain/nodebrain/internal/rule"
	"github.com/nodebrain/nodebrain/internal/skill"
	"github.com/nodebrain/nodebrain/internal/term"
	"github.com/nodebrain/nodebrain/internal/timecond"
	"github.com/nodebrain/nodebrain/internal/values"
)

// Engine is a running NodeBrain instance: one cell graph, one glossary,
// one timer queue, one rule scheduler, one skill registry, and the named
// cell registry the §4.11 Cell* calls index into.
type Engine struct {
	mu sync.Mutex

	cfg      *config.Config
	log      *slog.Logger
	reporter *diag.Reporter

	graph     *cellgraph.Engine
	interner  *values.Interner
	glossary  *term.Glossary
	timers    *timecond.Queue
	scheduler *rule.Scheduler
	skills    *skill.Registry

	cells map[string]cellgraph.Cell

	listeners map[string]*listener
	started   bool
}

// New assembles an Engine from cfg. A nil cfg uses config.Default().
func New(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	log := nblog.New(nblog.Options{Level: nblog.ParseLevel(cfg.Logging.Level), Format: nblog.Format(cfg.Logging.Format)})
	reporter := diag.NewReporter(cfg.Engine.Bail, func(m diag.Message) { log.Info(m.String()) })

	graph := cellgraph.NewEngine(reporter)
	e := &Engine{
		cfg:       cfg,
		log:       log,
		reporter:  reporter,
		graph:     graph,
		interner:  values.NewInterner(nil),
		glossary:  term.NewGlossary(graph),
		timers:    timecond.NewQueue(reporter),
		scheduler: rule.NewScheduler(graph, reporter),
		skills:    skill.NewRegistry(reporter),
		cells:     map[string]cellgraph.Cell{},
		listeners: map[string]*listener{},
	}
	return e
}

// Start marks the engine as running, which ListenerStart requires; it
// does not touch the timer queue. Cmd and the Cell* calls do not depend
// on it. NodeBrain does not spawn any goroutine of its own at Start;
// ListenerStart is the one entry point that does, and only when a caller
// registers a duplex connection with ListenerAdd.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("nodebrain: already started")
	}
	e.started = true
	e.log.Info("nodebrain: engine started")
	return nil
}

// Stop halts any running listener loops and marks the engine stopped.
// The reactive graph and glossary are left intact; Stop is for an
// orderly shutdown of the platform event loop, not a graph teardown.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	for id, l := range e.listeners {
		l.close()
		delete(e.listeners, id)
	}
	e.started = false
	e.log.Info("nodebrain: engine stopped")
	return nil
}

// Reporter returns the diagnostics reporter driving this engine's NBnnnX
// messages, for callers that want to register their own sink.
func (e *Engine) Reporter() *diag.Reporter { return e.reporter }

// Scheduler returns the rule/action scheduler, for callers assembling
// rules with pkg/planbuild.
func (e *Engine) Scheduler() *rule.Scheduler { return e.scheduler }

// Glossary returns the term glossary.
func (e *Engine) Glossary() *term.Glossary { return e.glossary }

// Skills returns the node/skill registry.
func (e *Engine) Skills() *skill.Registry { return e.skills }

// Graph returns the underlying cell graph engine, for code assembling
// expression cells directly through internal/nbexpr constructors.
func (e *Engine) Graph() *cellgraph.Engine { return e.graph }

// Interner returns the string/real value interner backing this engine's
// cell constants.
func (e *Engine) Interner() *values.Interner { return e.interner }

// Timers returns the time-condition timer queue.
func (e *Engine) Timers() *timecond.Queue { return e.timers }

// Source loads an engine configuration document from path (env overrides
// via godotenv, then YAML, validated) and applies it: the
// bail-on-first-error policy takes effect immediately, matching the
// engine's own "source" command for reloading options without a
// restart. The logger built by New is not rebuilt, so it keeps its level
// and format. It does not touch cells, terms, or rules already declared —
// NodeBrain's textual rule parser is an external collaborator (spec.md
// §1), so sourcing a cell/rule definition file is outside this API.
func (e *Engine) Source(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.reporter.SetBail(cfg.Engine.Bail)
	return nil
}

// Cmd dispatches one line of the engine's interactive command surface
// (spec.md §6). It recognizes a small fixed set of verbs; anything else
// is an external collaborator's concern (a richer REPL, a parsed rule
// definition) and is rejected with a diag.ParseError.
func (e *Engine) Cmd(ctx context.Context, line string) (string, error) {
	switch {
	case line == "show terms":
		return fmt.Sprintf("%v", e.glossary.List()), nil
	case line == "show cells":
		e.mu.Lock()
		names := make([]string, 0, len(e.cells))
		for n := range e.cells {
			names = append(names, n)
		}
		e.mu.Unlock()
		return fmt.Sprintf("%v", names), nil
	case line == "show skills":
		return fmt.Sprintf("%v", e.skills.List()), nil
	case strings.HasPrefix(line, "alert "):
		assigns, err := parseAssignments(strings.TrimPrefix(line, "alert "), e.interner)
		if err != nil {
			return "", &diag.ParseError{Msg: err.Error()}
		}
		if err := e.Alert(ctx, assigns); err != nil {
			return "", err
		}
		return "", nil
	default:
		return "", &diag.ParseError{Msg: fmt.Sprintf("unrecognized command %q", line)}
	}
}

// parseAssignments parses the "<term>=<value>[,...]" tail of the alert
// command form (spec.md §6): each value is either a
// double-quoted string literal or a real number.
func parseAssignments(tail string, in *values.Interner) (map[string]values.Value, error) {
	assigns := map[string]values.Value{}
	for _, part := range strings.Split(tail, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return nil, fmt.Errorf("nodebrain: malformed assignment %q", part)
		}
		path := strings.TrimSpace(part[:eq])
		raw := strings.TrimSpace(part[eq+1:])
		if path == "" {
			return nil, fmt.Errorf("nodebrain: malformed assignment %q", part)
		}
		if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
			assigns[path] = in.String(raw[1 : len(raw)-1])
			continue
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("nodebrain: value %q for %q is neither a quoted string nor a number", raw, path)
		}
		assigns[path] = in.Real(n)
	}
	return assigns, nil
}
