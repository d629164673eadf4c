package input

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

// debugLine matches one message of a WAYLAND_DEBUG=1 log, e.g.
//
//	[1234567.890] {Default Queue}  -> xdg_surface@28.get_popup(new id xdg_popup@30, xdg_surface@25, xdg_positioner@29)
//	[1234567.901] {Default Queue} xdg_popup@30.configure(10, 20, 200, 300)
var debugLine = regexp.MustCompile(`^\[\s*[\d.]+\]\s*(?:\{[^}]*\}\s*)?(?:->\s*)?([A-Za-z0-9_]+@\d+)\.([A-Za-z0-9_]+)\((.*)\)\s*$`)

// LooksLikeWaylandDebug reports whether data contains at least one
// WAYLAND_DEBUG message line.
func LooksLikeWaylandDebug(data []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if debugLine.Match(bytes.TrimSpace(scanner.Bytes())) {
			return true
		}
	}
	return false
}

// ParseWaylandDebug converts a WAYLAND_DEBUG=1 client log into a trace.
// Only messages that affect popup bookkeeping are kept; surfaces are named
// after their wl_surface object.
func ParseWaylandDebug(data []byte) (*trace.Trace, error) {
	p := newDebugParser()

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := debugLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		p.message(m[1], m[2], splitArgs(m[3]))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return p.tr, nil
}

type debugParser struct {
	tr *trace.Trace

	// names maps a live wl_surface object to its trace surface name.
	names map[string]string
	// generation counts reuses of a wl_surface object id.
	generation map[string]int
	// used holds every trace surface name handed to the runner.
	used map[string]bool
	// created holds trace surface names that currently carry a role.
	created map[string]bool
	// owners maps xdg_surface, xdg_popup, xdg_toplevel and layer surface
	// objects to the wl_surface they were created for.
	owners map[string]string
	seats  map[string]bool
}

func newDebugParser() *debugParser {
	return &debugParser{
		tr:         &trace.Trace{},
		names:      make(map[string]string),
		generation: make(map[string]int),
		used:       make(map[string]bool),
		created:    make(map[string]bool),
		owners:     make(map[string]string),
		seats:      make(map[string]bool),
	}
}

func (p *debugParser) emit(ev trace.Event) {
	p.tr.Events = append(p.tr.Events, ev)
}

// surfaceName returns the trace name of a wl_surface object.
func (p *debugParser) surfaceName(obj string) string {
	if name, ok := p.names[obj]; ok {
		return name
	}
	p.names[obj] = obj
	return obj
}

// claim gives the wl_surface behind a role object a trace name that was
// never used before, so that object ids recycled by the client stay distinct.
func (p *debugParser) claim(roleObj string) (string, bool) {
	surf, ok := p.owners[roleObj]
	if !ok {
		return "", false
	}
	name := p.surfaceName(surf)
	if p.used[name] {
		p.generation[surf]++
		name = fmt.Sprintf("%s#%d", surf, p.generation[surf])
		p.names[surf] = name
	}
	p.used[name] = true
	p.created[name] = true
	return name, true
}

// ownerName resolves a role object to the trace name of its wl_surface.
func (p *debugParser) ownerName(obj string) (string, bool) {
	surf, ok := p.owners[obj]
	if !ok {
		return "", false
	}
	return p.surfaceName(surf), true
}

func (p *debugParser) message(obj, msg string, args []string) {
	iface, _, _ := strings.Cut(obj, "@")

	switch iface + "." + msg {
	case "xdg_wm_base.get_xdg_surface":
		if xs, ok := newID(args, 0); ok && len(args) > 1 {
			p.owners[xs] = args[1]
		}

	case "xdg_surface.get_toplevel":
		tl, ok := newID(args, 0)
		surf, known := p.owners[obj]
		if ok && known {
			p.owners[tl] = surf
			name, _ := p.claim(tl)
			p.emit(trace.Event{Op: trace.OpToplevel, Surface: name})
		}

	case "zwlr_layer_shell_v1.get_layer_surface":
		if ls, ok := newID(args, 0); ok && len(args) > 1 {
			p.owners[ls] = args[1]
			name, _ := p.claim(ls)
			p.emit(trace.Event{Op: trace.OpToplevel, Surface: name})
		}

	case "xdg_surface.get_popup":
		pop, ok := newID(args, 0)
		if !ok {
			return
		}
		surf, ok := p.owners[obj]
		if !ok {
			return
		}
		p.owners[pop] = surf
		var parent string
		if len(args) > 1 {
			if name, ok := p.ownerName(args[1]); ok && p.created[name] {
				parent = name
			}
		}
		name, ok := p.claim(pop)
		if !ok {
			return
		}
		p.emit(trace.Event{Op: trace.OpPopup, Surface: name, Parent: parent})

	case "zwlr_layer_surface_v1.get_popup":
		if len(args) == 0 {
			return
		}
		pop, okPop := p.ownerName(args[0])
		parent, okParent := p.ownerName(obj)
		if okPop && okParent && p.created[pop] && p.created[parent] {
			p.emit(trace.Event{Op: trace.OpSetParent, Surface: pop, Parent: parent})
		}

	case "xdg_popup.configure":
		name, ok := p.ownerName(obj)
		if !ok || len(args) < 2 {
			return
		}
		x, errX := strconv.Atoi(args[0])
		y, errY := strconv.Atoi(args[1])
		if errX == nil && errY == nil {
			p.emit(trace.Event{Op: trace.OpMove, Surface: name, X: x, Y: y})
		}

	case "xdg_popup.grab":
		name, ok := p.ownerName(obj)
		if !ok || len(args) < 2 {
			return
		}
		serial, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return
		}
		seat := args[0]
		if !p.seats[seat] {
			p.seats[seat] = true
			p.tr.Seats = append(p.tr.Seats, seat)
		}
		p.emit(trace.Event{Op: trace.OpGrab, Surface: name, Seat: seat, Serial: uint32(serial)})

	case "wl_surface.commit":
		name := p.surfaceName(obj)
		if p.created[name] {
			p.emit(trace.Event{Op: trace.OpCommit, Surface: name})
		}

	case "xdg_popup.destroy", "xdg_toplevel.destroy", "zwlr_layer_surface_v1.destroy":
		name, ok := p.ownerName(obj)
		delete(p.owners, obj)
		if ok && p.created[name] {
			delete(p.created, name)
			p.emit(trace.Event{Op: trace.OpDestroy, Surface: name})
		}

	case "wl_surface.destroy":
		name := p.surfaceName(obj)
		delete(p.names, obj)
		if p.created[name] {
			delete(p.created, name)
			p.emit(trace.Event{Op: trace.OpDestroy, Surface: name})
		}
	}
}

// newID extracts the object of a "new id iface@N" argument.
func newID(args []string, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	obj, ok := strings.CutPrefix(args[i], "new id ")
	return obj, ok
}

// splitArgs splits a message argument list on commas outside quotes.
func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var (
		args    []string
		cur     strings.Builder
		inQuote bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ',' && !inQuote:
			args = append(args, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(args, strings.TrimSpace(cur.String()))
}
