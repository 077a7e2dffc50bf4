// Package event registers directive event listeners with modifiers.
//
// An event directive is written
//
//	@name[|modifier[:arg]]*
//
// with the modifiers
//
//	once, capture, passive   standard listener flags
//	delay:<ms>               run the handler <ms> after the event
//	throttle:<ms>            trailing throttle: deliver the latest event once per interval
//	fetch[:<mode>]           the value is a fetch directive; mode is the body parse mode
//
// The event name is decoded with the hyphen-to-capital rule, so
// @value-changed listens for "valueChanged".
package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/pkg/bind"
	"github.com/vango-dev/tendril/pkg/fetch"
	"github.com/vango-dev/tendril/pkg/host"
)

// Modifiers are the parsed flags of an event directive.
type Modifiers struct {
	Once    bool // Remove the listener after the first event
	Capture bool // Listen during the capture phase
	Passive bool // PreventDefault has no effect

	Delay    time.Duration // Defer the handler
	Throttle time.Duration // Trailing throttle interval

	Fetch     bool            // Handler is a fetch directive
	ParseMode fetch.ParseMode // Body parse mode for fetch
}

// ListenOptions returns the host listener flags.
func (m Modifiers) ListenOptions() host.ListenOptions {
	return host.ListenOptions{Capture: m.Capture, Once: m.Once, Passive: m.Passive}
}

// String returns the modifiers in directive form.
func (m Modifiers) String() string {
	var parts []string
	if m.Once {
		parts = append(parts, "once")
	}
	if m.Capture {
		parts = append(parts, "capture")
	}
	if m.Passive {
		parts = append(parts, "passive")
	}
	if m.Delay > 0 {
		parts = append(parts, fmt.Sprintf("delay:%d", m.Delay.Milliseconds()))
	}
	if m.Throttle > 0 {
		parts = append(parts, fmt.Sprintf("throttle:%d", m.Throttle.Milliseconds()))
	}
	if m.Fetch {
		parts = append(parts, "fetch:"+string(m.ParseMode))
	}
	return strings.Join(parts, "|")
}

// Spec is a parsed event directive.
type Spec struct {
	Event string
	Modifiers
}

// Parse parses an event directive name without its leading "@".
func Parse(name string) (Spec, error) {
	parts := strings.Split(name, "|")
	if parts[0] == "" {
		return Spec{}, tderrors.New(tderrors.ErrDirective).WithDetail("The event name is empty.")
	}
	spec := Spec{Event: bind.DecodeName(parts[0])}
	spec.ParseMode = fetch.Text

	for _, raw := range parts[1:] {
		mod, arg, hasArg := strings.Cut(strings.TrimSpace(raw), ":")
		switch strings.ToLower(mod) {
		case "once":
			spec.Once = true
		case "capture":
			spec.Capture = true
		case "passive":
			spec.Passive = true
		case "delay", "throttle":
			d, err := parseMillis(arg, hasArg)
			if err != nil {
				return Spec{}, tderrors.New(tderrors.ErrModifier).
					WithDetailf("%s needs a duration in milliseconds, got %q.", mod, arg).
					Wrap(err)
			}
			if strings.EqualFold(mod, "delay") {
				spec.Delay = d
			} else {
				spec.Throttle = d
			}
		case "fetch":
			spec.Fetch = true
			if hasArg {
				mode, err := fetch.LookupParseMode(arg)
				if err != nil {
					return Spec{}, tderrors.New(tderrors.ErrModifier).Wrap(err)
				}
				spec.ParseMode = mode
			}
		default:
			return Spec{}, tderrors.New(tderrors.ErrModifier).WithDetailf("Unknown modifier %q.", raw)
		}
	}
	return spec, nil
}

func parseMillis(arg string, hasArg bool) (time.Duration, error) {
	if !hasArg {
		return 0, fmt.Errorf("missing argument")
	}
	ms, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, err
	}
	if ms < 0 {
		return 0, fmt.Errorf("negative duration %d", ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
