package assistant

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ai-rea/assistant/pkg/agent"
	"github.com/ai-rea/assistant/pkg/bus"
	"github.com/ai-rea/assistant/pkg/pagectx"
)

// Navigator is the only capability the dispatcher takes from the host's
// router: request a navigation, and read the current path.
type Navigator interface {
	Navigate(path string)
	CurrentPath() string
}

// SignalBus is the broadcast side of the signal channel. Both *bus.Bus and a
// session-scoped view of it satisfy this.
type SignalBus interface {
	Publish(topic string, signal any) error
}

// Dispatcher applies agent actions against the host page. It holds no
// reference to the components it targets: form and query fills go out as
// broadcast signals on the bus, and whether anything is listening is not the
// dispatcher's concern. Actions come from a probabilistic agent, so nothing
// here may fail observably; unknown tags and malformed payloads are skipped.
type Dispatcher struct {
	nav Navigator
	bus SignalBus
	log zerolog.Logger
}

func NewDispatcher(nav Navigator, b SignalBus) *Dispatcher {
	return &Dispatcher{
		nav: nav,
		bus: b,
		log: log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch applies actions in array order, synchronously. Each action is
// independent: a no-op or a skipped action never blocks the ones after it.
func (d *Dispatcher) Dispatch(actions []agent.Action, currentPath string) {
	for _, a := range actions {
		switch v := a.(type) {
		case agent.GuideAction:
			d.guide(v, currentPath)
		case agent.FillQueryAction:
			d.publish(bus.TopicFillQuery, bus.FillQuerySignal{Query: v.Query})
		case agent.FillSellFormAction:
			if len(v.Fields) == 0 {
				continue
			}
			d.publish(bus.TopicFillSellForm, bus.FillSellFormSignal{Fields: v.Fields})
		default:
			d.log.Warn().Str("ui_action", a.Tag()).Msg("ignoring unknown ui action")
		}
	}
}

func (d *Dispatcher) guide(a agent.GuideAction, currentPath string) {
	if !pagectx.Known(a.Page) {
		d.log.Warn().Str("page", string(a.Page)).Msg("ignoring guide to unknown page")
		return
	}
	target := pagectx.Route(a.Page)
	if target == currentPath {
		// Already there; navigation is idempotent.
		return
	}
	if d.nav == nil {
		return
	}
	d.nav.Navigate(target)
}

func (d *Dispatcher) publish(topic string, signal any) {
	if d.bus == nil {
		return
	}
	if err := d.bus.Publish(topic, signal); err != nil {
		d.log.Warn().Err(err).Str("topic", topic).Msg("signal publish failed")
	}
}
