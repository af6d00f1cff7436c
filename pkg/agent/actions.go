package agent

import (
	"encoding/json"

	"github.com/ai-rea/assistant/pkg/pagectx"
)

// Action is one structured UI instruction embedded in an agent reply. The set
// is closed: guide, fill_query and fill_sell_form, plus UnknownAction for
// anything else the agent produces. Decoding is lenient because actions come
// from a probabilistic agent; a malformed element degrades to UnknownAction
// instead of failing the whole response.
type Action interface {
	Tag() string
}

const (
	TagGuide        = "guide"
	TagFillQuery    = "fill_query"
	TagFillSellForm = "fill_sell_form"
)

// GuideAction asks the host page to navigate.
type GuideAction struct {
	Page pagectx.Page `json:"page"`
}

func (GuideAction) Tag() string { return TagGuide }

// FillQueryAction pre-fills the dashboard query input.
type FillQueryAction struct {
	Query string `json:"query"`
}

func (FillQueryAction) Tag() string { return TagFillQuery }

// FillSellFormAction pre-fills fields of the multi-step sell form. Only the
// fields the agent chose to set are present.
type FillSellFormAction struct {
	Fields map[string]string `json:"fields"`
}

func (FillSellFormAction) Tag() string { return TagFillSellForm }

// UnknownAction preserves an unrecognized or malformed action for logging.
type UnknownAction struct {
	RawTag string
	Raw    json.RawMessage
}

func (a UnknownAction) Tag() string { return a.RawTag }

// Actions decodes the agent's ui_actions array, keeping array order.
type Actions []Action

func (as *Actions) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		// Not even an array. Treat as no actions rather than poisoning the turn.
		*as = nil
		return nil
	}
	out := make(Actions, 0, len(raws))
	for _, raw := range raws {
		out = append(out, decodeAction(raw))
	}
	*as = out
	return nil
}

func (as Actions) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(as))
	for _, a := range as {
		b, err := encodeAction(a)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

type actionEnvelope struct {
	UIAction string `json:"ui_action"`
}

func decodeAction(raw json.RawMessage) Action {
	var env actionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return UnknownAction{Raw: raw}
	}
	switch env.UIAction {
	case TagGuide:
		var a GuideAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return UnknownAction{RawTag: env.UIAction, Raw: raw}
		}
		return a
	case TagFillQuery:
		var a FillQueryAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return UnknownAction{RawTag: env.UIAction, Raw: raw}
		}
		return a
	case TagFillSellForm:
		var a FillSellFormAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return UnknownAction{RawTag: env.UIAction, Raw: raw}
		}
		return a
	default:
		return UnknownAction{RawTag: env.UIAction, Raw: raw}
	}
}

func encodeAction(a Action) (json.RawMessage, error) {
	switch v := a.(type) {
	case GuideAction:
		return json.Marshal(struct {
			UIAction string `json:"ui_action"`
			GuideAction
		}{TagGuide, v})
	case FillQueryAction:
		return json.Marshal(struct {
			UIAction string `json:"ui_action"`
			FillQueryAction
		}{TagFillQuery, v})
	case FillSellFormAction:
		return json.Marshal(struct {
			UIAction string `json:"ui_action"`
			FillSellFormAction
		}{TagFillSellForm, v})
	case UnknownAction:
		if len(v.Raw) > 0 {
			return json.RawMessage(v.Raw), nil
		}
		return json.Marshal(actionEnvelope{UIAction: v.RawTag})
	default:
		return json.Marshal(actionEnvelope{UIAction: a.Tag()})
	}
}
