package entities

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Plan is the ordered list of steps executed in one run
type Plan []Step

// Actions returns the action name of every step in order
func (p Plan) Actions() []Action {
	actions := make([]Action, len(p))
	for i, step := range p {
		actions[i] = step.Action()
	}
	return actions
}

// wireStep is the JSON form produced by plan generators
type wireStep struct {
	Action           Action                     `json:"action"`
	URL              string                     `json:"url,omitempty"`
	WaitUntil        LoadState                  `json:"wait_until,omitempty"`
	Selector         json.RawMessage            `json:"selector,omitempty"`
	Timeout          int64                      `json:"timeout,omitempty"`
	Value            string                     `json:"value,omitempty"`
	ClearFirst       bool                       `json:"clear_first,omitempty"`
	WaitAfter        LoadState                  `json:"wait_after,omitempty"`
	MinPrice         *float64                   `json:"min_price,omitempty"`
	MaxPrice         *float64                   `json:"max_price,omitempty"`
	MinRating        *float64                   `json:"min_rating,omitempty"`
	ProductSelector  json.RawMessage            `json:"product_selector,omitempty"`
	Fields           map[string]json.RawMessage `json:"fields,omitempty"`
	Count            int                        `json:"count,omitempty"`
	Site             string                     `json:"site,omitempty"`
	FieldName        string                     `json:"field_name,omitempty"`
	GenerateIfNeeded bool                       `json:"generate_if_needed,omitempty"`
	Reason           string                     `json:"reason,omitempty"`
}

// DecodePlan - decodes a JSON array of steps into a Plan.
// Every step is validated here so handlers never see malformed input.
func DecodePlan(data []byte) (Plan, error) {
	var raw []wireStep
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}

	plan := make(Plan, 0, len(raw))
	for i, ws := range raw {
		step, err := ws.toStep()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		plan = append(plan, step)
	}
	return plan, nil
}

// EncodePlan - encodes a Plan into its JSON wire form
func EncodePlan(plan Plan) ([]byte, error) {
	out := make([]map[string]any, 0, len(plan))
	for _, step := range plan {
		data, err := json.Marshal(step)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s step: %w", step.Action(), err)
		}
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
		if wf, ok := step.(WaitFor); ok && wf.Timeout > 0 {
			fields["timeout"] = wf.Timeout.Milliseconds()
		}
		fields["action"] = step.Action()
		out = append(out, fields)
	}
	return json.Marshal(out)
}

func (ws wireStep) toStep() (Step, error) {
	switch ws.Action {
	case ActionNavigate:
		if ws.URL == "" {
			return nil, fmt.Errorf("%w: navigate requires url", ErrInvalidStep)
		}
		return Navigate{URL: ws.URL, WaitUntil: ws.WaitUntil}, nil

	case ActionWaitFor:
		selectors, err := decodeSelectors(ws.Selector)
		if err != nil {
			return nil, err
		}
		if len(selectors) == 0 {
			return nil, fmt.Errorf("%w: wait_for requires selector", ErrInvalidStep)
		}
		return WaitFor{Selectors: selectors, Timeout: time.Duration(ws.Timeout) * time.Millisecond}, nil

	case ActionType:
		selectors, err := decodeSelectors(ws.Selector)
		if err != nil {
			return nil, err
		}
		if len(selectors) == 0 {
			return nil, fmt.Errorf("%w: type requires selector", ErrInvalidStep)
		}
		return Type{Selectors: selectors, Value: ws.Value, ClearFirst: ws.ClearFirst}, nil

	case ActionClick:
		selectors, err := decodeSelectors(ws.Selector)
		if err != nil {
			return nil, err
		}
		return Click{Selectors: selectors, WaitAfter: ws.WaitAfter}, nil

	case ActionFilterPrice:
		return FilterPrice{MinPrice: toInt64(ws.MinPrice), MaxPrice: toInt64(ws.MaxPrice)}, nil

	case ActionFilterRating:
		return FilterRating{MinRating: ws.MinRating}, nil

	case ActionExtractProducts:
		containers, err := decodeSelectors(ws.ProductSelector)
		if err != nil {
			return nil, err
		}
		fields, err := decodeFields(ws.Fields)
		if err != nil {
			return nil, err
		}
		count := ws.Count
		if count <= 0 {
			count = DefaultResultCount
		}
		return ExtractProducts{
			ContainerSelectors: containers,
			Fields:             fields,
			Count:              count,
			Site:               ws.Site,
			MinRating:          ws.MinRating,
			MinPrice:           toInt64(ws.MinPrice),
			MaxPrice:           toInt64(ws.MaxPrice),
		}, nil

	case ActionFillFormField:
		if ws.FieldName == "" {
			return nil, fmt.Errorf("%w: fill_form_field requires field_name", ErrInvalidStep)
		}
		return FillFormField{FieldName: ws.FieldName, Value: ws.Value, GenerateIfNeeded: ws.GenerateIfNeeded}, nil

	case ActionSubmitForm:
		return SubmitForm{WaitAfter: ws.WaitAfter}, nil

	case ActionUnsupported:
		reason := ws.Reason
		if reason == "" {
			reason = "Unsupported action"
		}
		return Unsupported{Reason: reason}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, ws.Action)
	}
}

func decodeFields(raw map[string]json.RawMessage) (FieldSelectors, error) {
	var fields FieldSelectors
	// aliases append after their primary key so merged selector order is stable
	targets := []struct {
		key    string
		target *[]string
	}{
		{"name", &fields.Name},
		{"title", &fields.Name},
		{"price", &fields.Price},
		{"rating", &fields.Rating},
		{"url", &fields.URL},
		{"link", &fields.URL},
	}
	for _, field := range targets {
		key, target := field.key, field.target
		value, ok := raw[key]
		if !ok {
			continue
		}
		selectors, err := decodeSelectors(value)
		if err != nil {
			return FieldSelectors{}, fmt.Errorf("field %s: %w", key, err)
		}
		*target = append(*target, selectors...)
	}
	return fields, nil
}

// decodeSelectors accepts either a JSON array of selectors or a comma separated string
func decodeSelectors(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanSelectors(list), nil
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil, fmt.Errorf("%w: selector must be a string or a list of strings", ErrInvalidStep)
	}
	return SplitSelectors(joined), nil
}

// SplitSelectors - splits a selector group at top-level commas only,
// so commas inside parentheses, brackets or quotes are preserved
func SplitSelectors(group string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range group {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			parts = append(parts, group[start:i])
			start = i + 1
		}
	}
	parts = append(parts, group[start:])
	return cleanSelectors(parts)
}

func cleanSelectors(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toInt64(f *float64) *int64 {
	if f == nil {
		return nil
	}
	v := int64(*f)
	return &v
}
