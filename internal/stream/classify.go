package stream

import "encoding/json"

// Classify parses one inbound frame and assigns it a Kind. The upstream
// envelope is not fully documented and has observed variants, so
// classification probes several shapes: a "type", "channel" or "topic"
// tag, a nested "data" object, and a bare "ctx" array. Anything
// unparsable comes back as KindRaw, never an error.
func Classify(data []byte) Message {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return Message{Kind: KindRaw, Raw: data}
	}

	tag, _ := obj["type"].(string)
	channel, _ := obj["channel"].(string)
	topic, _ := obj["topic"].(string)

	tagged := func(t Topic) bool {
		return tag == string(t) || channel == string(t) || topic == string(t)
	}

	if tag == "subscriptionResponse" {
		return Message{
			Kind:   KindAck,
			Topics: stringSlice(obj["topics"]),
			Data:   obj,
			Raw:    data,
		}
	}

	if tag == "error" {
		msg := Message{Kind: KindError, Data: obj, Raw: data}
		msg.Text, _ = obj["message"].(string)
		if msg.Text == "" {
			msg.Text = "stream error"
		}
		msg.Code, _ = obj["code"].(string)
		return msg
	}

	if tagged(TopicContext) || hasArray(obj, "ctx") {
		return Message{
			Kind: KindContext,
			Data: contextPayload(obj),
			Raw:  data,
		}
	}

	if tagged(TopicTicker) {
		payload := firstObject(
			nested(obj, "data", "ticker"),
			objField(obj, "ticker"),
			objField(obj, "data"),
			obj,
		)
		return Message{
			Kind:   KindTicker,
			Symbol: symbolOf(payload, obj),
			Data:   payload,
			Raw:    data,
		}
	}

	if tagged(TopicBookDelta) || tagged(TopicBook) {
		payload := firstObject(objField(obj, "data"), obj)
		return Message{
			Kind:   KindBook,
			Symbol: symbolOf(payload, obj),
			Data:   payload,
			Raw:    data,
		}
	}

	return Message{Kind: KindRaw, Data: obj, Raw: data}
}

// contextPayload picks the object that actually carries the ctx rows:
// data-wrapped, bare, or the envelope itself.
func contextPayload(obj map[string]any) map[string]any {
	if d := objField(obj, "data"); d != nil {
		if hasArray(d, "ctx") {
			return d
		}
	}
	if hasArray(obj, "ctx") {
		return obj
	}
	if d := objField(obj, "data"); d != nil {
		return d
	}
	return obj
}

// symbolOf probes the payload then the envelope for a symbol, long key
// before compact.
func symbolOf(payload, envelope map[string]any) string {
	for _, m := range []map[string]any{payload, envelope} {
		if m == nil {
			continue
		}
		if s, ok := m["symbol"].(string); ok && s != "" {
			return s
		}
		if s, ok := m["s"].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func objField(obj map[string]any, key string) map[string]any {
	m, _ := obj[key].(map[string]any)
	return m
}

func nested(obj map[string]any, outer, inner string) map[string]any {
	return objField(objField(obj, outer), inner)
}

func firstObject(candidates ...map[string]any) map[string]any {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func hasArray(obj map[string]any, key string) bool {
	if obj == nil {
		return false
	}
	_, ok := obj[key].([]any)
	return ok
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
