package stream

import "testing"

func TestClassify_EnvelopeVariants(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantKind   Kind
		wantSymbol string
	}{
		{
			name:     "context via type tag",
			input:    `{"type":"frontendContext","data":{"ctx":[{"coin":"BTC-PERP"}]}}`,
			wantKind: KindContext,
		},
		{
			name:     "context via channel tag",
			input:    `{"channel":"frontendContext","data":{"ctx":[]}}`,
			wantKind: KindContext,
		},
		{
			name:     "context via topic tag",
			input:    `{"topic":"frontendContext","data":{"ctx":[{"symbol":"BTC-PERP","c":"50000"}]}}`,
			wantKind: KindContext,
		},
		{
			name:     "context as bare ctx array",
			input:    `{"ctx":[{"coin":"ETH-PERP","markPx":"1850.5"}]}`,
			wantKind: KindContext,
		},
		{
			name:       "ticker with nested data.ticker",
			input:      `{"type":"ticker","data":{"ticker":{"symbol":"BTC-PERP","last":"50000"}}}`,
			wantKind:   KindTicker,
			wantSymbol: "BTC-PERP",
		},
		{
			name:       "ticker flat with compact symbol",
			input:      `{"channel":"ticker","s":"ETH-PERP","c":"1850"}`,
			wantKind:   KindTicker,
			wantSymbol: "ETH-PERP",
		},
		{
			name:       "ticker with data wrapper",
			input:      `{"type":"ticker","data":{"s":"SOL-PERP","last":"150"}}`,
			wantKind:   KindTicker,
			wantSymbol: "SOL-PERP",
		},
		{
			name:       "ticker via topic tag",
			input:      `{"topic":"ticker","data":{"symbol":"BTC-PERP","last":"50000"}}`,
			wantKind:   KindTicker,
			wantSymbol: "BTC-PERP",
		},
		{
			name:       "book delta",
			input:      `{"type":"l2Delta","data":{"symbol":"BTC-PERP","bids":[],"asks":[]}}`,
			wantKind:   KindBook,
			wantSymbol: "BTC-PERP",
		},
		{
			name:       "book snapshot via channel",
			input:      `{"channel":"l2book","symbol":"BTC-PERP","bids":[["100","1"]]}`,
			wantKind:   KindBook,
			wantSymbol: "BTC-PERP",
		},
		{
			name:     "subscription ack",
			input:    `{"type":"subscriptionResponse","topics":["ticker","l2Delta"]}`,
			wantKind: KindAck,
		},
		{
			name:     "protocol error",
			input:    `{"type":"error","message":"bad subscription","code":"E42"}`,
			wantKind: KindError,
		},
		{
			name:     "unknown object",
			input:    `{"hello":"world"}`,
			wantKind: KindRaw,
		},
		{
			name:     "unparsable bytes",
			input:    `not json at all`,
			wantKind: KindRaw,
		},
		{
			name:     "bare array",
			input:    `[1,2,3]`,
			wantKind: KindRaw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Classify([]byte(tt.input))
			if msg.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", msg.Kind, tt.wantKind)
			}
			if msg.Symbol != tt.wantSymbol {
				t.Errorf("Symbol = %q, want %q", msg.Symbol, tt.wantSymbol)
			}
			if string(msg.Raw) != tt.input {
				t.Errorf("Raw not preserved")
			}
		})
	}
}

func TestClassify_AckTopics(t *testing.T) {
	msg := Classify([]byte(`{"type":"subscriptionResponse","topics":["ticker","l2Delta"]}`))
	if len(msg.Topics) != 2 || msg.Topics[0] != "ticker" || msg.Topics[1] != "l2Delta" {
		t.Errorf("Topics = %v, want [ticker l2Delta]", msg.Topics)
	}
}

func TestClassify_ErrorFields(t *testing.T) {
	msg := Classify([]byte(`{"type":"error","message":"bad subscription","code":"E42"}`))
	if msg.Text != "bad subscription" || msg.Code != "E42" {
		t.Errorf("Text/Code = %q/%q", msg.Text, msg.Code)
	}

	msg = Classify([]byte(`{"type":"error"}`))
	if msg.Text != "stream error" {
		t.Errorf("default Text = %q, want %q", msg.Text, "stream error")
	}
}

func TestClassify_ContextPayloadSelection(t *testing.T) {
	// data-wrapped ctx rows come back unwrapped to the object holding ctx
	msg := Classify([]byte(`{"type":"frontendContext","data":{"ctx":[{"coin":"X"}]}}`))
	if _, ok := msg.Data["ctx"]; !ok {
		t.Error("data-wrapped payload: ctx not reachable in Data")
	}

	msg = Classify([]byte(`{"ctx":[{"coin":"X"}]}`))
	if _, ok := msg.Data["ctx"]; !ok {
		t.Error("bare payload: ctx not reachable in Data")
	}
}
