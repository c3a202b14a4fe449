package scenario

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const metadataFixture = `{
  "zeta": [
    {"id": "msg-1", "role": "seller", "text": "Hello", "audioPath": "/tts/zeta_msg-1_seller.mp3", "voice": "aura"}
  ],
  "alpha": [
    {"id": "msg-1", "role": "customer", "text": "Two please",
     "orderAction": {"type": "add", "items": [{"name": "Nasi Goreng", "quantity": 2}]}},
    {"role": "seller", "text": "Done", "paymentReceived": {"amount": 40, "change": 5}}
  ]
}`

func TestDecodeKeepsScenarioOrder(t *testing.T) {
	set, err := Decode(strings.NewReader(metadataFixture))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if names := set.Names(); !slices.Equal(names, []string{"zeta", "alpha"}) {
		t.Fatalf("expected file order [zeta alpha], got %v", names)
	}
}

func TestDecodeKeepsOptionalFieldAbsence(t *testing.T) {
	set, err := Decode(strings.NewReader(metadataFixture))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	alpha, _ := set.Get("alpha")

	item := alpha[0].OrderAction.Items[0]
	if item.Name == nil || *item.Name != "Nasi Goreng" {
		t.Fatalf("unexpected item name: %+v", item)
	}
	if item.Price != nil {
		t.Fatalf("expected missing price to stay nil, got %v", *item.Price)
	}

	payment := alpha[1].PaymentReceived
	if payment.Method != nil {
		t.Fatalf("expected missing method to stay nil")
	}
	if payment.Amount == nil || *payment.Amount != 40 {
		t.Fatalf("unexpected payment amount: %+v", payment)
	}
}

func TestMessageRoundTripKeepsExtraFields(t *testing.T) {
	set, err := Decode(strings.NewReader(metadataFixture))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	zeta, _ := set.Get("zeta")
	if _, ok := zeta[0].Extra["voice"]; !ok {
		t.Fatalf("expected unknown key to be kept, got %v", zeta[0].Extra)
	}

	encoded, err := json.Marshal(zeta[0])
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(encoded, &fields); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if fields["voice"] != "aura" || fields["audioPath"] != "/tts/zeta_msg-1_seller.mp3" {
		t.Fatalf("unexpected encoded message: %s", encoded)
	}
}

func TestDecodeCollectsMalformedFields(t *testing.T) {
	const fixture = `{"odd": [
		{"id": "msg-1", "role": 5, "text": 42, "voice": "aura"},
		{"id": "msg-2", "role": "seller", "text": "Half",
		 "orderAction": {"type": "add", "items": [{"name": "Es Teh", "quantity": 0.5}]}}
	]}`

	set, err := Decode(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	odd, _ := set.Get("odd")
	if len(odd) != 2 {
		t.Fatalf("expected both messages, got %d", len(odd))
	}

	first := odd[0]
	if first.Role != "5" || first.Role.Valid() {
		t.Fatalf("expected numeric role to be kept as text, got %q", first.Role)
	}
	if !first.IsMalformed("text") || first.IsMalformed("role") || first.Text != "" {
		t.Fatalf("expected only text to be malformed, got %+v", first.Malformed)
	}
	if quantity := odd[1].OrderAction.Items[0].Quantity; quantity == nil || *quantity != 0.5 {
		t.Fatalf("expected fractional quantity, got %v", quantity)
	}

	encoded, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(encoded, &fields); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if fields["text"] != 42.0 || fields["voice"] != "aura" {
		t.Fatalf("expected malformed value to survive a round trip, got %s", encoded)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tts", "conversations.json")
	if err := Samples().Save(path); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if names := loaded.Names(); !slices.Equal(names, []string{"simple_order", "negotiation", "complex_order"}) {
		t.Fatalf("unexpected scenarios after reload: %v", names)
	}
	complexOrder, _ := loaded.Get("complex_order")
	if len(complexOrder) != 15 {
		t.Fatalf("expected 15 messages, got %d", len(complexOrder))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing metadata file")
	}
}

func TestSelect(t *testing.T) {
	set := Samples()

	all, err := set.Select(AllScenarios)
	if err != nil || all.Len() != 3 {
		t.Fatalf("expected all scenarios, got %v (err %v)", all, err)
	}

	one, err := set.Select("negotiation")
	if err != nil {
		t.Fatalf("unexpected select error: %v", err)
	}
	if names := one.Names(); !slices.Equal(names, []string{"negotiation"}) {
		t.Fatalf("unexpected selection: %v", names)
	}

	if _, err := set.Select("unknown"); !errors.Is(err, ErrScenarioNotFound) {
		t.Fatalf("expected ErrScenarioNotFound, got %v", err)
	}
}

func TestMessageIDFallsBackToIndex(t *testing.T) {
	if id := MessageID(Message{}, 3); id != "msg-3" {
		t.Fatalf("expected msg-3, got %s", id)
	}
	if id := MessageID(Message{ID: "m"}, 3); id != "m" {
		t.Fatalf("expected m, got %s", id)
	}
}

func TestSchemaDescribesMessages(t *testing.T) {
	schema := Schema()
	if schema.AdditionalProperties == nil || schema.AdditionalProperties.Items == nil {
		t.Fatalf("expected message item schema")
	}
	if _, ok := schema.AdditionalProperties.Items.Properties.Get("orderAction"); !ok {
		t.Fatalf("expected orderAction property in message schema")
	}
}
