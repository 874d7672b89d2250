package wireservice

import "testing"

func TestNewTextMessage(t *testing.T) {
	msg := NewTextMessage("hello")
	if msg.MessageID == "" {
		t.Error("missing message ID")
	}
	if msg.Text == nil || msg.Text.Content != "hello" {
		t.Errorf("text content = %+v", msg.Text)
	}
	if msg.Availability != nil {
		t.Error("text message carries availability content")
	}

	other := NewTextMessage("hello")
	if other.MessageID == msg.MessageID {
		t.Error("message IDs not unique")
	}
}

func TestParseAvailabilityType(t *testing.T) {
	for _, valid := range []string{"none", "available", "away", "busy"} {
		if _, err := ParseAvailabilityType(valid); err != nil {
			t.Errorf("%s: %v", valid, err)
		}
	}
	if _, err := ParseAvailabilityType("offline"); err == nil {
		t.Error("want error for unknown availability type")
	}
}

func TestGenericMessageRoundTrip(t *testing.T) {
	data, err := NewAvailabilityMessage(AvailabilityBusy).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	msg, err := UnmarshalGenericMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Availability == nil || msg.Availability.Type != AvailabilityBusy {
		t.Errorf("availability = %+v", msg.Availability)
	}
}
