package migrate

import "testing"

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  any
		want string
	}{
		{"commandsonly int true", "commandsonly", int64(1), "true"},
		{"commandsonly int false", "commandsonly", int64(0), "false"},
		{"commandsonly null", "commandsonly", nil, "false"},
		{"commandsonly string", "commandsonly", "yes", "true"},
		{"times document", "times", `[{"name":"ss","interval":3}]`, `[{"interval":3,"name":"ss"}]`},
		{"default string", "world", "Fidera", `"Fidera"`},
		{"default number", "askchannel", int64(42), "42"},
		{"default blob", "welcome", []byte("hi"), `"hi"`},
		{"default null", "welcome", nil, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeValue(tt.key, tt.raw)
			if err != nil {
				t.Fatalf("encodeValue: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestEncodeValueMalformedTimes(t *testing.T) {
	if _, err := encodeValue("times", "{"); err == nil {
		t.Fatal("expected error for malformed times value")
	}
	if _, err := encodeValue("times", int64(5)); err == nil {
		t.Fatal("expected error for non-text times value")
	}
}

func TestDecodePrefixes(t *testing.T) {
	prefixes, err := decodePrefixes(`["!", "?", "."]`)
	if err != nil {
		t.Fatalf("decodePrefixes: %v", err)
	}
	if len(prefixes) != 3 || prefixes[0] != "!" || prefixes[2] != "." {
		t.Fatalf("unexpected prefixes: %v", prefixes)
	}

	if _, err := decodePrefixes(`{"a":1}`); err == nil {
		t.Fatal("expected error for non-array prefixes")
	}
	if _, err := decodePrefixes(int64(7)); err == nil {
		t.Fatal("expected error for non-text prefixes")
	}
}
