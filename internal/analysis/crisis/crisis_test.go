package crisis

import "testing"

func TestDetect(t *testing.T) {
	hits := []string{
		"I want to die",
		"sometimes I think about SUICIDE",
		"I dont want to live anymore",
		"i can't go on like this",
		"I might hurt myself",
	}
	for _, msg := range hits {
		if !Detect(msg) {
			t.Fatalf("expected crisis for %q", msg)
		}
	}

	misses := []string{"I had a rough day", "work is killing me slowly", ""}
	for _, msg := range misses {
		if Detect(msg) {
			t.Fatalf("unexpected crisis for %q", msg)
		}
	}
}
