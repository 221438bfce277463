package tagstring

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	sentence, tags, err := Split("the/DT cat/NN sat/VBD")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sentence, []string{"the", "cat", "sat"}) {
		t.Fatalf("unexpected sentence: %v", sentence)
	}
	if !reflect.DeepEqual(tags, []string{"DT", "NN", "VBD"}) {
		t.Fatalf("unexpected tags: %v", tags)
	}
}

func TestSplitMalformedToken(t *testing.T) {
	if _, _, err := Split("the cat/NN"); err == nil {
		t.Fatal("expected an error for a token with no tag")
	}
}

func TestSplitEmpty(t *testing.T) {
	sentence, tags, err := Split("   ")
	if err != nil {
		t.Fatal(err)
	}
	if len(sentence) != 0 || len(tags) != 0 {
		t.Fatalf("expected empty slices, got %v / %v", sentence, tags)
	}
}

func TestJoinRoundTrip(t *testing.T) {
	const input = "the/DT cat/NN sat/VBD"
	sentence, tags, err := Split(input)
	if err != nil {
		t.Fatal(err)
	}
	joined, err := Join(sentence, tags)
	if err != nil {
		t.Fatal(err)
	}
	if joined != input {
		t.Fatalf("Join(Split(%q)) = %q", input, joined)
	}
}

func TestJoinMismatchedLengths(t *testing.T) {
	if _, err := Join([]string{"a", "b"}, []string{"X"}); err == nil {
		t.Fatal("expected an error for mismatched slice lengths")
	}
}
