package dashboard

import "testing"

func TestLoadDocumentation(t *testing.T) {
	doc := LoadDocumentation()
	if doc.Title != "System Documentation" {
		t.Errorf("Title = %q", doc.Title)
	}

	want := []string{"System Overview", "Key Features", "Usage Guide", "Recommended Thresholds", "Troubleshooting"}
	if len(doc.Sections) != len(want) {
		t.Fatalf("got %d sections, want %d", len(doc.Sections), len(want))
	}
	for i, s := range doc.Sections {
		if s.Title != want[i] {
			t.Errorf("section %d = %q, want %q", i, s.Title, want[i])
		}
	}
	if doc.Sections[0].Body == "" {
		t.Error("overview has no body")
	}
}

func TestParseDocumentation_Items(t *testing.T) {
	doc := parseDocumentation("# T\n\n## S\n\nfirst\nsecond\n\n- **A**: alpha\n- plain\n")
	s := doc.Sections[0]
	if s.Body != "first second" {
		t.Errorf("Body = %q", s.Body)
	}
	if len(s.Items) != 2 {
		t.Fatalf("Items = %+v", s.Items)
	}
	if s.Items[0] != (DocItem{Title: "A", Text: "alpha"}) {
		t.Errorf("Items[0] = %+v", s.Items[0])
	}
	if s.Items[1] != (DocItem{Text: "plain"}) {
		t.Errorf("Items[1] = %+v", s.Items[1])
	}
}
